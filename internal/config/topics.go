package config

const (
	// TopicIngestTask carries ingestion jobs to the workflow consumer.
	TopicIngestTask = "ingest.task"
)
