package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type Service struct {
	embedder  Embedder
	index     SearchIndex
	generator Generator
	logger    *QueryLogger
	timeout   time.Duration
}

func NewService(e Embedder, idx SearchIndex, g Generator, logger *QueryLogger, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Service{embedder: e, index: idx, generator: g, logger: logger, timeout: timeout}
}

// Answer embeds the question, retrieves the top fragments (restricted to
// fileNames when given), builds the grounding context and asks the generator.
// The whole search+generation path runs under one bounded timeout.
//
// Embedding and search failures surface as errors. A generation failure also
// surfaces, but with the assembled context attached for diagnostics.
func (s *Service) Answer(ctx context.Context, query string, fileNames []string) (*Answer, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.index.Search(ctx, vec, fileNames, topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	contextText := buildContext(hits, fileNames)
	prompt := buildPrompt(contextText, query)

	raw, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		// Return the partial context so callers can still see what would
		// have grounded the answer.
		return &Answer{ContextUsed: contextText}, fmt.Errorf("generate answer: %w", err)
	}

	answer := &Answer{
		Answer:      sanitize(raw),
		ContextUsed: contextText,
	}

	if s.logger != nil {
		s.logger.Log(QueryLogEntry{
			Query:      query,
			NumResults: len(hits),
			Duration:   time.Since(start),
		})
	}
	slog.InfoContext(ctx, "question answered", "num_results", len(hits), "filtered", len(fileNames) > 0, "duration", time.Since(start))

	return answer, nil
}
