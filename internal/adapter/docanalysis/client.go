// Package docanalysis is the HTTP client for the external document-analysis
// service that extracts full text (and optionally a document-type label)
// from non-text formats.
package docanalysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"doculens/features/ingest"
	"doculens/internal/fault"
)

const defaultExtractionModel = "prebuilt-read"

type Client struct {
	baseURL         string
	classifierModel string
	client          *http.Client
}

func NewClient(baseURL, classifierModel string) *Client {
	return &Client{
		baseURL:         baseURL,
		classifierModel: classifierModel,
		client:          &http.Client{Timeout: 120 * time.Second},
	}
}

// Analyze submits the access token for the source object and waits for the
// full-text extraction result.
func (c *Client) Analyze(ctx context.Context, accessToken string) (*ingest.Analysis, error) {
	if c.baseURL == "" {
		return nil, fault.Configurationf("document analysis endpoint not configured")
	}

	var resp struct {
		Text      string `json:"text"`
		PageCount int    `json:"page_count"`
	}
	if err := c.post(ctx, "/analyze", map[string]string{
		"source": accessToken,
		"model":  defaultExtractionModel,
	}, &resp); err != nil {
		return nil, err
	}

	return &ingest.Analysis{Text: resp.Text, PageCount: resp.PageCount}, nil
}

// Classify asks the analysis service for a coarse document-type label. It is
// an optional capability: without a configured classifier model it fails
// with a configuration error the caller treats as "no classification".
func (c *Client) Classify(ctx context.Context, accessToken string) (string, error) {
	if c.baseURL == "" {
		return "", fault.Configurationf("document analysis endpoint not configured")
	}
	if c.classifierModel == "" {
		return "", fault.Configurationf("classifier model not configured")
	}

	var resp struct {
		Classification string `json:"classification"`
	}
	if err := c.post(ctx, "/classify", map[string]string{
		"source": accessToken,
		"model":  c.classifierModel,
	}, &resp); err != nil {
		return "", err
	}
	return resp.Classification, nil
}

func (c *Client) post(ctx context.Context, path string, body map[string]string, out interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fault.Upstream(fmt.Errorf("document analysis request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fault.Transient(fmt.Errorf("document analysis rate limited"))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fault.Upstreamf("document analysis returned %d: %s", resp.StatusCode, string(raw))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
