package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doculens/internal/fault"
)

func askRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHandler_Ask(t *testing.T) {
	svc := NewService(
		&fakeEmbedder{vec: []float32{0.1}},
		&fakeSearchIndex{hits: []Hit{{FileName: "notes.txt", Content: "the answer is 42"}}},
		&fakeGenerator{out: "42"},
		nil, time.Second)
	handler := NewHandler(svc)

	rec := httptest.NewRecorder()
	handler.Ask(rec, askRequest(`{"query":"what is the answer?","fileNames":["notes.txt"]}`))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp Answer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "42", resp.Answer)
	assert.Contains(t, resp.ContextUsed, "notes.txt")
}

func TestHandler_Ask_Validation(t *testing.T) {
	handler := NewHandler(NewService(&fakeEmbedder{}, &fakeSearchIndex{}, &fakeGenerator{}, nil, time.Second))

	rec := httptest.NewRecorder()
	handler.Ask(rec, askRequest(`{"fileNames":["a.txt"]}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	handler.Ask(rec, askRequest(`not json`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Ask_NotConfigured(t *testing.T) {
	svc := NewService(
		&fakeEmbedder{err: fault.Configurationf("gemini api key not configured")},
		&fakeSearchIndex{}, &fakeGenerator{}, nil, time.Second)
	handler := NewHandler(svc)

	rec := httptest.NewRecorder()
	handler.Ask(rec, askRequest(`{"query":"q"}`))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_CONFIGURED")
}

func TestHandler_Ask_GenerationFailureExposesContext(t *testing.T) {
	svc := NewService(
		&fakeEmbedder{vec: []float32{0.1}},
		&fakeSearchIndex{hits: []Hit{{FileName: "a.txt", Content: "x"}}},
		&fakeGenerator{err: fault.Upstreamf("model overloaded")},
		nil, time.Second)
	handler := NewHandler(svc)

	rec := httptest.NewRecorder()
	handler.Ask(rec, askRequest(`{"query":"q"}`))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
		Data struct {
			ContextUsed string `json:"contextUsed"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "GENERATION_FAILED", resp.Error.Code)
	assert.Contains(t, resp.Data.ContextUsed, "Document: a.txt")
}

// Guards the context deadline handed to the search+generation path.
func TestService_Answer_RespectsTimeout(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{0.1}}
	index := &deadlineCheckingIndex{t: t}
	svc := NewService(embedder, index, &fakeGenerator{out: "ok"}, nil, 5*time.Second)

	_, err := svc.Answer(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.True(t, index.sawDeadline)
}

type deadlineCheckingIndex struct {
	t           *testing.T
	sawDeadline bool
}

func (d *deadlineCheckingIndex) Search(ctx context.Context, vec []float32, fileNames []string, limit int) ([]Hit, error) {
	_, d.sawDeadline = ctx.Deadline()
	return nil, nil
}
