// Package chat answers natural-language questions grounded on retrieved
// document fragments: embed the question, run a filtered vector search,
// assemble a context window, and hand a grounding prompt to the generator.
package chat

import "context"

// topK is the number of nearest-neighbor fragments pulled into the context
// window per question.
const topK = 3

// Hit is one retrieved fragment.
type Hit struct {
	FileName string
	Content  string
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type SearchIndex interface {
	// Search runs a top-k nearest-neighbor query over the content vectors,
	// restricted to the given file names when non-empty (case-insensitive).
	Search(ctx context.Context, vector []float32, fileNames []string, limit int) ([]Hit, error)
}

// Answer is the grounded response plus the exact context it was grounded on.
type Answer struct {
	Answer      string `json:"answer"`
	ContextUsed string `json:"contextUsed"`
}
