package embedding

import "context"

// Task types hint the provider how the text will be used. Providers that
// don't distinguish (Ollama, Jina, OpenAI) ignore them.
const (
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

type EmbeddingResponseEmbedding struct {
	Values []float32 `json:"values"`
}

type EmbeddingResponse struct {
	Embedding EmbeddingResponseEmbedding `json:"embedding"`
}

// EmbeddingProvider converts text into a fixed-length vector. Implementations
// make one outbound call per invocation and keep no local cache. Callers
// bound the call with a context deadline.
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error)
}
