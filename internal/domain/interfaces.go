package domain

import "context"

// Document is a named body of text handed to the retrieval store.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// Chunk is a bounded fragment of a document used for retrieval.
type Chunk struct {
	DocumentID string
	Text       string
	Index      int
	Metadata   map[string]string
}

// Source returns the citation label of the chunk, or "doc" when none is set.
func (c Chunk) Source() string {
	if s := c.Metadata["source"]; s != "" {
		return s
	}
	return "doc"
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Embedder converts free text into a numeric vector representation.
// A failing call means "no embedding available" for that text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// EmbedderFunc adapts a plain function to the Embedder interface.
type EmbedderFunc func(ctx context.Context, text string) ([]float64, error)

// Embed calls f(ctx, text).
func (f EmbedderFunc) Embed(ctx context.Context, text string) ([]float64, error) {
	return f(ctx, text)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) []Chunk
}

// Role of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role
	Content string
}

// ChatModel generates the assistant's reply for a conversation.
type ChatModel interface {
	Complete(ctx context.Context, messages []Message, temperature float64) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
