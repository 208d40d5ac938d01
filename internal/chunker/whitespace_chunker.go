package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/Muistio/Henry-agent/internal/domain"
)

// DefaultMaxChars is the default upper bound of a fragment, in characters.
const DefaultMaxChars = 1200

// WhitespaceChunker packs whitespace-delimited tokens into fragments of
// bounded length. Tokens are never split; a token longer than the bound is
// emitted alone.
type WhitespaceChunker struct {
	maxChars int
}

// NewWhitespaceChunker creates a chunker with the given bound. Non-positive
// values select DefaultMaxChars.
func NewWhitespaceChunker(maxChars int) *WhitespaceChunker {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &WhitespaceChunker{maxChars: maxChars}
}

// MaxChars returns the fragment bound.
func (c *WhitespaceChunker) MaxChars() int { return c.maxChars }

// Chunk splits the document content and tags every fragment with the
// document ID and metadata.
func (c *WhitespaceChunker) Chunk(document domain.Document) []domain.Chunk {
	pieces := Split(document.Content, c.maxChars)
	if len(pieces) == 0 {
		return nil
	}
	chunks := make([]domain.Chunk, len(pieces))
	for i, text := range pieces {
		chunks[i] = domain.Chunk{
			DocumentID: document.ID,
			Text:       text,
			Index:      i,
			Metadata:   document.Metadata,
		}
	}
	return chunks
}

// Split normalizes whitespace in text and greedily packs its tokens into
// fragments of at most maxChars characters. Empty or blank text yields nil.
func Split(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil
	}
	var (
		out  []string
		buf  []string
		size int
	)
	for _, tok := range tokens {
		n := utf8.RuneCountInString(tok)
		if len(buf) > 0 && size+1+n > maxChars {
			out = append(out, strings.Join(buf, " "))
			buf, size = nil, 0
		}
		if len(buf) == 0 {
			size = n
		} else {
			size += 1 + n
		}
		buf = append(buf, tok)
	}
	if len(buf) > 0 {
		out = append(out, strings.Join(buf, " "))
	}
	return out
}
