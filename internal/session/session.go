// Package session keeps the per-user conversation state. Each session owns
// its retrieval store; nothing is shared between sessions.
package session

import (
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/Muistio/Henry-agent/internal/domain"
	"github.com/Muistio/Henry-agent/internal/vectorstore"
)

// Session is one user's conversation with the agent. Callers that touch
// the store must hold the session lock (Lock/Unlock); the store itself is
// not meant to be shared.
type Session struct {
	mu            sync.Mutex
	id            string
	store         vectorstore.Storage
	messages      []domain.Message
	bootstrapped  bool
	embedFallback bool
}

// New creates a session around store.
func New(store vectorstore.Storage) *Session {
	return &Session{id: uuid.NewString(), store: store}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Lock serializes work on the session.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session.
func (s *Session) Unlock() { s.mu.Unlock() }

// The accessors below expect the caller to hold the lock.

// Store returns the session's retrieval store.
func (s *Session) Store() vectorstore.Storage { return s.store }

// Messages returns a copy of the conversation history.
func (s *Session) Messages() []domain.Message { return slices.Clone(s.messages) }

// Append adds a message to the history.
func (s *Session) Append(m domain.Message) { s.messages = append(s.messages, m) }

// ResetMessages clears the conversation; the index is kept.
func (s *Session) ResetMessages() { s.messages = nil }

// Bootstrapped reports whether the built-in corpus has been ingested.
func (s *Session) Bootstrapped() bool { return s.bootstrapped }

// MarkBootstrapped records that the built-in corpus has been ingested.
func (s *Session) MarkBootstrapped() { s.bootstrapped = true }

// EmbedFallback reports whether any embedding call has failed.
func (s *Session) EmbedFallback() bool { return s.embedFallback }

// MarkEmbedFallback records an embedding failure.
func (s *Session) MarkEmbedFallback() { s.embedFallback = true }
