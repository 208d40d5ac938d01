// Package service wires the retrieval store, the embedder, the chat model
// and the persona into the candidate assistant used by the CLI and the TUI.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Muistio/Henry-agent/internal/domain"
	"github.com/Muistio/Henry-agent/internal/embedding"
	"github.com/Muistio/Henry-agent/internal/loader"
	"github.com/Muistio/Henry-agent/internal/persona"
	"github.com/Muistio/Henry-agent/internal/session"
)

// ErrEmptyQuestion is returned by Ask for blank input.
var ErrEmptyQuestion = errors.New("empty question")

// Options tunes the agent.
type Options struct {
	TopK             int
	Temperature      float64
	SummarySentences int
	// AboutMe is indexed as "about_me" when it is not blank.
	AboutMe string
	// Documents are file paths indexed when the session starts.
	Documents []string
	Logger    *slog.Logger
}

// Reply is the assistant's answer to one question.
type Reply struct {
	Text string
	// Fallback is set when the canned local answer was used.
	Fallback bool
	// Sources lists the citation labels of the retrieved context, in rank order.
	Sources []string
}

// AgentService answers questions about the role using the session's
// retrieval store. Every method serializes on the session lock.
type AgentService struct {
	sess       *session.Session
	chat       domain.ChatModel
	embedder   embedding.Embedder
	summarizer domain.Summarizer
	opts       Options
	logger     *slog.Logger
	summary    string
}

// NewAgentService creates the agent. chat, embedder and summarizer may be nil.
func NewAgentService(sess *session.Session, chat domain.ChatModel, embedder embedding.Embedder, summarizer domain.Summarizer, opts Options) *AgentService {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AgentService{
		sess:       sess,
		chat:       chat,
		embedder:   embedder,
		summarizer: summarizer,
		opts:       opts,
		logger:     logger.With(slog.String("session", sess.ID())),
	}
}

// Bootstrap indexes the job advertisement, the "about me" text and the
// configured documents. Only the first call does any work.
func (s *AgentService) Bootstrap(ctx context.Context) error {
	s.sess.Lock()
	defer s.sess.Unlock()
	return s.bootstrap(ctx)
}

func (s *AgentService) bootstrap(ctx context.Context) error {
	if s.sess.Bootstrapped() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	docs := []domain.Document{{ID: persona.JobAdID, Content: persona.JobAd()}}
	if strings.TrimSpace(s.opts.AboutMe) != "" {
		docs = append(docs, domain.Document{ID: persona.AboutMeID, Content: s.opts.AboutMe})
	}
	for _, path := range s.opts.Documents {
		text, err := loader.ReadFile(path)
		if err != nil {
			s.logger.Warn("skipping configured document", slog.String("path", path), slog.Any("error", err))
			continue
		}
		docs = append(docs, domain.Document{ID: filepath.Base(path), Content: text})
	}

	if s.embedder != nil {
		corpus := make([]string, len(docs))
		for i, d := range docs {
			corpus[i] = d.Content
		}
		if err := s.embedder.Prepare(corpus); err != nil {
			s.logger.Warn("embedder unavailable, using keyword search", slog.String("embedder", s.embedder.Name()), slog.Any("error", err))
			s.embedder = nil
			s.sess.MarkEmbedFallback()
		}
	}

	var all strings.Builder
	for _, d := range docs {
		if err := s.add(ctx, d.ID, d.Content); err != nil {
			s.logger.Warn("document not indexed", slog.String("document_id", d.ID), slog.Any("error", err))
			continue
		}
		all.WriteString(d.Content)
		all.WriteString("\n")
	}

	if s.summarizer != nil {
		summary, err := s.summarizer.Summarize(all.String(), s.opts.SummarySentences)
		if err != nil {
			s.logger.Warn("summary failed", slog.Any("error", err))
		}
		s.summary = summary
	}

	s.sess.MarkBootstrapped()
	s.logger.Info("session bootstrapped", slog.Int("documents", len(docs)), slog.Int("chunks", s.sess.Store().Len()))
	return nil
}

// IngestFiles indexes user-provided files and returns how many were added.
// Each file is cited by its base name. Failures are collected and the
// remaining files are still processed.
func (s *AgentService) IngestFiles(ctx context.Context, paths []string) (int, error) {
	s.sess.Lock()
	defer s.sess.Unlock()
	if err := s.bootstrap(ctx); err != nil {
		return 0, err
	}

	var errs []error
	added := 0
	for _, path := range paths {
		text, err := loader.ReadFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			s.logger.Info("file has no text", slog.String("path", path))
			continue
		}
		id := filepath.Base(path)
		if err := s.add(ctx, id, text); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		added++
	}
	return added, errors.Join(errs...)
}

// Search bootstraps the session and returns the top k chunks for query.
func (s *AgentService) Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	s.sess.Lock()
	defer s.sess.Unlock()
	if err := s.bootstrap(ctx); err != nil {
		return nil, err
	}
	return s.sess.Store().Search(ctx, query, s.embedderFor(), k)
}

// BuildContext renders the top hits for query as "[Source: x]" blocks
// separated by blank lines. It returns "" when nothing is indexed.
func (s *AgentService) BuildContext(ctx context.Context, query string) (string, error) {
	s.sess.Lock()
	defer s.sess.Unlock()
	if err := s.bootstrap(ctx); err != nil {
		return "", err
	}
	text, _, err := s.buildContext(ctx, query)
	return text, err
}

func (s *AgentService) buildContext(ctx context.Context, query string) (string, []string, error) {
	hits, err := s.sess.Store().Search(ctx, query, s.embedderFor(), s.opts.TopK)
	if err != nil {
		return "", nil, err
	}
	blocks := make([]string, 0, len(hits))
	var sources []string
	seen := map[string]bool{}
	for _, h := range hits {
		src := h.Chunk.Source()
		blocks = append(blocks, fmt.Sprintf("[Source: %s]\n%s", src, h.Chunk.Text))
		if !seen[src] {
			seen[src] = true
			sources = append(sources, src)
		}
	}
	return strings.Join(blocks, "\n\n"), sources, nil
}

// Ask answers a question with the conversation so far. When the chat model
// is missing or fails, the local demo answer is returned with Fallback set.
// Both turns are appended to the history.
func (s *AgentService) Ask(ctx context.Context, question string) (Reply, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Reply{}, ErrEmptyQuestion
	}

	s.sess.Lock()
	defer s.sess.Unlock()
	if err := s.bootstrap(ctx); err != nil {
		return Reply{}, err
	}

	contextText, sources, err := s.buildContext(ctx, question)
	if err != nil {
		s.logger.Warn("retrieval failed, answering without context", slog.Any("error", err))
		contextText, sources = "", nil
	}

	user := domain.Message{Role: domain.RoleUser, Content: question}
	messages := append([]domain.Message{{Role: domain.RoleSystem, Content: persona.SystemPrompt(contextText)}}, s.sess.Messages()...)
	messages = append(messages, user)

	reply := Reply{Sources: sources}
	if s.chat != nil {
		text, err := s.chat.Complete(ctx, messages, s.opts.Temperature)
		switch {
		case err == nil && strings.TrimSpace(text) != "":
			reply.Text = text
		case ctx.Err() != nil:
			return Reply{}, ctx.Err()
		default:
			s.logger.Warn("chat model unavailable, using local answer", slog.Any("error", err))
		}
	}
	if reply.Text == "" {
		reply.Text = persona.LocalDemoResponse(s.excerpt(contextText))
		reply.Fallback = true
	}

	s.sess.Append(user)
	s.sess.Append(domain.Message{Role: domain.RoleAssistant, Content: reply.Text})
	return reply, nil
}

// excerpt condenses retrieved context for the local answer.
func (s *AgentService) excerpt(contextText string) string {
	if contextText == "" || s.summarizer == nil {
		return contextText
	}
	out, err := s.summarizer.Summarize(contextText, s.opts.SummarySentences)
	if err != nil || out == "" {
		return contextText
	}
	return out
}

// ResetConversation clears the history. Indexed documents are kept.
func (s *AgentService) ResetConversation() {
	s.sess.Lock()
	defer s.sess.Unlock()
	s.sess.ResetMessages()
}

// Summary returns the summary of the bootstrap corpus.
func (s *AgentService) Summary() string {
	s.sess.Lock()
	defer s.sess.Unlock()
	return s.summary
}

// History returns a copy of the conversation.
func (s *AgentService) History() []domain.Message {
	s.sess.Lock()
	defer s.sess.Unlock()
	return s.sess.Messages()
}

// EmbeddingsUnavailable reports whether any embedding call has failed in
// this session.
func (s *AgentService) EmbeddingsUnavailable() bool {
	s.sess.Lock()
	defer s.sess.Unlock()
	return s.sess.EmbedFallback()
}

// ChatAvailable reports whether a chat model is configured.
func (s *AgentService) ChatAvailable() bool { return s.chat != nil }

// Chunks returns the number of indexed chunks.
func (s *AgentService) Chunks() int {
	s.sess.Lock()
	defer s.sess.Unlock()
	return s.sess.Store().Len()
}

func (s *AgentService) add(ctx context.Context, id, text string) error {
	return s.sess.Store().AddDocument(ctx, id, text, s.embedderFor(), map[string]string{"source": id})
}

// embedderFor returns the embedder wrapped so failures flag the session.
func (s *AgentService) embedderFor() domain.Embedder {
	if s.embedder == nil {
		return nil
	}
	return embedding.NewRecorder(s.embedder, func(error) { s.sess.MarkEmbedFallback() })
}
