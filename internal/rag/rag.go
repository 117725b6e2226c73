// Package rag wires the corpus scanner, index manager, retrieval engine, and
// chat client into one system behind a small facade the CLI drives.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docrag/docrag/internal/chat"
	"github.com/docrag/docrag/internal/chunk"
	"github.com/docrag/docrag/internal/config"
	"github.com/docrag/docrag/internal/embed"
	"github.com/docrag/docrag/internal/index"
	"github.com/docrag/docrag/internal/scanner"
	"github.com/docrag/docrag/internal/search"
	"github.com/docrag/docrag/internal/snapshot"
)

// maxSourceRefs caps how many source files an answer cites.
const maxSourceRefs = 3

// Answer is one answered query with its provenance.
type Answer struct {
	Text    string
	Sources []string
	Results []*search.Result
}

// WithSources appends the source footer to the answer text.
func (a *Answer) WithSources() string {
	if len(a.Sources) == 0 {
		return a.Text
	}
	return a.Text + "\n\n-----Sources: " + strings.Join(a.Sources, ", ")
}

// System is the assembled document question-answering pipeline.
type System struct {
	cfg      *config.Config
	embedder embed.Embedder
	reranker search.Reranker
	manager  *index.Manager
	engine   *search.Engine
	history  *chat.History
	llm      chat.LLMClient
}

// New assembles the retrieval side of the system. The LLM client is attached
// separately with ConnectLLM; indexing and status need none.
func New(cfg *config.Config) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	embedder, err := embed.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	reranker, err := search.NewRerankerFromConfig(&cfg.Reranker)
	if err != nil {
		return nil, fmt.Errorf("failed to create reranker: %w", err)
	}

	chunker := chunk.NewSentenceChunker(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap, cfg.Chunking.MinChunkChars)
	builder := index.NewBuilder(chunker, embedder, cfg.Performance.IndexWorkers)
	manager := index.NewManager(
		snapshot.NewStore(cfg.SnapshotPath()),
		cfg.LockPath(),
		builder,
		scanner.New(),
		&scanner.ScanOptions{RootDir: cfg.Paths.DocumentsDir},
	)

	s := &System{
		cfg:      cfg,
		embedder: embedder,
		reranker: reranker,
		manager:  manager,
		history:  chat.NewHistory(cfg.Conversation.MaxHistory),
	}
	s.engine = search.NewEngine(s.currentSource, embedder, reranker, cfg.Retrieval)
	return s, nil
}

// currentSource adapts the manager's live state to the retrieval engine.
func (s *System) currentSource() (search.Source, error) {
	live, err := s.manager.Current()
	if err != nil {
		return nil, err
	}
	return live, nil
}

// ConnectLLM attaches the chat completion client. Required before Ask.
func (s *System) ConnectLLM() error {
	llm, err := chat.NewOpenAIClient("", &s.cfg.LLM)
	if err != nil {
		return err
	}
	s.llm = llm
	return nil
}

// Initialize loads the persisted snapshot, if any. The system stays usable
// for indexing when none exists.
func (s *System) Initialize(ctx context.Context) error {
	return s.manager.Load(ctx)
}

// RefreshIndex scans the corpus and applies any changes. With force, the
// previous snapshot is ignored and everything is rebuilt.
func (s *System) RefreshIndex(ctx context.Context, force bool) (*index.BuildReport, error) {
	return s.manager.Refresh(ctx, force)
}

// Stats reports the current snapshot's summary counts.
func (s *System) Stats() (snapshot.Stats, error) {
	return s.manager.Stats()
}

// History exposes the conversation history, for REPL commands like clear.
func (s *System) History() *chat.History {
	return s.history
}

// Ask retrieves context for the query, generates an answer, and records the
// turn. The context handed to the model is one line per retrieved chunk in
// rerank order.
func (s *System) Ask(ctx context.Context, query string) (*Answer, error) {
	if s.llm == nil {
		return nil, fmt.Errorf("no LLM client attached: call ConnectLLM first")
	}

	results, err := s.engine.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}

	messages := chat.BuildMessages(
		s.cfg.SystemPromptOrDefault(),
		formatContext(results),
		s.history.Snapshot(),
		query,
	)

	text, err := s.llm.Chat(ctx, messages)
	if err != nil {
		return nil, err
	}

	s.history.Append(query, text)

	slog.Debug("query answered",
		slog.Int("contextChunks", len(results)),
		slog.Int("historyTurns", s.history.Len()))

	return &Answer{
		Text:    text,
		Sources: sourceRefs(results),
		Results: results,
	}, nil
}

// Close releases every collaborator.
func (s *System) Close() error {
	var errs []string
	if s.llm != nil {
		if err := s.llm.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := s.reranker.Close(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := s.embedder.Close(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("close failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// formatContext renders retrieved chunks one per line with their provenance.
func formatContext(results []*search.Result) string {
	lines := make([]string, len(results))
	for i, r := range results {
		lines[i] = fmt.Sprintf("Page %d - %s: %s", r.Chunk.Page, r.Chunk.SourceFile, r.Chunk.Text)
	}
	return strings.Join(lines, "\n")
}

// sourceRefs lists the top source files cited by the answer, deduplicated,
// in rerank order.
func sourceRefs(results []*search.Result) []string {
	var refs []string
	seen := make(map[string]struct{})
	for _, r := range results {
		ref := r.Chunk.SourceFile
		if r.Chunk.Category != "" && !strings.HasPrefix(ref, r.Chunk.Category+"/") {
			ref = r.Chunk.Category + "/" + ref
		}
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
		if len(refs) == maxSourceRefs {
			break
		}
	}
	return refs
}
