package rag

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docrag/docrag/internal/chat"
	"github.com/docrag/docrag/internal/config"
	"github.com/docrag/docrag/internal/index"
	"github.com/docrag/docrag/internal/search"
	"github.com/docrag/docrag/internal/snapshot"
)

// echoLLM records the messages it was handed and answers with a constant.
type echoLLM struct {
	messages []chat.Message
	answer   string
}

func (e *echoLLM) Chat(_ context.Context, messages []chat.Message) (string, error) {
	e.messages = messages
	return e.answer, nil
}

func (e *echoLLM) Close() error { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Paths.DocumentsDir = t.TempDir()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Embeddings.Provider = "static"
	cfg.Chunking = config.ChunkingConfig{ChunkSize: 3, ChunkOverlap: 1, MinChunkChars: 10}
	return cfg
}

func seedCorpus(t *testing.T, cfg *config.Config) {
	t.Helper()
	docs := map[string]string{
		"guides/setup.txt": "Install the agent first. Configure the data directory next. " +
			"Start the service when both steps are done. Logs land in the data directory.",
		"billing/refunds.txt": "Refunds are processed within five days. Disputed invoices " +
			"pause the billing cycle. Contact support for escalations.",
	}
	for rel, content := range docs {
		path := filepath.Join(cfg.Paths.DocumentsDir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func newIndexedSystem(t *testing.T) *System {
	t.Helper()
	cfg := testConfig(t)
	seedCorpus(t, cfg)

	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Initialize(context.Background()))
	_, err = s.RefreshIndex(context.Background(), false)
	require.NoError(t, err)
	return s
}

func TestSystem_IndexAndStats(t *testing.T) {
	s := newIndexedSystem(t)

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Files)
	assert.Positive(t, stats.Chunks)
}

func TestSystem_AskBeforeIndexFails(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg)
	require.NoError(t, err)
	defer s.Close()
	s.llm = &echoLLM{answer: "unused"}

	_, err = s.Ask(context.Background(), "anything")
	assert.ErrorIs(t, err, index.ErrNotInitialized)
}

func TestSystem_AskWithoutLLM(t *testing.T) {
	s := newIndexedSystem(t)
	_, err := s.Ask(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no LLM client attached")
}

func TestSystem_AskBuildsPromptAndRecordsHistory(t *testing.T) {
	s := newIndexedSystem(t)
	llm := &echoLLM{answer: "Configure the data directory, then start the service."}
	s.llm = llm

	answer, err := s.Ask(context.Background(), "how do I set up the agent?")
	require.NoError(t, err)
	assert.Equal(t, llm.answer, answer.Text)
	require.NotEmpty(t, answer.Results)

	// Prompt shape: system, document context, then the query last.
	require.GreaterOrEqual(t, len(llm.messages), 3)
	assert.Equal(t, chat.RoleSystem, llm.messages[0].Role)
	assert.True(t, strings.HasPrefix(llm.messages[1].Content, "Document Context: "))
	assert.Contains(t, llm.messages[1].Content, "Page 1 - ")
	last := llm.messages[len(llm.messages)-1]
	assert.Equal(t, "how do I set up the agent?", last.Content)

	// The turn is recorded for the next prompt.
	require.Equal(t, 1, s.History().Len())
	turns := s.History().Snapshot()
	assert.Equal(t, llm.answer, turns[0].Answer)

	// Sources cite category-qualified files.
	require.NotEmpty(t, answer.Sources)
	for _, src := range answer.Sources {
		assert.Regexp(t, `^(guides|billing)/`, src)
	}
	assert.Contains(t, answer.WithSources(), "-----Sources: ")
}

func TestSystem_SecondAskCarriesHistory(t *testing.T) {
	s := newIndexedSystem(t)
	llm := &echoLLM{answer: "first answer"}
	s.llm = llm

	_, err := s.Ask(context.Background(), "first question")
	require.NoError(t, err)

	llm.answer = "second answer"
	_, err = s.Ask(context.Background(), "second question")
	require.NoError(t, err)

	// The second prompt replays the first turn before the new query.
	var sawPair bool
	for i := 0; i+1 < len(llm.messages); i++ {
		if llm.messages[i].Content == "first question" &&
			llm.messages[i+1].Content == "first answer" {
			sawPair = true
		}
	}
	assert.True(t, sawPair, "prior turn should appear in the next prompt")
}

func TestSystem_ReindexAfterRemoval(t *testing.T) {
	cfg := testConfig(t)
	seedCorpus(t, cfg)

	s, err := New(cfg)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Initialize(context.Background()))

	_, err = s.RefreshIndex(context.Background(), false)
	require.NoError(t, err)
	before, err := s.Stats()
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(cfg.Paths.DocumentsDir, "billing/refunds.txt")))
	report, err := s.RefreshIndex(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Removed)

	after, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, before.Files-1, after.Files)
	assert.Less(t, after.Chunks, before.Chunks)
}

func TestSystem_RestartRestoresFromSnapshot(t *testing.T) {
	cfg := testConfig(t)
	seedCorpus(t, cfg)

	first, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, first.Initialize(context.Background()))
	_, err = first.RefreshIndex(context.Background(), false)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := New(cfg)
	require.NoError(t, err)
	defer second.Close()
	require.NoError(t, second.Initialize(context.Background()))

	stats, err := second.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Files)
}

func TestFormatContext(t *testing.T) {
	results := []*search.Result{
		{Chunk: &snapshot.Chunk{Page: 3, SourceFile: "guides/setup.txt", Text: "start the service"}},
		{Chunk: &snapshot.Chunk{Page: 1, SourceFile: "billing/refunds.txt", Text: "refunds take five days"}},
	}

	got := formatContext(results)
	want := "Page 3 - guides/setup.txt: start the service\n" +
		"Page 1 - billing/refunds.txt: refunds take five days"
	assert.Equal(t, want, got)
	assert.Empty(t, formatContext(nil))
}

func TestSourceRefs_DedupAndCap(t *testing.T) {
	mk := func(file, category string) *search.Result {
		return &search.Result{Chunk: &snapshot.Chunk{SourceFile: file, Category: category}}
	}
	results := []*search.Result{
		mk("guides/a.txt", "guides"),
		mk("guides/a.txt", "guides"),
		mk("billing/b.txt", "billing"),
		mk("legal/c.txt", "legal"),
		mk("ops/d.txt", "ops"),
	}

	refs := sourceRefs(results)
	assert.Equal(t, []string{"guides/a.txt", "billing/b.txt", "legal/c.txt"}, refs)
}

func TestSourceRefs_UncategorizedFile(t *testing.T) {
	refs := sourceRefs([]*search.Result{
		{Chunk: &snapshot.Chunk{SourceFile: "readme.txt", Category: ""}},
	})
	assert.Equal(t, []string{"readme.txt"}, refs)
}
