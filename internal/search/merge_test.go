package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeCandidates_UnionByChunkID(t *testing.T) {
	lexical := []lexHit{
		{id: "aaa", score: 3.2},
		{id: "bbb", score: 1.1},
	}
	vector := []vecHit{
		{id: "bbb", score: 0.92},
		{id: "ccc", score: 0.88},
	}

	merged := mergeCandidates(lexical, vector)
	require.Len(t, merged, 3)

	byID := make(map[string]*Candidate)
	for _, c := range merged {
		byID[c.ChunkID] = c
	}

	// Every hit from either side survives the merge.
	for _, id := range []string{"aaa", "bbb", "ccc"} {
		require.Contains(t, byID, id)
	}

	assert.Equal(t, SourceLexical, byID["aaa"].Source)
	assert.Equal(t, SourceVector, byID["ccc"].Source)

	both := byID["bbb"]
	assert.Equal(t, SourceBoth, both.Source)
	assert.Equal(t, 1.1, both.LexScore)
	assert.Equal(t, 0.92, both.VecScore)
}

func TestMergeCandidates_EmptySides(t *testing.T) {
	assert.Empty(t, mergeCandidates(nil, nil))

	onlyLex := mergeCandidates([]lexHit{{id: "x", score: 1}}, nil)
	require.Len(t, onlyLex, 1)
	assert.Equal(t, SourceLexical, onlyLex[0].Source)

	onlyVec := mergeCandidates(nil, []vecHit{{id: "y", score: 1}})
	require.Len(t, onlyVec, 1)
	assert.Equal(t, SourceVector, onlyVec[0].Source)
}

func TestTruncateForRerank_BothTaggedFirst(t *testing.T) {
	merged := mergeCandidates(
		[]lexHit{{id: "lex-high", score: 99}, {id: "shared", score: 1}},
		[]vecHit{{id: "shared", score: 0.5}, {id: "vec-low", score: 0.1}},
	)

	out := truncateForRerank(merged, 2)
	require.Len(t, out, 2)

	// The shared candidate outranks even a much higher single score.
	assert.Equal(t, "shared", out[0].ChunkID)
	assert.Equal(t, "lex-high", out[1].ChunkID)
}

func TestTruncateForRerank_SinglesByScoreThenID(t *testing.T) {
	candidates := []*Candidate{
		{ChunkID: "b", LexScore: 2.0, Source: SourceLexical},
		{ChunkID: "d", VecScore: 5.0, Source: SourceVector},
		{ChunkID: "c", VecScore: 2.0, Source: SourceVector},
		{ChunkID: "a", LexScore: 2.0, Source: SourceLexical},
	}

	out := truncateForRerank(candidates, 4)
	require.Len(t, out, 4)

	ids := []string{out[0].ChunkID, out[1].ChunkID, out[2].ChunkID, out[3].ChunkID}
	// Highest single score first, then equal scores ordered by chunk ID.
	assert.Equal(t, []string{"d", "a", "b", "c"}, ids)
}

func TestTruncateForRerank_Deterministic(t *testing.T) {
	lexical := []lexHit{{id: "p", score: 4}, {id: "q", score: 3}, {id: "r", score: 2}}
	vector := []vecHit{{id: "q", score: 0.9}, {id: "s", score: 0.8}}

	first := truncateForRerank(mergeCandidates(lexical, vector), 3)
	for n := 0; n < 10; n++ {
		again := truncateForRerank(mergeCandidates(lexical, vector), 3)
		require.Len(t, again, 3)
		for i := range first {
			assert.Equal(t, first[i].ChunkID, again[i].ChunkID)
		}
	}
}

func TestTruncateForRerank_CapAndEmpty(t *testing.T) {
	assert.Empty(t, truncateForRerank(nil, 5))
	assert.Empty(t, truncateForRerank([]*Candidate{{ChunkID: "x"}}, 0))

	many := []*Candidate{
		{ChunkID: "a", LexScore: 3, Source: SourceLexical},
		{ChunkID: "b", LexScore: 2, Source: SourceLexical},
		{ChunkID: "c", LexScore: 1, Source: SourceLexical},
	}
	assert.Len(t, truncateForRerank(many, 2), 2)
	// Fewer candidates than the cap returns all of them.
	assert.Len(t, truncateForRerank(many, 10), 3)
}
