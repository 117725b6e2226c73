package search

import "sort"

// mergeCandidates unions the two result sets by chunk ID. IDs seen by both
// lookups carry both scores and the "both" tag. The returned order is
// deterministic (lexical results first, then vector-only results in their
// lookup order) so downstream stable sorts have a well-defined input.
func mergeCandidates(lexical []lexHit, vector []vecHit) []*Candidate {
	merged := make([]*Candidate, 0, len(lexical)+len(vector))
	byID := make(map[string]*Candidate, len(lexical)+len(vector))

	for _, h := range lexical {
		c := &Candidate{ChunkID: h.id, LexScore: h.score, Source: SourceLexical}
		merged = append(merged, c)
		byID[h.id] = c
	}
	for _, h := range vector {
		if c, seen := byID[h.id]; seen {
			c.VecScore = h.score
			c.Source = SourceBoth
			continue
		}
		c := &Candidate{ChunkID: h.id, VecScore: h.score, Source: SourceVector}
		merged = append(merged, c)
		byID[h.id] = c
	}
	return merged
}

// lexHit and vecHit decouple merging from the store result types.
type lexHit struct {
	id    string
	score float64
}

type vecHit struct {
	id    string
	score float64
}

// truncateForRerank selects at most k candidates for the reranker. Candidates
// found by both lookups go first (in merge order); the remaining single-source
// candidates follow, ordered by their one score descending with chunk ID as
// the final tiebreak. The selection is fully deterministic for a given merge.
func truncateForRerank(candidates []*Candidate, k int) []*Candidate {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}

	both := make([]*Candidate, 0, len(candidates))
	singles := make([]*Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Source == SourceBoth {
			both = append(both, c)
		} else {
			singles = append(singles, c)
		}
	}

	sort.SliceStable(singles, func(i, j int) bool {
		si, sj := singles[i].singleScore(), singles[j].singleScore()
		if si != sj {
			return si > sj
		}
		return singles[i].ChunkID < singles[j].ChunkID
	})

	out := append(both, singles...)
	if len(out) > k {
		out = out[:k]
	}
	return out
}
