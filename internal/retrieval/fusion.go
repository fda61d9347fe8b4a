package retrieval

import "sort"

// normalizeScores linearly rescales scores within one list so max->1.0
// and min->0.0. If max==min, every score becomes 1.0 (spec §4.7d).
func normalizeScores(candidates []Candidate, get func(Candidate) float64, set func(*Candidate, float64)) {
	if len(candidates) == 0 {
		return
	}
	min, max := get(candidates[0]), get(candidates[0])
	for _, c := range candidates[1:] {
		v := get(c)
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	for i := range candidates {
		v := get(candidates[i])
		if max == min {
			set(&candidates[i], 1.0)
			continue
		}
		set(&candidates[i], (v-min)/(max-min))
	}
}

// fuseMinMax combines two already-normalized candidate lists keyed by
// chunk_id (spec §4.7e). A chunk present in only one list gets 0 for the
// missing sub-score.
func fuseMinMax(dense, sparse []Candidate, vectorWeight, keywordWeight float64) []Candidate {
	byChunk := make(map[string]*Candidate, len(dense)+len(sparse))
	order := make([]string, 0, len(dense)+len(sparse))

	for _, c := range dense {
		cc := c
		cc.VectorScore = c.Score
		byChunk[c.ChunkID] = &cc
		order = append(order, c.ChunkID)
	}
	for _, c := range sparse {
		if existing, ok := byChunk[c.ChunkID]; ok {
			existing.KeywordScore = c.Score
			if existing.Text == "" {
				existing.Text = c.Text
			}
			continue
		}
		cc := c
		cc.KeywordScore = c.Score
		byChunk[c.ChunkID] = &cc
		order = append(order, c.ChunkID)
	}

	out := make([]Candidate, 0, len(byChunk))
	seen := make(map[string]bool, len(order))
	for _, chunkID := range order {
		if seen[chunkID] {
			continue
		}
		seen[chunkID] = true
		c := byChunk[chunkID]
		c.Score = vectorWeight*c.VectorScore + keywordWeight*c.KeywordScore
		out = append(out, *c)
	}
	return out
}

// fuseRRF combines two ranked (not necessarily normalized) lists with
// reciprocal rank fusion: score = sum(1 / (k + rank)) across lists a
// chunk appears in, rank is 1-based. This is the alternate fusion mode
// exposed behind fusion_mode=rrf (see SPEC_FULL.md's Open Questions).
func fuseRRF(dense, sparse []Candidate, rrfConstant int) []Candidate {
	if rrfConstant <= 0 {
		rrfConstant = 60
	}

	byChunk := make(map[string]*Candidate, len(dense)+len(sparse))
	order := make([]string, 0, len(dense)+len(sparse))

	rank := func(list []Candidate, isDense bool) {
		for i, c := range list {
			contribution := 1.0 / float64(rrfConstant+i+1)
			existing, ok := byChunk[c.ChunkID]
			if !ok {
				cc := c
				cc.Score = 0
				byChunk[c.ChunkID] = &cc
				order = append(order, c.ChunkID)
				existing = byChunk[c.ChunkID]
			}
			existing.Score += contribution
			if isDense {
				existing.VectorScore = c.Score
			} else {
				existing.KeywordScore = c.Score
				if existing.Text == "" {
					existing.Text = c.Text
				}
			}
		}
	}
	rank(dense, true)
	rank(sparse, false)

	out := make([]Candidate, 0, len(byChunk))
	seen := make(map[string]bool, len(order))
	for _, chunkID := range order {
		if seen[chunkID] {
			continue
		}
		seen[chunkID] = true
		out = append(out, *byChunk[chunkID])
	}
	return out
}

// ageMultiplier implements the stepped recency function of spec §4.7f.
// hasYear=false (missing year) behaves the same as age>=5.
func ageMultiplier(currentYear, docYear int, hasYear bool) float64 {
	if !hasYear {
		return 0.85
	}
	age := currentYear - docYear
	switch {
	case age < 0:
		return 1.00 // future year
	case age == 0:
		return 1.00
	case age == 1:
		return 0.95
	case age == 2:
		return 0.90
	case age == 3, age == 4:
		return 0.88
	default:
		return 0.85
	}
}

// applyRecencyDecay multiplies each candidate's score by
// 1 + recencyWeight*(ageMultiplier-1), preserving the pre-decay score in
// OriginalScore. A recencyWeight of 0 is a no-op.
func applyRecencyDecay(candidates []Candidate, currentYear int, recencyWeight float64) {
	if recencyWeight <= 0 {
		return
	}
	for i := range candidates {
		c := &candidates[i]
		c.OriginalScore = c.Score
		mult := ageMultiplier(currentYear, c.Year, c.Year != 0)
		c.Score = c.Score * (1 + recencyWeight*(mult-1))
	}
}

// diversify greedily accepts candidates sorted by score desc, keeping at
// most maxPerDoc per doc_id (spec §4.7g).
func diversify(candidates []Candidate, maxPerDoc int) []Candidate {
	if maxPerDoc <= 0 {
		maxPerDoc = 3
	}
	sortCandidates(candidates)

	counts := make(map[string]int)
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if counts[c.DocID] >= maxPerDoc {
			continue
		}
		counts[c.DocID]++
		out = append(out, c)
	}
	return out
}

// sortCandidates orders by score desc, ties broken by (doc_id asc,
// chunk_index asc) for a deterministic total order (spec §4.7, §8).
func sortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].DocID != candidates[j].DocID {
			return candidates[i].DocID < candidates[j].DocID
		}
		return candidates[i].ChunkIndex < candidates[j].ChunkIndex
	})
}
