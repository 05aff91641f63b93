package search

import (
	"sort"

	"github.com/kailas-cloud/docdex/internal/domain/search/result"
)

// rrfK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const rrfK = 60

// fuseRRF merges the keyword and semantic branches via Reciprocal Rank Fusion.
// score(d) = sum of 1/(k + rank_i + 1) over each ranking where d appears, so a
// document found by both branches outranks one found by a single branch at the
// same position. Ties break on article ID for stable output.
func fuseRRF(keyword, semantic []result.Result, limit int) []result.Result {
	type scored struct {
		res   result.Result
		score float64
	}

	merged := make(map[string]*scored)

	for rank, r := range keyword {
		s := 1.0 / float64(rrfK+rank+1)
		merged[r.Article().ID()] = &scored{res: r, score: s}
	}

	for rank, r := range semantic {
		s := 1.0 / float64(rrfK+rank+1)
		if existing, ok := merged[r.Article().ID()]; ok {
			existing.score += s
		} else {
			merged[r.Article().ID()] = &scored{res: r, score: s}
		}
	}

	results := make([]result.Result, 0, len(merged))
	for _, s := range merged {
		results = append(results, s.res.WithScore(s.score))
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score() != results[j].Score() {
			return results[i].Score() > results[j].Score()
		}
		return results[i].Article().ID() < results[j].Article().ID()
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
