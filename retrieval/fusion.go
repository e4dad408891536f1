package retrieval

import (
	"sort"

	"github.com/seamark/answerd/core"
)

// rrfK is the standard reciprocal-rank-fusion dampening constant.
const rrfK = 60

// fuseRRF merges two ranked result lists with weighted reciprocal rank
// fusion. A document at 0-indexed rank r in a list with weight w contributes
// w * 1/(rrfK + r + 1) to its fused score; documents in both lists sum both
// contributions. The union is returned sorted by fused score descending.
// Ties keep first-seen order, vector list first.
func fuseRRF(vectorResults, keywordResults []core.Document, weights core.Weights) []core.Document {
	scores := make(map[string]float64, len(vectorResults)+len(keywordResults))
	docs := make(map[string]core.Document, len(vectorResults)+len(keywordResults))
	order := make([]string, 0, len(vectorResults)+len(keywordResults))

	add := func(doc core.Document, rank int, weight float64) {
		rrf := weight * (1.0 / float64(rrfK+rank+1))
		if _, seen := scores[doc.ID]; !seen {
			order = append(order, doc.ID)
		}
		scores[doc.ID] += rrf
		docs[doc.ID] = doc
	}

	for rank, doc := range vectorResults {
		add(doc, rank, weights.Semantic)
	}
	for rank, doc := range keywordResults {
		add(doc, rank, weights.Keyword)
	}

	fused := make([]core.Document, 0, len(order))
	for _, id := range order {
		doc := docs[id]
		doc.Score = scores[id]
		fused = append(fused, doc)
	}

	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].Score > fused[j].Score
	})

	return fused
}
