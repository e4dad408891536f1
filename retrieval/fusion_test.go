package retrieval

import (
	"testing"

	"github.com/seamark/answerd/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docs(ids ...string) []core.Document {
	out := make([]core.Document, len(ids))
	for i, id := range ids {
		out[i] = core.Document{ID: id, Title: "doc " + id}
	}
	return out
}

func TestFuseRRF_SingleListScores(t *testing.T) {
	weights := core.Weights{Semantic: 0.7, Keyword: 0.3}

	fused := fuseRRF(docs("a", "b", "c"), nil, weights)

	require.Len(t, fused, 3)
	// rank r contributes w * 1/(60 + r + 1)
	assert.InDelta(t, 0.7/61.0, fused[0].Score, 1e-12)
	assert.InDelta(t, 0.7/62.0, fused[1].Score, 1e-12)
	assert.InDelta(t, 0.7/63.0, fused[2].Score, 1e-12)
	assert.Equal(t, "a", fused[0].ID)
	assert.Equal(t, "b", fused[1].ID)
	assert.Equal(t, "c", fused[2].ID)
}

func TestFuseRRF_BothListsSumContributions(t *testing.T) {
	weights := core.Weights{Semantic: 0.6, Keyword: 0.4}

	// "shared" is rank 0 in vector and rank 1 in keyword
	fused := fuseRRF(docs("shared", "vecOnly"), docs("kwOnly", "shared"), weights)

	require.Len(t, fused, 3)
	assert.Equal(t, "shared", fused[0].ID)
	assert.InDelta(t, 0.6/61.0+0.4/62.0, fused[0].Score, 1e-12)
}

func TestFuseRRF_DocumentInBothListsOutranksSingles(t *testing.T) {
	weights := core.Weights{Semantic: 0.5, Keyword: 0.5}

	// "x" is last in both lists but still appears twice
	fused := fuseRRF(docs("a", "b", "x"), docs("c", "d", "x"), weights)

	assert.Equal(t, "x", fused[0].ID)
}

func TestFuseRRF_Deterministic(t *testing.T) {
	weights := core.Weights{Semantic: 0.5, Keyword: 0.5}
	vec := docs("a", "b", "c")
	kw := docs("d", "e", "f")

	first := fuseRRF(vec, kw, weights)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, fuseRRF(vec, kw, weights))
	}
}

func TestFuseRRF_StableTieBreak(t *testing.T) {
	// Equal weights and equal ranks: a (vector rank 0) ties d (keyword
	// rank 0). First-seen order puts the vector document first.
	weights := core.Weights{Semantic: 0.5, Keyword: 0.5}

	fused := fuseRRF(docs("a", "b"), docs("d", "e"), weights)

	require.Len(t, fused, 4)
	assert.Equal(t, "a", fused[0].ID)
	assert.Equal(t, "d", fused[1].ID)
	assert.Equal(t, "b", fused[2].ID)
	assert.Equal(t, "e", fused[3].ID)
}

func TestFuseRRF_OneEmptyList(t *testing.T) {
	weights := core.Weights{Semantic: 0.7, Keyword: 0.3}

	fromVector := fuseRRF(docs("a", "b"), nil, weights)
	assert.Len(t, fromVector, 2)

	fromKeyword := fuseRRF(nil, docs("c"), weights)
	require.Len(t, fromKeyword, 1)
	assert.InDelta(t, 0.3/61.0, fromKeyword[0].Score, 1e-12)
}

func TestFuseRRF_BothEmpty(t *testing.T) {
	fused := fuseRRF(nil, nil, core.DefaultWeights())
	assert.Empty(t, fused)
}

func TestFuseRRF_ZeroKeywordWeightPreservesVectorOrder(t *testing.T) {
	weights := core.Weights{Semantic: 1.0, Keyword: 0.0}

	fused := fuseRRF(docs("a", "b", "c"), docs("c", "b", "a"), weights)

	require.Len(t, fused, 3)
	assert.Equal(t, "a", fused[0].ID)
	assert.Equal(t, "b", fused[1].ID)
	assert.Equal(t, "c", fused[2].ID)
}
