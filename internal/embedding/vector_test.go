package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeParseRoundTrip(t *testing.T) {
	cases := [][]float32{
		{1, 2, 3},
		{-0.5, 0, 0.5},
		{0.123456, -9.875, 1e-7},
		{},
	}
	for _, v := range cases {
		encoded := EncodeVector(v)
		parsed, err := ParseVector(encoded)
		require.NoError(t, err, "literal %q", encoded)
		assert.Equal(t, v, parsed, "literal %q", encoded)
	}
}

func TestEncodeVectorSyntax(t *testing.T) {
	assert.Equal(t, "[1,-2.5,0]", EncodeVector([]float32{1, -2.5, 0}))
	assert.Equal(t, "[]", EncodeVector(nil))
}

func TestParseVectorMalformed(t *testing.T) {
	for _, s := range []string{"", "1,2,3", "[1,2", "1,2]", "[a,b]", "[1;2]"} {
		_, err := ParseVector(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestParseVectorWhitespace(t *testing.T) {
	v, err := ParseVector("  [ 1 , 2.5 , -3 ]  ")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2.5, -3}, v)
}

func TestCosineSimilarity(t *testing.T) {
	sim, err := CosineSimilarity([]float32{1, 0}, []float32{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-9)

	sim, err = CosineSimilarity([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sim, 1e-9)

	sim, err = CosineSimilarity([]float32{1, 0}, []float32{-1, 0})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, sim, 1e-9)
}

func TestCosineSimilarityZeroVector(t *testing.T) {
	sim, err := CosineSimilarity([]float32{0, 0}, []float32{1, 2})
	require.NoError(t, err)
	assert.Zero(t, sim)
}

func TestCosineSimilarityDimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
