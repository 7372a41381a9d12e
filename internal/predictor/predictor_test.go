package predictor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictLoadsLazily(t *testing.T) {
	p := NewPlaceholder("v1")
	assert.False(t, p.Loaded())

	out := p.Predict("a sample sentence to classify")
	assert.True(t, p.Loaded())
	assert.Contains(t, []string{CategoryA, CategoryB}, out)
}

func TestPredictAlwaysReturnsAKnownCategory(t *testing.T) {
	p := NewPlaceholder("v2")
	for _, text := range []string{"", "x", "a longer input with several words"} {
		out := p.Predict(text)
		assert.Contains(t, []string{CategoryA, CategoryB}, out, "input %q", text)
	}
}

func TestPlaceholderRegression(t *testing.T) {
	out, err := PlaceholderRegression()
	require.NoError(t, err)

	preds, ok := out.([]float64)
	require.True(t, ok)
	assert.Len(t, preds, 100)
}
