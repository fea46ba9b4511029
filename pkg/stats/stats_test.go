package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentile(t *testing.T) {
	sorted := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}

	assert.Equal(t, 0.0, Percentile(nil, 50))
	assert.Equal(t, 0.1, Percentile(sorted, 0))
	assert.Equal(t, 0.5, Percentile(sorted, 50))
	assert.Equal(t, 1.0, Percentile(sorted, 95))
	assert.Equal(t, 1.0, Percentile(sorted, 100))
	assert.Equal(t, 1.0, Percentile(sorted, 150), "p is clamped to 100")
}

func TestSummarize(t *testing.T) {
	values := []float64{1.0, 0.0, 0.5, 0.5}
	d := Summarize(values)

	assert.Equal(t, 4, d.Count)
	assert.InDelta(t, 0.5, d.Mean, 1e-9)
	assert.Equal(t, 0.5, d.Median)
	assert.Equal(t, 1.0, d.P95)
	assert.Equal(t, 1.0, d.Max)
	assert.Equal(t, []float64{1.0, 0.0, 0.5, 0.5}, values, "input must not be reordered")

	assert.Equal(t, Distribution{}, Summarize(nil))
}
