package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLagWindow_PushEvictsOldest(t *testing.T) {
	w := NewLagWindow(3, nil)
	assert.False(t, w.Full())

	for _, v := range []float64{1, 2, 3} {
		_, evicted := w.Push(v)
		assert.False(t, evicted)
	}
	assert.True(t, w.Full())
	assert.Equal(t, []float64{1, 2, 3}, w.Values())

	old, evicted := w.Push(4)
	assert.True(t, evicted)
	assert.Equal(t, 1.0, old)
	assert.Equal(t, []float64{2, 3, 4}, w.Values())
	assert.Equal(t, 3, w.Len())
}

func TestLagWindow_SeedKeepsTrailingValues(t *testing.T) {
	w := NewLagWindow(7, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9})
	assert.Equal(t, []float64{3, 4, 5, 6, 7, 8, 9}, w.Values())
	assert.Equal(t, 7, w.Size())
}

func TestLagWindow_ValuesIsACopy(t *testing.T) {
	w := NewLagWindow(2, []float64{1, 2})
	v := w.Values()
	v[0] = 100
	assert.Equal(t, []float64{1, 2}, w.Values())
}
