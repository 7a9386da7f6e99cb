// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package reduce

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func allPresent(n int) []bool {
	present := make([]bool, n)
	for i := range present {
		present[i] = true
	}
	return present
}

func TestSumProductMean(t *testing.T) {
	values := []float64{1, 2, 3, 4}
	present := allPresent(len(values))
	v, ok := Sum(values, present)
	assert.True(t, ok)
	assert.Equal(t, 10.0, v)
	v, ok = Product(values, present)
	assert.True(t, ok)
	assert.Equal(t, 24.0, v)
	v, ok = Mean(values, present)
	assert.True(t, ok)
	assert.Equal(t, 2.5, v)
}

func TestMinMax(t *testing.T) {
	values := []float64{3, 1, 4, 1, 5}
	present := allPresent(len(values))
	v, ok := Min(values, present)
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)
	v, ok = Max(values, present)
	assert.True(t, ok)
	assert.Equal(t, 5.0, v)
}

func TestNaNAbsorbingReducers(t *testing.T) {
	values := []float64{1, math.NaN(), 3}
	present := allPresent(len(values))
	v, _ := Sum(values, present)
	assert.True(t, math.IsNaN(v))
	v, _ = Product(values, present)
	assert.True(t, math.IsNaN(v))
	v, _ = Mean(values, present)
	assert.True(t, math.IsNaN(v))
	v, _ = Min(values, present)
	assert.True(t, math.IsNaN(v))
	v, _ = Max(values, present)
	assert.True(t, math.IsNaN(v))
	v, _ = Variance(values, present)
	assert.True(t, math.IsNaN(v))
	v, _ = Entropy(values, present)
	assert.True(t, math.IsNaN(v))
	v, _ = Median(values, present)
	assert.True(t, math.IsNaN(v))
}

func TestVarianceAndStdDev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	present := allPresent(len(values))
	v, ok := Variance(values, present)
	assert.True(t, ok)
	assert.InDelta(t, 4.0, v, 1e-9)
	v, ok = StdDev(values, present)
	assert.True(t, ok)
	assert.InDelta(t, 2.0, v, 1e-9)
}

func TestEntropy(t *testing.T) {
	v, ok := Entropy([]float64{0, 0, 0}, allPresent(3))
	assert.True(t, ok)
	assert.Equal(t, 0.0, v)
	// All positive, same as all absent: Bernoulli entropy maps both edges
	// of p to 0.
	v, ok = Entropy([]float64{1, 1}, allPresent(2))
	assert.True(t, ok)
	assert.Equal(t, 0.0, v)
	// Mixed presence gives an interior p.
	v, ok = Entropy([]float64{1, 0}, allPresent(2))
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)
	v, _ = Entropy([]float64{-1, 1}, allPresent(2))
	assert.True(t, math.IsNaN(v))
}

func TestMedian(t *testing.T) {
	v, ok := Median([]float64{1, 3, 5}, allPresent(3))
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)
	// No averaging of the two middle elements for even-length input.
	v, ok = Median([]float64{1, 3, 5, 4}, allPresent(4))
	assert.True(t, ok)
	assert.Equal(t, 4.0, v)
}

func TestSelectSkipsAbsentSlot(t *testing.T) {
	values := []float64{10, 20, 30}
	v, ok := Select(1)(values, []bool{true, true, true})
	assert.True(t, ok)
	assert.Equal(t, 20.0, v)

	_, ok = Select(1)(values, []bool{true, false, true})
	assert.False(t, ok)

	_, ok = Select(5)(values, allPresent(3))
	assert.False(t, ok)
}

func TestFillIn(t *testing.T) {
	// Non-trim mode emits regardless of mask presence.
	fn := FillIn(false)
	v, ok := fn([]float64{0, 9}, []bool{false, false})
	assert.True(t, ok)
	assert.Equal(t, 9.0, v)

	// Trim mode skips spans outside the mask's support.
	fn = FillIn(true)
	_, ok = fn([]float64{0, 9}, []bool{false, true})
	assert.False(t, ok)
	v, ok = fn([]float64{1, 9}, []bool{true, true})
	assert.True(t, ok)
	assert.Equal(t, 9.0, v)
	// The data value itself is already the data track's default when
	// absent; FillIn only gates on slot 0.
	v, ok = fn([]float64{1, 0}, []bool{true, false})
	assert.True(t, ok)
	assert.Equal(t, 0.0, v)
}

func TestDefaultOf(t *testing.T) {
	assert.Equal(t, 3.0, DefaultOf(Sum, []float64{1, 2}))
	assert.True(t, math.IsNaN(DefaultOf(Sum, []float64{1, math.NaN()})))
}
