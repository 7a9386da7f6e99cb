// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package reduce implements the per-span value-vector reducers of
// SPEC_FULL.md §4.8 (wiggleReducers.c/reducers.c): the functions
// ops/multiplex and ops/multiset apply to a Row's Values/Present slices
// to collapse N input tracks down to one. Most reducers follow the same
// NaN-absorbing rule iterator.AbsorbNaN documents for binary arithmetic:
// any NaN among the inputs makes the reduced value NaN. Select and FillIn
// are the deliberate exceptions that exist precisely to route around
// missing data, which is why Func is handed presence alongside values.
package reduce

import (
	"math"
	"sort"
)

// Func collapses a value vector (one value per input track) to one
// float64. present[i] is false where values[i] is that input's Default()
// rather than a live reading, per multiplex.Row. ok reports whether this
// span should be emitted at all; a reducer returns ok=false to signal
// that the caller should skip the span entirely instead of reporting a
// value for it (Select on an absent slot, or FillIn trimmed against an
// absent mask).
type Func func(values []float64, present []bool) (value float64, ok bool)

func anyNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// Sum adds every value.
func Sum(values []float64, present []bool) (float64, bool) {
	if anyNaN(values) {
		return math.NaN(), true
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total, true
}

// Product multiplies every value.
func Product(values []float64, present []bool) (float64, bool) {
	if anyNaN(values) {
		return math.NaN(), true
	}
	total := 1.0
	for _, v := range values {
		total *= v
	}
	return total, true
}

// Mean reports the arithmetic mean.
func Mean(values []float64, present []bool) (float64, bool) {
	if len(values) == 0 || anyNaN(values) {
		return math.NaN(), true
	}
	sum, _ := Sum(values, present)
	return sum / float64(len(values)), true
}

// Min reports the smallest value.
func Min(values []float64, present []bool) (float64, bool) {
	if len(values) == 0 || anyNaN(values) {
		return math.NaN(), true
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m, true
}

// Max reports the largest value.
func Max(values []float64, present []bool) (float64, bool) {
	if len(values) == 0 || anyNaN(values) {
		return math.NaN(), true
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m, true
}

// variance computes the population variance of values via Welford's
// online algorithm (ops/integrate's Stats.Variance, §4.9, instead divides
// by N-1 for sample variance).
func variance(values []float64) float64 {
	if anyNaN(values) || len(values) == 0 {
		return math.NaN()
	}
	mean, m2 := 0.0, 0.0
	for i, v := range values {
		delta := v - mean
		mean += delta / float64(i+1)
		m2 += delta * (v - mean)
	}
	return m2 / float64(len(values))
}

// Variance reports the population variance of values.
func Variance(values []float64, present []bool) (float64, bool) {
	return variance(values), true
}

// StdDev reports the population standard deviation.
func StdDev(values []float64, present []bool) (float64, bool) {
	return math.Sqrt(variance(values)), true
}

// CV reports the coefficient of variation (StdDev / Mean).
func CV(values []float64, present []bool) (float64, bool) {
	mean, _ := Mean(values, present)
	return math.Sqrt(variance(values)) / mean, true
}

// Entropy reports the Shannon entropy (base 2) of values treated as
// Bernoulli present(>0)/absent(=0) indicators: p is the fraction of
// positive values, H = -p*log2(p) - (1-p)*log2(1-p), with p at either
// edge (all-zero or all-positive) mapping to 0.
func Entropy(values []float64, present []bool) (float64, bool) {
	if anyNaN(values) || len(values) == 0 {
		return math.NaN(), true
	}
	positives := 0
	for _, v := range values {
		if v < 0 {
			return math.NaN(), true
		}
		if v > 0 {
			positives++
		}
	}
	p := float64(positives) / float64(len(values))
	if p == 0 || p == 1 {
		return 0, true
	}
	h := -p*math.Log2(p) - (1-p)*math.Log2(1-p)
	return h, true
}

// Median numerically sorts a copy of values and reports the element at
// index len/2 -- no averaging of the two middle elements for even len.
func Median(values []float64, present []bool) (float64, bool) {
	if anyNaN(values) || len(values) == 0 {
		return math.NaN(), true
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return sorted[len(sorted)/2], true
}

// Select returns a reducer that passes through the value of a single,
// fixed input track by index, skipping (ok=false) any span where that
// track is not currently in play -- the degenerate "reduction" a
// multiset grammar uses to pick one named set out of several without
// combining them.
func Select(index int) Func {
	return func(values []float64, present []bool) (float64, bool) {
		if index < 0 || index >= len(values) || !present[index] {
			return math.NaN(), false
		}
		return values[index], true
	}
}

// FillIn returns the fill-in reducer: a specialized 2-input reducer
// where slot 0 is a region mask and slot 1 is the data to patch gaps in.
// It reports the data slot's value (already the data track's own
// default where that track is absent, per multiplex.Row); in trim mode
// it additionally skips (ok=false) any span outside the mask's support,
// i.e. where slot 0 is absent.
func FillIn(trim bool) Func {
	return func(values []float64, present []bool) (float64, bool) {
		if trim && !present[0] {
			return math.NaN(), false
		}
		return values[1], true
	}
}

// DefaultOf reports the value fn reports when every input is at its own
// default and none is in play -- the default_value every reducer
// exposes per §4.8, computed from its inputs' defaults via the same
// rule it applies to live values.
func DefaultOf(fn Func, defaults []float64) float64 {
	present := make([]bool, len(defaults))
	v, _ := fn(defaults, present)
	return v
}
