// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package integrate implements the terminal, whole-track statistics of
// SPEC_FULL.md §4.9 (wiggleStatistics.c/statistics.c): AUC, span, mean,
// max, min, variance, standard deviation, coefficient of variation, and
// energy, plus the two-track Pearson correlation. Each is computed by a
// single streaming pass so the full track is never buffered: Stats keeps
// width-weighted running sums of values and squared values (not a
// Welford/Chan update), and PearsonAccumulator uses a weighted
// Welford-style update.
package integrate

import (
	"math"

	"github.com/grailbio/wiggletools/iterator"
)

// Stats accumulates, in one streaming pass, every statistic §4.9 defines
// over a single track. Missing (NaN) spans do not contribute to span,
// sum, or the moments, matching the original engine's treatment of
// missing data as "not part of the domain" rather than as zero.
type Stats struct {
	span   iterator.Pos
	sum    float64
	sumSq  float64
	min    float64
	max    float64
	n      int64 // number of bases contributing (weighted count)
	haveMM bool
}

// NewStats returns a zeroed accumulator.
func NewStats() *Stats {
	return &Stats{min: math.Inf(1), max: math.Inf(-1)}
}

// Add folds one interval's contribution into the accumulator, weighting
// by its width (AUC-style area, not a simple per-record average).
func (s *Stats) Add(iv iterator.Interval) {
	if math.IsNaN(iv.Value) {
		return
	}
	width := float64(iv.Len())
	if width <= 0 {
		return
	}
	s.span += iv.Len()
	s.sum += width * iv.Value
	s.sumSq += width * iv.Value * iv.Value
	s.n += int64(iv.Len())
	if !s.haveMM || iv.Value < s.min {
		s.min = iv.Value
	}
	if !s.haveMM || iv.Value > s.max {
		s.max = iv.Value
	}
	s.haveMM = true
}

// AUC reports the area under the curve: sum of value*width.
func (s *Stats) AUC() float64 { return s.sum }

// Span reports the total number of covered (non-missing) bases.
func (s *Stats) Span() iterator.Pos { return s.span }

// Mean reports the AUC-weighted mean value over the covered span.
func (s *Stats) Mean() float64 {
	if s.n == 0 {
		return math.NaN()
	}
	return s.sum / float64(s.n)
}

// Min reports the smallest value seen.
func (s *Stats) Min() float64 {
	if !s.haveMM {
		return math.NaN()
	}
	return s.min
}

// Max reports the largest value seen.
func (s *Stats) Max() float64 {
	if !s.haveMM {
		return math.NaN()
	}
	return s.max
}

// Variance reports the width-weighted sample variance, dividing by the
// number of covered bases minus one; NaN below two bases.
func (s *Stats) Variance() float64 {
	if s.n < 2 {
		return math.NaN()
	}
	mean := s.Mean()
	v := (s.sumSq - float64(s.n)*mean*mean) / float64(s.n-1)
	if v < 0 {
		v = 0 // guard against floating-point cancellation
	}
	return v
}

// StdDev reports the width-weighted sample standard deviation.
func (s *Stats) StdDev() float64 { return math.Sqrt(s.Variance()) }

// CV reports the coefficient of variation.
func (s *Stats) CV() float64 { return s.StdDev() / s.Mean() }

// Energy reports sum of value^2 * width -- the "energy" statistic
// wiggleStatistics.c reports alongside AUC.
func (s *Stats) Energy() float64 { return s.sumSq }

// Compute drains it, returning a fully-populated Stats.
func Compute(it iterator.Iterator) (*Stats, error) {
	s := NewStats()
	for !it.Done() {
		s.Add(iterator.Interval{Chrom: it.Chrom(), Start: it.Start(), Finish: it.Finish(), Value: it.Value()})
		it.Pop()
	}
	return s, it.Err()
}

// PearsonAccumulator computes the online Pearson correlation coefficient
// between two co-iterated tracks, using West's weighted generalization
// of Welford's online update to accumulate weighted covariance and
// variances in a single pass.
type PearsonAccumulator struct {
	totalWeight  float64
	meanX, meanY float64
	m2x, m2y, cXY float64
}

// NewPearsonAccumulator returns a zeroed accumulator.
func NewPearsonAccumulator() *PearsonAccumulator { return &PearsonAccumulator{} }

// Add folds in one weighted (x,y) sample -- weight is the co-iterated
// span's width in bases, matching §4.9's length-weighted treatment of
// piecewise-constant tracks.
func (p *PearsonAccumulator) Add(x, y float64, weight iterator.Pos) {
	if math.IsNaN(x) || math.IsNaN(y) || weight <= 0 {
		return
	}
	w := float64(weight)
	totalW := p.totalWeight + w
	dx := x - p.meanX
	dy := y - p.meanY
	p.meanX += dx * w / totalW
	p.meanY += dy * w / totalW
	p.m2x += p.totalWeight * w * dx * dx / totalW
	p.m2y += p.totalWeight * w * dy * dy / totalW
	p.cXY += p.totalWeight * w * dx * dy / totalW
	p.totalWeight = totalW
}

// Correlation reports the Pearson correlation coefficient accumulated so
// far.
func (p *PearsonAccumulator) Correlation() float64 {
	if p.m2x <= 0 || p.m2y <= 0 {
		return math.NaN()
	}
	return p.cXY / math.Sqrt(p.m2x*p.m2y)
}
