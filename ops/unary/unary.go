// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package unary implements the single-track transforms of SPEC_FULL.md
// §4.4, grounded on the original engine's wiggleUnaryOps.c/unaryOps.c:
// pointwise value maps (scale, shift, abs, floor, log/exp/pow, unit,
// isZero, highPass), geometry-changing rewrites (extend, shiftPos, bin,
// smooth), and run-collapsing rewrites (compress, union, coverage).
//
// Every operator here is a thin iterator.Iterator wrapper, the same
// pattern encoding/bamprovider.NewRefIterator uses to wrap a Provider's
// record iterator in a position filter: most of the Iterator contract is
// simply delegated to the wrapped source, and only the handful of
// methods the operator actually changes are overridden.
package unary

import (
	"math"

	"github.com/grailbio/wiggletools/iterator"
)

// pointwise applies fn to every interval's value, leaving geometry,
// chromosome, and strand untouched. NaN absorption (fn is never called on
// a NaN value; NaN is propagated directly) is the caller's job via
// mapFn below, matching iterator.AbsorbNaN's engine-wide rule.
type pointwise struct {
	src iterator.Iterator
	fn  func(v float64) float64
}

func mapFn(f func(float64) float64) func(float64) float64 {
	return func(v float64) float64 {
		if math.IsNaN(v) {
			return v
		}
		return f(v)
	}
}

func (p *pointwise) Chrom() string              { return p.src.Chrom() }
func (p *pointwise) Start() iterator.Pos        { return p.src.Start() }
func (p *pointwise) Finish() iterator.Pos       { return p.src.Finish() }
func (p *pointwise) Value() float64             { return p.fn(p.src.Value()) }
func (p *pointwise) StrandOf() iterator.Strand  { return p.src.StrandOf() }
func (p *pointwise) Done() bool                 { return p.src.Done() }
func (p *pointwise) Err() error                 { return p.src.Err() }
func (p *pointwise) Pop()                       { p.src.Pop() }
func (p *pointwise) Seek(c string, s, f iterator.Pos) { p.src.Seek(c, s, f) }
func (p *pointwise) Default() float64           { return p.fn(p.src.Default()) }
func (p *pointwise) Overlaps() bool             { return p.src.Overlaps() }
func (p *pointwise) Close() error               { return p.src.Close() }

func newPointwise(src iterator.Iterator, f func(float64) float64) iterator.Iterator {
	return &pointwise{src: src, fn: mapFn(f)}
}

// Scale multiplies every value by factor.
func Scale(src iterator.Iterator, factor float64) iterator.Iterator {
	return newPointwise(src, func(v float64) float64 { return v * factor })
}

// Shift adds delta to every value.
func Shift(src iterator.Iterator, delta float64) iterator.Iterator {
	return newPointwise(src, func(v float64) float64 { return v + delta })
}

// Abs takes the absolute value.
func Abs(src iterator.Iterator) iterator.Iterator {
	return newPointwise(src, math.Abs)
}

// Floor rounds down to the nearest integer, preserving float64 storage.
func Floor(src iterator.Iterator) iterator.Iterator {
	return newPointwise(src, math.Floor)
}

// ToInt truncates toward zero.
func ToInt(src iterator.Iterator) iterator.Iterator {
	return newPointwise(src, math.Trunc)
}

// Ln takes the natural logarithm.
func Ln(src iterator.Iterator) iterator.Iterator {
	return newPointwise(src, math.Log)
}

// LogBase takes the logarithm in the given base.
func LogBase(src iterator.Iterator, base float64) iterator.Iterator {
	divisor := math.Log(base)
	return newPointwise(src, func(v float64) float64 { return math.Log(v) / divisor })
}

// ExpBase raises base to the power of every value.
func ExpBase(src iterator.Iterator, base float64) iterator.Iterator {
	return newPointwise(src, func(v float64) float64 { return math.Pow(base, v) })
}

// Pow raises every value to the given exponent.
func Pow(src iterator.Iterator, exponent float64) iterator.Iterator {
	return newPointwise(src, func(v float64) float64 { return math.Pow(v, exponent) })
}

// Unit reports 1 wherever src reports a non-missing value, and leaves
// missing (NaN) values missing -- i.e. "where is this track defined".
func Unit(src iterator.Iterator) iterator.Iterator {
	return newPointwise(src, func(float64) float64 { return 1 })
}

// IsZero reports 1 where the value is exactly zero, 0 otherwise.
func IsZero(src iterator.Iterator) iterator.Iterator {
	return newPointwise(src, func(v float64) float64 {
		if v == 0 {
			return 1
		}
		return 0
	})
}

// HighPass replaces any value below threshold with src's default value
// (typically NaN), passing values at or above threshold through
// unchanged.
func HighPass(src iterator.Iterator, threshold float64) iterator.Iterator {
	def := src.Default()
	return newPointwise(src, func(v float64) float64 {
		if v < threshold {
			return def
		}
		return v
	})
}

// DefaultValue replaces NaN with the given fill value; unlike the other
// pointwise operators it does not preserve NaN (that is its entire
// purpose), so it is implemented directly rather than via mapFn.
func DefaultValue(src iterator.Iterator, fill float64) iterator.Iterator {
	p := &pointwise{src: src, fn: func(v float64) float64 {
		if math.IsNaN(v) {
			return fill
		}
		return v
	}}
	return p
}
