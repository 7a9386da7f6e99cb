// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package iterator defines the piecewise-constant interval stream
// abstraction shared by every leaf reader and operator in wiggletools: the
// Interval record, the pull-based Iterator contract, and the small set of
// helpers (Base, Defaulted, NaN-absorbing arithmetic) that every operator
// in ops/... builds on.
package iterator

import (
	"math"

	"github.com/grailbio/base/errors"
)

// Pos is the genomic coordinate type. Coordinates are 1-based and
// half-open: an Interval covers [Start, Finish).
type Pos int64

// Strand records the orientation a source interval carries, when it
// carries one at all. Operators that do not know how to propagate strand
// information emit StrandNone.
type Strand int8

const (
	StrandNone Strand = 0
	StrandFwd  Strand = 1
	StrandRev  Strand = -1
)

// Interval is one reported record of a stream: a half-open span on a
// chromosome and the value that covers it.
type Interval struct {
	Chrom  string
	Start  Pos
	Finish Pos
	Value  float64
	Strand Strand
}

// Len returns the number of bases the interval covers.
func (iv Interval) Len() Pos { return iv.Finish - iv.Start }

// Overlaps reports whether iv and other intersect on the same chromosome.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Chrom == other.Chrom && iv.Start < other.Finish && other.Start < iv.Finish
}

// Iterator is the pull protocol every leaf reader and operator implements.
// A newly-constructed Iterator is already positioned at its first
// interval (or Done, if the stream is empty) -- construction itself does
// the first read. Pop advances to the next interval.
//
// Strings returned by Chrom are borrowed: they are valid until the next
// Pop of the same Iterator. A Go string is immutable, so this is satisfied
// automatically so long as readers copy out of mutable scan buffers on
// chromosome change (see readers/step and readers/bed).
type Iterator interface {
	// Chrom, Start, Finish, Value and StrandOf describe the current
	// interval. They must not be called after Done returns true.
	Chrom() string
	Start() Pos
	Finish() Pos
	Value() float64
	StrandOf() Strand

	// Done reports whether the stream is exhausted.
	Done() bool

	// Err returns the first error encountered while producing the
	// stream, or nil. Once Err returns non-nil, Done is true and Pop is
	// a no-op.
	Err() error

	// Pop advances to the next interval. If none remains, Done becomes
	// true.
	Pop()

	// Seek repositions the stream so that the next interval satisfies
	// chrom == target chromosome and Finish > start (the first interval
	// that overlaps the query), clipping the first and last overlapping
	// intervals to [start, finish). If no overlapping interval exists,
	// the Iterator becomes Done. Composite iterators that cannot support
	// random access record a "seek unsupported" error via Err and become
	// Done; callers must route seeks to leaves, per the command grammar.
	Seek(chrom string, start, finish Pos)

	// Default is the value implicitly covering gaps between reported
	// intervals. It may be NaN.
	Default() float64

	// Overlaps reports whether this stream may contain overlapping
	// intervals. Any computation that assumes non-overlap must pass such
	// a stream through ops/unary.Union first.
	Overlaps() bool

	// Close releases any owned upstream iterators, queues, or threads.
	Close() error
}

// ErrSeekUnsupported is recorded by composite iterators whose Seek is
// called; it indicates the parser routed a seek to a node that cannot
// support random access.
var ErrSeekUnsupported = errors.New("iterator: seek not supported on this composite stream")

// Base is an embeddable cursor that most Iterator implementations build
// on: it holds the current record, the done/err state, and the
// default_value/overlaps flags propagated by the operator that built it.
// A concrete type embeds Base and implements its own Pop/Seek by calling
// Base.Set/Base.MarkDone.
type Base struct {
	chrom        string
	start        Pos
	finish       Pos
	value        float64
	strand       Strand
	done         bool
	err          error
	defaultValue float64
	overlaps     bool
}

// NewBase returns a Base with the given default value and overlaps flag.
// The caller must call Set or MarkDone before the first Pop to establish
// the initial position, per the "construction reads ahead" contract.
func NewBase(defaultValue float64, overlaps bool) Base {
	return Base{defaultValue: defaultValue, overlaps: overlaps}
}

func (b *Base) Chrom() string    { return b.chrom }
func (b *Base) Start() Pos       { return b.start }
func (b *Base) Finish() Pos      { return b.finish }
func (b *Base) Value() float64   { return b.value }
func (b *Base) StrandOf() Strand { return b.strand }
func (b *Base) Done() bool       { return b.done }
func (b *Base) Err() error       { return b.err }
func (b *Base) Default() float64 { return b.defaultValue }
func (b *Base) Overlaps() bool   { return b.overlaps }

// SetDefault overrides the default value an operator propagates; many
// unary operators derive their own default from the upstream's.
func (b *Base) SetDefault(v float64) { b.defaultValue = v }

// SetOverlaps overrides the overlaps flag.
func (b *Base) SetOverlaps(v bool) { b.overlaps = v }

// Set records a new current interval.
func (b *Base) Set(chrom string, start, finish Pos, value float64, strand Strand) {
	b.chrom, b.start, b.finish, b.value, b.strand = chrom, start, finish, value, strand
}

// MarkDone marks the stream exhausted.
func (b *Base) MarkDone() { b.done = true }

// Fail records a terminal error and marks the stream done.
func (b *Base) Fail(err error) {
	if b.err == nil {
		b.err = err
	}
	b.done = true
}

// CollectAll drains it, returning every interval in order. Intended for
// tests and small diagnostic tools; production code should never buffer
// an entire stream.
func CollectAll(it Iterator) ([]Interval, error) {
	var out []Interval
	for !it.Done() {
		out = append(out, Interval{it.Chrom(), it.Start(), it.Finish(), it.Value(), it.StrandOf()})
		it.Pop()
	}
	return out, it.Err()
}

// AbsorbNaN implements the engine-wide rule that arithmetic operators
// propagate NaN: if either operand is NaN the result is NaN, otherwise f
// is applied.
func AbsorbNaN(a, b float64, f func(a, b float64) float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	return f(a, b)
}
