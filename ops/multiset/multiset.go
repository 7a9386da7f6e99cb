// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package multiset implements the merge-of-merges of SPEC_FULL.md §4.7:
// wiggletools' multiSet.c groups input tracks into named sets, runs a
// multiplex.Multiplexer within each set, then reduces each set's row down
// to one value before handing the resulting per-set value vector to a
// second-stage reducer (e.g. "mean of the per-sample means").
package multiset

import (
	"github.com/grailbio/wiggletools/iterator"
	"github.com/grailbio/wiggletools/ops/multiplex"
	"github.com/grailbio/wiggletools/ops/reduce"
)

// Reduce collapses one Row's value vector to a single float64 (e.g.
// ops/reduce.Sum, ops/reduce.Mean). It is an alias for reduce.Func so a
// Set's and a Multiset's reducers can be any of ops/reduce's functions
// directly.
type Reduce = reduce.Func

// Set is one named group of sources, reduced independently before being
// combined with the other sets. Strict restricts the set's own inner
// merge to spans where every one of its Sources is in play (§4.6 step
// 6); it has no bearing on the outer merge across sets.
type Set struct {
	Name    string
	Sources []iterator.Iterator
	Reduce  Reduce
	Strict  bool
}

// Multiset merges N Sets: within each set, a multiplex.Multiplexer
// reduces the set's sources to one value per span; across sets, a
// second-stage positional merge combines those per-set values with the
// outer Reduce function. In strict mode, the outer merge skips any span
// where not every set is currently in play, and the outer Reduce may
// independently skip a span by returning ok=false (e.g. Select on an
// absent set).
type Multiset struct {
	iterator.Base

	names      []string
	inner      []*multiplex.Multiplexer
	setReduce  []Reduce
	setDefault []float64
	reduce     Reduce
	strict     bool

	chrom string
	pos   iterator.Pos
	keep  bool
}

// New groups sets and returns a Multiset producing one reduced value per
// maximal span where every set's active composition is constant.
func New(sets []Set, outer Reduce, strict bool) *Multiset {
	ms := &Multiset{reduce: outer, strict: strict}
	for _, s := range sets {
		ms.names = append(ms.names, s.Name)
		ms.inner = append(ms.inner, multiplex.New(s.Sources, s.Strict))
		ms.setReduce = append(ms.setReduce, s.Reduce)

		defaults := make([]float64, len(s.Sources))
		for i, src := range s.Sources {
			defaults[i] = src.Default()
		}
		ms.setDefault = append(ms.setDefault, reduce.DefaultOf(s.Reduce, defaults))
	}
	ms.Base = iterator.NewBase(reduce.DefaultOf(outer, ms.setDefault), false)
	ms.advance()
	return ms
}

// advance computes the next span to report, skipping (per strict mode
// or the outer Reduce's own ok result) any span advanceOnce produced
// that should not be emitted.
func (ms *Multiset) advance() {
	for ms.advanceOnce() {
		if ms.keep {
			return
		}
	}
}

func allTrue(present []bool) bool {
	for _, p := range present {
		if !p {
			return false
		}
	}
	return true
}

// advanceOnce computes the single next span into ms's Base, or marks the
// Multiset Done/errored. It returns false if no span was produced.
func (ms *Multiset) advanceOnce() bool {
	// Drop rows the previous span used up before choosing the next
	// chromosome, so a finished row cannot hold the merge on its old one.
	for _, mux := range ms.inner {
		for !mux.Done() && mux.CurrentRow().Chrom == ms.chrom && mux.CurrentRow().Finish <= ms.pos {
			mux.Pop()
		}
	}
	for _, mux := range ms.inner {
		if err := mux.Err(); err != nil {
			ms.Fail(err)
			return false
		}
	}
	chrom, have := "", false
	for _, mux := range ms.inner {
		if mux.Done() {
			continue
		}
		c := mux.CurrentRow().Chrom
		if !have || c < chrom {
			chrom, have = c, true
		}
	}
	if !have {
		ms.MarkDone()
		return false
	}
	if chrom != ms.chrom {
		ms.chrom = chrom
		ms.pos = 0
		any := false
		for _, mux := range ms.inner {
			if mux.Done() || mux.CurrentRow().Chrom != chrom {
				continue
			}
			if !any || mux.CurrentRow().Start < ms.pos {
				ms.pos, any = mux.CurrentRow().Start, true
			}
		}
	}
	for _, mux := range ms.inner {
		for !mux.Done() && mux.CurrentRow().Chrom == chrom && mux.CurrentRow().Finish <= ms.pos {
			mux.Pop()
		}
	}
	next := iterator.Pos(-1)
	for _, mux := range ms.inner {
		if mux.Done() || mux.CurrentRow().Chrom != chrom {
			continue
		}
		r := mux.CurrentRow()
		if r.Start > ms.pos && (next == -1 || r.Start < next) {
			next = r.Start
		}
		if r.Finish > ms.pos && (next == -1 || r.Finish < next) {
			next = r.Finish
		}
	}

	values := make([]float64, len(ms.inner))
	present := make([]bool, len(ms.inner))
	for i, mux := range ms.inner {
		if !mux.Done() && mux.CurrentRow().Chrom == chrom &&
			mux.CurrentRow().Start <= ms.pos && mux.CurrentRow().Finish > ms.pos {
			values[i] = ms.reduceSet(i, mux.CurrentRow())
			present[i] = true
		} else {
			values[i] = ms.setDefault[i]
			present[i] = false
		}
	}
	value, ok := ms.reduce(values, present)

	start, finish := ms.pos, next
	ms.pos = next
	ms.keep = ok && (!ms.strict || allTrue(present))
	if ms.keep {
		ms.Set(chrom, start, finish, value, iterator.StrandNone)
	}
	return true
}

// reduceSet reduces one set's current row to a single value. A nested
// ok=false from the set's own Reduce (e.g. Select inside a set) is not
// itself propagated as a skip; it degenerates to NaN the way any other
// reducer would report an unavailable value.
func (ms *Multiset) reduceSet(i int, row multiplex.Row) float64 {
	v, _ := ms.setReduce[i](row.Values, row.Present)
	return v
}

// Pop advances to the next span.
func (ms *Multiset) Pop() {
	if ms.Done() {
		return
	}
	ms.advance()
}

// Seek is unsupported: a multiset mixes every set's sources at each
// span, so it cannot honor an arbitrary start without reseeking every
// source and rebuilding the inner multiplexers.
func (ms *Multiset) Seek(chrom string, start, finish iterator.Pos) {
	ms.Fail(iterator.ErrSeekUnsupported)
}

// Close closes every underlying set's multiplexer.
func (ms *Multiset) Close() error {
	var first error
	for _, mux := range ms.inner {
		if err := mux.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
