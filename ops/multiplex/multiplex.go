// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package multiplex implements the K-way positional merge of
// SPEC_FULL.md §4.6: given N sorted Iterators, report, for every maximal
// sub-interval where the set of currently-active sources is constant, the
// chromosome/span plus the per-source value vector covering it. This is
// the wiggletools "multiplexer" (src/wiggleMultiplexer.c in
// original_source/), adapted onto the same K-way-merge-via-llrb pattern
// the teacher already uses for coordinate-sorted merges in
// cmd/bio-bam-sort/sorter/sort.go.
package multiplex

import (
	"github.com/grailbio/wiggletools/internal/heap"
	"github.com/grailbio/wiggletools/iterator"
)

// Row is one output record: the span [Start,Finish) on Chrom, the value
// each input source reports there (the source's Default() if it does not
// currently cover the span), and which sources are actually in play --
// Present[i] is false exactly where Values[i] came from source i's
// Default() rather than a live interval.
type Row struct {
	Chrom        string
	Start        iterator.Pos
	Finish       iterator.Pos
	Values       []float64
	Present      []bool
}

// Multiplexer is a pull iterator over Rows, merging N sorted sources by
// position. In strict mode (step 6 of the multiplexer algorithm), any
// span where at least one source is not in play is skipped rather than
// reported.
type Multiplexer struct {
	sources []iterator.Iterator
	strict  bool
	chrom   string
	pos     iterator.Pos
	done    bool
	err     error

	row Row
}

// New returns a Multiplexer over sources, all assumed independently
// sorted by chromosome then position (the contract every leaf reader and
// composite operator in this module honors). In strict mode, only spans
// where every source is currently in play are reported; every other span
// is skipped.
func New(sources []iterator.Iterator, strict bool) *Multiplexer {
	m := &Multiplexer{sources: sources, strict: strict}
	m.advance()
	return m
}

// nextChrom finds the lexicographically smallest chromosome any
// not-yet-exhausted source is still on. Sources that have moved past the
// current chromosome report a different Chrom(); sources exhausted
// report Done().
func (m *Multiplexer) nextChrom() (string, bool) {
	best := ""
	have := false
	for _, s := range m.sources {
		if s.Done() {
			continue
		}
		c := s.Chrom()
		if !have || c < best {
			best, have = c, true
		}
	}
	return best, have
}

// nextBoundary returns the smallest position > m.pos at which some
// source's active span starts or ends, i.e. the next point the active
// set can change.
func (m *Multiplexer) nextBoundary(chrom string) (iterator.Pos, bool) {
	var h heap.PosHeap
	for _, s := range m.sources {
		if s.Done() || s.Chrom() != chrom {
			continue
		}
		if s.Start() > m.pos {
			h.Push(int64(s.Start()), 0)
		}
		if s.Finish() > m.pos {
			h.Push(int64(s.Finish()), 0)
		}
	}
	e, ok := h.Min()
	if !ok {
		return 0, false
	}
	return iterator.Pos(e.Pos), true
}

func (m *Multiplexer) advanceSourcesTo(chrom string, pos iterator.Pos) {
	for _, s := range m.sources {
		for !s.Done() && s.Chrom() == chrom && s.Finish() <= pos {
			s.Pop()
		}
	}
}

func (m *Multiplexer) checkErrs() error {
	for _, s := range m.sources {
		if err := s.Err(); err != nil {
			return err
		}
	}
	return nil
}

// advance computes the next Row, or marks the Multiplexer Done. In strict
// mode, it loops past any span where not all sources are in play (step 6
// of the multiplexer algorithm).
func (m *Multiplexer) advance() {
	for m.advanceOnce() {
		if !m.strict || m.rowFullyPresent() {
			return
		}
	}
}

// rowFullyPresent reports whether every source is in play over the
// current row.
func (m *Multiplexer) rowFullyPresent() bool {
	for _, p := range m.row.Present {
		if !p {
			return false
		}
	}
	return true
}

// advanceOnce computes the single next Row, or marks the Multiplexer
// Done/errored. It returns false if no row was produced.
func (m *Multiplexer) advanceOnce() bool {
	// Drop sources the previous row used up before choosing the next
	// chromosome, so a finished source cannot hold the merge on its old one.
	m.advanceSourcesTo(m.chrom, m.pos)
	if err := m.checkErrs(); err != nil {
		m.err, m.done = err, true
		return false
	}
	chrom, have := m.nextChrom()
	if !have {
		m.done = true
		return false
	}
	if chrom != m.chrom {
		m.chrom = chrom
		// Start at the smallest Start() among sources already on this
		// chromosome, so leading gaps before any data collapse away.
		minStart, any := iterator.Pos(0), false
		for _, s := range m.sources {
			if s.Done() || s.Chrom() != chrom {
				continue
			}
			if !any || s.Start() < minStart {
				minStart, any = s.Start(), true
			}
		}
		m.pos = minStart
	}
	m.advanceSourcesTo(chrom, m.pos)
	if err := m.checkErrs(); err != nil {
		m.err, m.done = err, true
		return false
	}

	// nextChrom already guaranteed some not-done source is on chrom, and
	// advanceSourcesTo just dropped every source whose span ends at or
	// before m.pos, so that source's Finish() > m.pos: a boundary exists.
	next, _ := m.nextBoundary(chrom)

	// Values/Present are allocated fresh each row rather than reused in
	// place: CurrentRow returns Row by value, but its slice fields would
	// otherwise still alias the same backing array, silently changing
	// out from under a caller that holds onto more than one Row at once.
	values := make([]float64, len(m.sources))
	present := make([]bool, len(m.sources))
	for i, s := range m.sources {
		in := !s.Done() && s.Chrom() == chrom && s.Start() <= m.pos && s.Finish() > m.pos
		present[i] = in
		if in {
			values[i] = s.Value()
		} else {
			values[i] = s.Default()
		}
	}
	m.row = Row{Chrom: chrom, Start: m.pos, Finish: next, Values: values, Present: present}
	m.pos = next
	return true
}

// CurrentRow returns the current row. Must not be called once Done returns true.
func (m *Multiplexer) CurrentRow() Row { return m.row }

// Done reports whether the merge is exhausted.
func (m *Multiplexer) Done() bool { return m.done }

// Err returns the first error encountered among the sources.
func (m *Multiplexer) Err() error { return m.err }

// Pop advances to the next Row.
func (m *Multiplexer) Pop() {
	if m.done {
		return
	}
	m.advance()
}

// Close closes every source.
func (m *Multiplexer) Close() error {
	var first error
	for _, s := range m.sources {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
