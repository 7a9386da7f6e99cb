// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package binary implements the two-track mask operators of
// SPEC_FULL.md §4.5: Overlap, NonOverlap, Trim, and Nearest, grounded on
// the original engine's wiggleIterators.c mask-combination pass. Unlike
// ops/multiplex and ops/multiset (which merge by position across many
// tracks), these operators walk exactly two already-sorted streams in
// lockstep, the same two-cursor pattern encoding/bamprovider's
// PairIterator uses to walk a coordinate-sorted BAM alongside its mates.
package binary

import (
	"math"

	"github.com/grailbio/wiggletools/iterator"
)

// cursor buffers one stream's current record so lockstep merges can peek
// both sides without consuming either prematurely.
type cursor struct {
	it   iterator.Iterator
	done bool
}

func newCursor(it iterator.Iterator) *cursor {
	return &cursor{it: it, done: it.Done()}
}

func (c *cursor) pop() {
	if c.done {
		return
	}
	c.it.Pop()
	c.done = c.it.Done()
}

// chromLess orders chromosome names the way a coordinate-sorted genome
// file would: lexicographically. Composite operators never reorder
// chromosomes themselves, only the leaf readers' own sort order matters.
func chromLess(a, b string) bool { return a < b }

// maskOp implements Overlap and NonOverlap: walk base and mask together,
// emitting base's value restricted to (or excluding) mask's covered
// regions.
type maskOp struct {
	iterator.Base
	base, mask *cursor
	keep       bool // true = Overlap, false = NonOverlap
	pending    []iterator.Interval

	haveRem              bool
	remChrom             string
	remStart, remFinish  iterator.Pos
	remValue             float64
}

func newMaskOp(base, mask iterator.Iterator, keep bool) *maskOp {
	m := &maskOp{base: newCursor(base), mask: newCursor(mask), keep: keep}
	m.Base = iterator.NewBase(base.Default(), false)
	m.advance()
	return m
}

// Overlap restricts base to the regions mask covers, splitting base's
// intervals at mask's boundaries as needed.
func Overlap(base, mask iterator.Iterator) iterator.Iterator {
	return newMaskOp(base, mask, true)
}

// NonOverlap restricts base to the regions mask does not cover.
func NonOverlap(base, mask iterator.Iterator) iterator.Iterator {
	return newMaskOp(base, mask, false)
}

func (m *maskOp) advance() {
	for len(m.pending) == 0 {
		if !m.haveRem {
			if m.base.done {
				if err := firstErr(m.base, m.mask); err != nil {
					m.Fail(err)
					return
				}
				m.MarkDone()
				return
			}
			m.remChrom = m.base.it.Chrom()
			m.remStart, m.remFinish, m.remValue = m.base.it.Start(), m.base.it.Finish(), m.base.it.Value()
			m.base.pop()
			m.haveRem = true
		}
		baseChrom, baseStart, baseFinish, baseValue := m.remChrom, m.remStart, m.remFinish, m.remValue

		// Advance mask until it no longer ends before the remainder begins.
		for !m.mask.done && (chromLess(m.mask.it.Chrom(), baseChrom) ||
			(m.mask.it.Chrom() == baseChrom && m.mask.it.Finish() <= baseStart)) {
			m.mask.pop()
		}

		covered := !m.mask.done && m.mask.it.Chrom() == baseChrom &&
			m.mask.it.Start() < baseFinish && m.mask.it.Finish() > baseStart
		if !covered {
			if !m.keep {
				m.pending = append(m.pending, iterator.Interval{Chrom: baseChrom, Start: baseStart, Finish: baseFinish, Value: baseValue})
			}
			m.haveRem = false
			continue
		}

		start, finish := m.mask.it.Start(), m.mask.it.Finish()
		if start < baseStart {
			start = baseStart
		}
		if finish > baseFinish {
			finish = baseFinish
		}
		if m.keep {
			m.pending = append(m.pending, iterator.Interval{Chrom: baseChrom, Start: start, Finish: finish, Value: baseValue})
		} else if start > baseStart {
			m.pending = append(m.pending, iterator.Interval{Chrom: baseChrom, Start: baseStart, Finish: start, Value: baseValue})
		}
		if finish >= baseFinish {
			m.haveRem = false
		} else {
			m.remStart = finish
		}
	}
	iv := m.pending[0]
	m.pending = m.pending[1:]
	m.Set(iv.Chrom, iv.Start, iv.Finish, iv.Value, iterator.StrandNone)
}

func firstErr(cs ...*cursor) error {
	for _, c := range cs {
		if err := c.it.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (m *maskOp) Pop() {
	if m.Done() {
		return
	}
	m.advance()
}

func (m *maskOp) Seek(chrom string, start, finish iterator.Pos) {
	m.base.it.Seek(chrom, start, finish)
	m.base.done = m.base.it.Done()
	m.mask.it.Seek(chrom, start, finish)
	m.mask.done = m.mask.it.Done()
	m.pending = nil
	m.haveRem = false
	m.advance()
}

func (m *maskOp) Close() error {
	err1 := m.base.it.Close()
	err2 := m.mask.it.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Trim restricts base to the span [start,finish) of every mask interval,
// clipping base's boundaries but passing its value through unmodified --
// equivalent to Overlap when mask carries no meaningful value of its own,
// kept as a distinct name because SPEC_FULL.md's grammar exposes it
// separately (trim's mask is conventionally a BED region list).
func Trim(base, mask iterator.Iterator) iterator.Iterator {
	return Overlap(base, mask)
}

// nearestOp reports, for every position base covers, the value of the
// spatially nearest mask interval (by midpoint distance); used to project
// a sparse annotation track onto a dense one.
type nearestOp struct {
	iterator.Base
	base iterator.Iterator
	marks []iterator.Interval // one chromosome's worth, buffered
	markChrom string
	markSrc   iterator.Iterator
}

// Nearest reports, for each base interval, the value of whichever mask
// interval on the same chromosome is spatially closest to it.
func Nearest(base, mask iterator.Iterator) iterator.Iterator {
	n := &nearestOp{base: base, markSrc: mask}
	n.Base = iterator.NewBase(base.Default(), false)
	n.advance()
	return n
}

func (n *nearestOp) loadMarksFor(chrom string) {
	if n.markChrom == chrom {
		return
	}
	n.marks = n.marks[:0]
	n.markChrom = chrom
	for !n.markSrc.Done() && chromLess(n.markSrc.Chrom(), chrom) {
		n.markSrc.Pop()
	}
	for !n.markSrc.Done() && n.markSrc.Chrom() == chrom {
		n.marks = append(n.marks, iterator.Interval{
			Chrom: chrom, Start: n.markSrc.Start(), Finish: n.markSrc.Finish(), Value: n.markSrc.Value(),
		})
		n.markSrc.Pop()
	}
}

func distance(p iterator.Pos, iv iterator.Interval) iterator.Pos {
	if p < iv.Start {
		return iv.Start - p
	}
	if p >= iv.Finish {
		return p - iv.Finish + 1
	}
	return 0
}

func (n *nearestOp) nearestValue(mid iterator.Pos) float64 {
	if len(n.marks) == 0 {
		return math.NaN()
	}
	best := n.marks[0]
	bestDist := distance(mid, best)
	for _, m := range n.marks[1:] {
		if d := distance(mid, m); d < bestDist {
			best, bestDist = m, d
		}
	}
	return best.Value
}

func (n *nearestOp) advance() {
	if n.base.Done() {
		if n.base.Err() != nil {
			n.Fail(n.base.Err())
			return
		}
		if n.markSrc.Err() != nil {
			n.Fail(n.markSrc.Err())
			return
		}
		n.MarkDone()
		return
	}
	chrom, start, finish := n.base.Chrom(), n.base.Start(), n.base.Finish()
	n.loadMarksFor(chrom)
	mid := start + (finish-start)/2
	value := n.nearestValue(mid)
	n.base.Pop()
	n.Set(chrom, start, finish, value, iterator.StrandNone)
}

func (n *nearestOp) Pop() {
	if n.Done() {
		return
	}
	n.advance()
}

func (n *nearestOp) Seek(chrom string, start, finish iterator.Pos) {
	n.base.Seek(chrom, start, finish)
	n.markChrom = ""
	n.advance()
}

func (n *nearestOp) Close() error {
	err1 := n.base.Close()
	err2 := n.markSrc.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
