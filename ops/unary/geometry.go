// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package unary

import (
	"math"
	"sort"

	"github.com/grailbio/wiggletools/iterator"
)

// geometry wraps src, overriding only Start/Finish via fn; value,
// chromosome, and strand pass through unchanged. Used by ShiftPos and
// Extend, the two operators that rewrite span boundaries but not values.
type geometry struct {
	src        iterator.Iterator
	start, end func(s, f iterator.Pos) (iterator.Pos, iterator.Pos)
}

func (g *geometry) Chrom() string       { return g.src.Chrom() }
func (g *geometry) Value() float64      { return g.src.Value() }
func (g *geometry) StrandOf() iterator.Strand { return g.src.StrandOf() }
func (g *geometry) Done() bool          { return g.src.Done() }
func (g *geometry) Err() error          { return g.src.Err() }
func (g *geometry) Pop()                { g.src.Pop() }
func (g *geometry) Seek(c string, s, f iterator.Pos) { g.src.Seek(c, s, f) }
func (g *geometry) Default() float64    { return g.src.Default() }
func (g *geometry) Overlaps() bool      { return g.src.Overlaps() }
func (g *geometry) Close() error        { return g.src.Close() }
func (g *geometry) Start() iterator.Pos {
	s, _ := g.start(g.src.Start(), g.src.Finish())
	return s
}
func (g *geometry) Finish() iterator.Pos {
	_, f := g.start(g.src.Start(), g.src.Finish())
	return f
}

// ShiftPos translates every interval's span by delta (positive moves
// downstream, negative upstream); values are unaffected.
func ShiftPos(src iterator.Iterator, delta iterator.Pos) iterator.Iterator {
	return &geometry{src: src, start: func(s, f iterator.Pos) (iterator.Pos, iterator.Pos) {
		return s + delta, f + delta
	}}
}

// Extend lengthens every interval's finish boundary by amount, without
// moving its start; it does not merge the result with neighboring
// intervals (pass the result through Union if overlap removal is
// required).
func Extend(src iterator.Iterator, amount iterator.Pos) iterator.Iterator {
	return &geometry{src: src, start: func(s, f iterator.Pos) (iterator.Pos, iterator.Pos) {
		return s, f + amount
	}}
}

// Compress merges consecutive, touching, equal-valued intervals on the
// same chromosome into a single interval -- the inverse of the
// relational-DB-style "normalization" a leaf reader like readers/step
// would otherwise leave behind after emitting one record per input line.
type compress struct {
	iterator.Base
	src iterator.Iterator
}

// Compress returns a stream with no two consecutive records sharing a
// chromosome, a touching boundary, and an equal value.
func Compress(src iterator.Iterator) iterator.Iterator {
	c := &compress{src: src}
	c.Base = iterator.NewBase(src.Default(), false)
	c.advance()
	return c
}

func sameValue(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	return a == b
}

func (c *compress) advance() {
	if c.src.Done() {
		c.MarkDone()
		return
	}
	chrom, start, finish, value, strand := c.src.Chrom(), c.src.Start(), c.src.Finish(), c.src.Value(), c.src.StrandOf()
	c.src.Pop()
	for !c.src.Done() && c.src.Chrom() == chrom && c.src.Start() == finish && sameValue(c.src.Value(), value) {
		finish = c.src.Finish()
		c.src.Pop()
	}
	if c.src.Err() != nil {
		c.Fail(c.src.Err())
		return
	}
	c.Set(chrom, start, finish, value, strand)
}

func (c *compress) Pop() {
	if c.Done() {
		return
	}
	c.advance()
}

func (c *compress) Seek(chrom string, start, finish iterator.Pos) {
	c.src.Seek(chrom, start, finish)
	c.advance()
}

func (c *compress) Close() error { return c.src.Close() }

// active is one still-open contribution to a Union sweep.
type active struct {
	end   iterator.Pos
	value float64
}

// union resolves a single, possibly self-overlapping stream into a
// piecewise-constant, non-overlapping stream whose value at each point is
// the sum of every input interval covering it -- the same two-event
// sweep-line technique readers/bam uses for coverage depth (§4.2),
// generalized from unit increments to the source's own values.
type union struct {
	iterator.Base
	src     iterator.Iterator
	actives []active // kept sorted by end, ascending
	chrom   string
	curPos  iterator.Pos
	primed  bool
	pending []iterator.Interval
}

// Union removes overlaps from src by summing overlapping values.
func Union(src iterator.Iterator) iterator.Iterator {
	u := &union{src: src}
	u.Base = iterator.NewBase(src.Default(), false)
	u.advance()
	return u
}

func (u *union) insert(end iterator.Pos, value float64) {
	i := sort.Search(len(u.actives), func(i int) bool { return u.actives[i].end >= end })
	u.actives = append(u.actives, active{})
	copy(u.actives[i+1:], u.actives[i:])
	u.actives[i] = active{end, value}
}

func (u *union) sum() float64 {
	total := 0.0
	for _, a := range u.actives {
		if math.IsNaN(a.value) {
			return math.NaN()
		}
		total += a.value
	}
	return total
}

// advanceTo emits [curPos, p) at the current sum (if primed and
// nonempty), then retires every active interval ending at p.
func (u *union) advanceTo(p iterator.Pos) []iterator.Interval {
	var out []iterator.Interval
	if u.primed && p > u.curPos && len(u.actives) > 0 {
		if v := u.sum(); v != 0 || math.IsNaN(v) {
			out = append(out, iterator.Interval{Chrom: u.chrom, Start: u.curPos, Finish: p, Value: v})
		}
	}
	n := 0
	for n < len(u.actives) && u.actives[n].end == p {
		n++
	}
	u.actives = u.actives[n:]
	u.curPos = p
	u.primed = true
	return out
}

func (u *union) drainBelow(watermark iterator.Pos) []iterator.Interval {
	var out []iterator.Interval
	for len(u.actives) > 0 && u.actives[0].end < watermark {
		out = append(out, u.advanceTo(u.actives[0].end)...)
	}
	return out
}

func (u *union) drainAll() []iterator.Interval {
	var out []iterator.Interval
	for len(u.actives) > 0 {
		out = append(out, u.advanceTo(u.actives[0].end)...)
	}
	u.primed = false
	return out
}

func (u *union) advance() {
	for len(u.pending) == 0 {
		if u.src.Done() {
			if u.src.Err() != nil {
				u.Fail(u.src.Err())
				return
			}
			if u.chrom != "" {
				u.pending = u.drainAll()
				u.chrom = ""
			}
			if len(u.pending) == 0 {
				u.MarkDone()
				return
			}
			break
		}
		chrom, start, finish, value := u.src.Chrom(), u.src.Start(), u.src.Finish(), u.src.Value()
		if u.chrom != "" && u.chrom != chrom {
			u.pending = u.drainAll()
			u.chrom = ""
			if len(u.pending) > 0 {
				break
			}
		}
		if u.chrom == "" {
			u.chrom = chrom
			u.primed = false
		}
		out := u.drainBelow(start)
		out = append(out, u.advanceTo(start)...)
		u.insert(finish, value)
		u.src.Pop()
		if len(out) > 0 {
			u.pending = out
			break
		}
	}
	if len(u.pending) == 0 {
		u.MarkDone()
		return
	}
	iv := u.pending[0]
	u.pending = u.pending[1:]
	u.Set(iv.Chrom, iv.Start, iv.Finish, iv.Value, iterator.StrandNone)
}

func (u *union) Pop() {
	if u.Done() {
		return
	}
	u.advance()
}

// Seek is unsupported on Union: the sweep state depends on every
// interval seen since the last chromosome change, so random access would
// require re-deriving it from scratch. Callers needing a seekable stream
// should seek the underlying leaf reader before applying Union.
func (u *union) Seek(chrom string, start, finish iterator.Pos) {
	u.Fail(iterator.ErrSeekUnsupported)
}

func (u *union) Close() error { return u.src.Close() }

// Coverage reports, at every point, the number of input intervals from
// src that cover it -- Union generalized from summing values to counting
// contributors, matching readers/bam's Coverage mode but for any
// interval source rather than only alignment CIGARs.
func Coverage(src iterator.Iterator) iterator.Iterator {
	return Union(Unit(src))
}
