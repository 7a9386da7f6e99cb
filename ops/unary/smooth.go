// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package unary

import (
	"math"
	"sort"

	"github.com/grailbio/wiggletools/iterator"
)

// smooth applies a symmetric moving-window average, buffering one
// chromosome of src at a time -- the same per-chromosome materialization
// the original engine's array-backed smoothing pass used, adapted here
// to the streaming Iterator protocol (only one chromosome is ever held in
// memory, not the whole genome).
type smooth struct {
	iterator.Base
	src       iterator.Iterator
	halfWidth iterator.Pos

	out    []iterator.Interval
	outIdx int
}

// Smooth replaces every value with the length-weighted mean of src over
// the symmetric window [p-halfWidth, p+halfWidth) evaluated at each
// output breakpoint's left edge; points outside any reported segment
// contribute src's default value to the window average.
func Smooth(src iterator.Iterator, halfWidth iterator.Pos) iterator.Iterator {
	s := &smooth{src: src, halfWidth: halfWidth}
	s.Base = iterator.NewBase(src.Default(), false)
	s.advance()
	return s
}

func (s *smooth) loadChromosome() bool {
	if s.src.Done() {
		return false
	}
	chrom := s.src.Chrom()
	var segs []iterator.Interval
	for !s.src.Done() && s.src.Chrom() == chrom {
		segs = append(segs, iterator.Interval{
			Chrom: chrom, Start: s.src.Start(), Finish: s.src.Finish(), Value: s.src.Value(),
		})
		s.src.Pop()
	}
	if s.src.Err() != nil {
		s.Fail(s.src.Err())
		return false
	}
	s.out = convolve(chrom, segs, s.halfWidth, s.Default())
	s.outIdx = 0
	return true
}

// valueAt returns the value segs reports at position p, or def if p
// falls in a gap.
func valueAt(segs []iterator.Interval, p iterator.Pos, def float64) float64 {
	i := sort.Search(len(segs), func(i int) bool { return segs[i].Finish > p })
	if i < len(segs) && segs[i].Start <= p {
		return segs[i].Value
	}
	return def
}

// windowAverage averages segs over [center-halfWidth, center+halfWidth),
// treating gaps as def.
func windowAverage(segs []iterator.Interval, center, halfWidth iterator.Pos, def float64) float64 {
	lo, hi := center-halfWidth, center+halfWidth
	if hi <= lo {
		return valueAt(segs, center, def)
	}
	sum, width := 0.0, iterator.Pos(0)
	nan := false
	p := lo
	for p < hi {
		v := valueAt(segs, p, def)
		// Find how far this value extends, to batch equal-valued runs.
		next := p + 1
		i := sort.Search(len(segs), func(i int) bool { return segs[i].Finish > p })
		if i < len(segs) && segs[i].Start <= p && segs[i].Finish < hi {
			next = segs[i].Finish
		} else if i < len(segs) && segs[i].Start > p && segs[i].Start < hi {
			next = segs[i].Start
		} else {
			next = hi
		}
		if next <= p {
			next = p + 1
		}
		w := next - p
		if math.IsNaN(v) {
			nan = true
		} else {
			sum += float64(w) * v
		}
		width += w
		p = next
	}
	if nan || width == 0 {
		if nan {
			return math.NaN()
		}
		return def
	}
	return sum / float64(width)
}

// convolve computes the smoothed output for one chromosome's segments.
func convolve(chrom string, segs []iterator.Interval, halfWidth iterator.Pos, def float64) []iterator.Interval {
	if len(segs) == 0 {
		return nil
	}
	breakSet := make(map[iterator.Pos]bool)
	for _, seg := range segs {
		breakSet[seg.Start] = true
		breakSet[seg.Finish] = true
	}
	breaks := make([]iterator.Pos, 0, len(breakSet))
	for p := range breakSet {
		breaks = append(breaks, p)
	}
	sort.Slice(breaks, func(i, j int) bool { return breaks[i] < breaks[j] })

	var out []iterator.Interval
	for i := 0; i+1 < len(breaks); i++ {
		start, finish := breaks[i], breaks[i+1]
		value := windowAverage(segs, start, halfWidth, def)
		if n := len(out); n > 0 && out[n-1].Finish == start && sameValue(out[n-1].Value, value) {
			out[n-1].Finish = finish
			continue
		}
		out = append(out, iterator.Interval{Chrom: chrom, Start: start, Finish: finish, Value: value})
	}
	return out
}

func (s *smooth) advance() {
	for s.outIdx >= len(s.out) {
		if s.Err() != nil {
			return
		}
		if !s.loadChromosome() {
			s.MarkDone()
			return
		}
	}
	iv := s.out[s.outIdx]
	s.outIdx++
	s.Set(iv.Chrom, iv.Start, iv.Finish, iv.Value, iterator.StrandNone)
}

func (s *smooth) Pop() {
	if s.Done() {
		return
	}
	s.advance()
}

// Seek is unsupported: smoothing mixes neighboring records across the
// whole chromosome, so it cannot honor an arbitrary start without
// reloading from the chromosome's beginning anyway.
func (s *smooth) Seek(chrom string, start, finish iterator.Pos) {
	s.Fail(iterator.ErrSeekUnsupported)
}

func (s *smooth) Close() error { return s.src.Close() }
