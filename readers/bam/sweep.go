// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bam

import (
	"github.com/biogo/hts/sam"
	"github.com/grailbio/wiggletools/internal/heap"
	"github.com/grailbio/wiggletools/iterator"
)

// sweep turns a sequence of coordinate-sorted alignment records into a
// run-length-encoded depth stream, per SPEC_FULL.md §4.2: "Implementation
// uses two priority queues (multiset of segment starts, multiset of
// segment ends) joined by a counting hash". The "counting hash" becomes a
// plain int counter here (design notes §9's hashfib simplification); the
// two priority queues are internal/heap.PosHeap, the same structure
// ops/multiplex uses for its K-way merge.
//
// Records are fed one at a time, in file order. Because BAM guarantees
// non-decreasing leftmost position, every event (segment start or end)
// contributed by a record not yet read is >= that record's own position;
// so on each feed, any buffered event strictly before the new record's
// position can be safely finalized -- no future record can insert
// something earlier.
type sweep struct {
	mode  Mode
	chrom string

	// coverage mode state
	starts   heap.PosHeap
	ends     heap.PosHeap
	depth    int
	curPos   iterator.Pos
	primed   bool
	eventSeq int

	// read-start mode state
	rsPos   iterator.Pos
	rsCount int
	rsHave  bool
}

func newSweep(mode Mode) *sweep { return &sweep{mode: mode} }

// feed processes one record's CIGAR-implied reference segments and
// returns any depth intervals that are now safe to emit.
func (s *sweep) feed(chrom string, leftmost iterator.Pos, cigar sam.Cigar) []iterator.Interval {
	if s.mode == ReadStart {
		return s.feedReadStart(chrom, leftmost)
	}
	return s.feedCoverage(chrom, leftmost, cigar)
}

func (s *sweep) feedReadStart(chrom string, leftmost iterator.Pos) []iterator.Interval {
	if s.rsHave && s.chrom == chrom && s.rsPos == leftmost {
		s.rsCount++
		return nil
	}
	var out []iterator.Interval
	if s.rsHave {
		out = append(out, iterator.Interval{Chrom: s.chrom, Start: s.rsPos, Finish: s.rsPos + 1, Value: float64(s.rsCount)})
	}
	if s.chrom != "" && s.chrom != chrom {
		// Chromosome change: nothing further to flush for read-start mode.
	}
	s.chrom, s.rsPos, s.rsCount, s.rsHave = chrom, leftmost, 1, true
	return out
}

// segments returns the reference spans a CIGAR contributes to coverage
// depth: contiguous runs of CigarMatch/CigarEqual/CigarMismatch/
// CigarDeletion, broken at CigarSkipped (intron) boundaries.
// CigarSoftClipped and CigarInsertion never advance the reference
// position and so never contribute.
func segments(leftmost iterator.Pos, cigar sam.Cigar) [][2]iterator.Pos {
	var out [][2]iterator.Pos
	pos := leftmost
	var curStart iterator.Pos = -1
	flush := func(end iterator.Pos) {
		if curStart >= 0 && end > curStart {
			out = append(out, [2]iterator.Pos{curStart, end})
		}
		curStart = -1
	}
	for _, op := range cigar {
		n := iterator.Pos(op.Len())
		switch op.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch, sam.CigarDeletion:
			if curStart < 0 {
				curStart = pos
			}
			pos += n
		case sam.CigarSkipped:
			flush(pos)
			pos += n
		case sam.CigarInsertion, sam.CigarSoftClipped, sam.CigarHardClipped, sam.CigarPadded:
			// Does not advance the reference position (soft/hard clip,
			// insertion, padding); does not split a run either.
		default:
			pos += n
		}
	}
	flush(pos)
	return out
}

func (s *sweep) feedCoverage(chrom string, leftmost iterator.Pos, cigar sam.Cigar) []iterator.Interval {
	var out []iterator.Interval
	if s.chrom != "" && s.chrom != chrom {
		out = append(out, s.drainAll()...)
		s.chrom = ""
	}
	if s.chrom == "" {
		s.chrom = chrom
		s.primed = false
	}

	// Safe to finalize anything strictly before this record's own
	// position before admitting its segments.
	out = append(out, s.drainBelow(leftmost)...)

	for _, seg := range segments(leftmost, cigar) {
		s.eventSeq++
		s.starts.Push(int64(seg[0]), s.eventSeq)
		s.eventSeq++
		s.ends.Push(int64(seg[1]), s.eventSeq)
	}
	return out
}

// drainBelow finalizes every buffered event strictly less than watermark,
// returning the depth intervals produced.
func (s *sweep) drainBelow(watermark iterator.Pos) []iterator.Interval {
	var out []iterator.Interval
	for {
		sMin, sOK := s.starts.Min()
		eMin, eOK := s.ends.Min()
		if !sOK && !eOK {
			break
		}
		p := minPos(sOK, sMin.Pos, eOK, eMin.Pos)
		if iterator.Pos(p) >= watermark {
			break
		}
		out = append(out, s.advanceTo(iterator.Pos(p))...)
	}
	return out
}

// drainAll finalizes every buffered event, used at chromosome change/EOF.
func (s *sweep) drainAll() []iterator.Interval {
	var out []iterator.Interval
	for s.starts.Len() > 0 || s.ends.Len() > 0 {
		sMin, sOK := s.starts.Min()
		eMin, eOK := s.ends.Min()
		p := minPos(sOK, sMin.Pos, eOK, eMin.Pos)
		out = append(out, s.advanceTo(iterator.Pos(p))...)
	}
	if s.primed && s.depth != 0 {
		// No more events: depth must fall back to 0, but there is no
		// upper bound to report, so nothing further is emitted; the
		// stream's default_value (0) covers the remainder.
	}
	s.primed = false
	s.depth = 0
	return out
}

// advanceTo emits [curPos, p) at the current depth (if nonzero width and
// depth has been established), applies every event at exactly p, and
// moves curPos to p.
func (s *sweep) advanceTo(p iterator.Pos) []iterator.Interval {
	var out []iterator.Interval
	if s.primed && p > s.curPos && s.depth > 0 {
		out = append(out, iterator.Interval{Chrom: s.chrom, Start: s.curPos, Finish: p, Value: float64(s.depth)})
	}
	for {
		sMin, sOK := s.starts.Min()
		if !sOK || sMin.Pos != int64(p) {
			break
		}
		s.starts.Pop()
		s.depth++
	}
	for {
		eMin, eOK := s.ends.Min()
		if !eOK || eMin.Pos != int64(p) {
			break
		}
		s.ends.Pop()
		s.depth--
	}
	s.curPos = p
	s.primed = true
	return out
}

func minPos(sOK bool, sPos int64, eOK bool, ePos int64) int64 {
	switch {
	case sOK && eOK:
		if sPos < ePos {
			return sPos
		}
		return ePos
	case sOK:
		return sPos
	default:
		return ePos
	}
}

// finish is called once the underlying record stream is exhausted; it
// flushes both the coverage sweep and any pending read-start run.
func (s *sweep) finish() []iterator.Interval {
	if s.mode == ReadStart {
		if s.rsHave {
			out := []iterator.Interval{{Chrom: s.chrom, Start: s.rsPos, Finish: s.rsPos + 1, Value: float64(s.rsCount)}}
			s.rsHave = false
			return out
		}
		return nil
	}
	return s.drainAll()
}
