// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package unary

import (
	"math"

	"github.com/grailbio/wiggletools/iterator"
)

// bin partitions each chromosome into fixed-width, 1-based windows and
// reports the length-weighted mean value covering each window --
// wiggleUnaryOps.c's binning pass, generalized here to run directly off
// the Iterator protocol instead of a materialized array.
type bin struct {
	iterator.Base
	src     iterator.Iterator
	binSize iterator.Pos

	chrom        string
	binStart     iterator.Pos
	haveCur      bool
	curStart     iterator.Pos
	curFinish    iterator.Pos
	curValue     float64
	weightedSum  float64
	coveredWidth iterator.Pos
	isNaN        bool
	anyCoverage  bool
}

// Bin returns src averaged into fixed windows of the given width, in
// bases, starting at position 1 on each chromosome.
func Bin(src iterator.Iterator, width iterator.Pos) iterator.Iterator {
	b := &bin{src: src, binSize: width}
	b.Base = iterator.NewBase(src.Default(), false)
	b.advance()
	return b
}

func binFloor(p, width iterator.Pos) iterator.Pos {
	n := (p - 1) / width
	return n*width + 1
}

// closeBin packages the window [binStart, binStart+binSize) accumulated
// so far into an Interval, provided it received any coverage, and resets
// accumulation state.
func (b *bin) closeBin() (iterator.Interval, bool) {
	defer func() {
		b.weightedSum, b.coveredWidth, b.isNaN, b.anyCoverage = 0, 0, false, false
	}()
	if !b.anyCoverage {
		return iterator.Interval{}, false
	}
	value := math.NaN()
	if !b.isNaN && b.coveredWidth > 0 {
		value = b.weightedSum / float64(b.coveredWidth)
	}
	return iterator.Interval{
		Chrom:  b.chrom,
		Start:  b.binStart,
		Finish: b.binStart + b.binSize,
		Value:  value,
	}, true
}

func (b *bin) advance() {
	for {
		if !b.haveCur {
			if b.src.Done() {
				if b.src.Err() != nil {
					b.Fail(b.src.Err())
					return
				}
				if iv, ok := b.closeBin(); ok {
					b.Set(iv.Chrom, iv.Start, iv.Finish, iv.Value, iterator.StrandNone)
					b.chrom = ""
					return
				}
				b.MarkDone()
				return
			}
			b.curStart, b.curFinish, b.curValue = b.src.Start(), b.src.Finish(), b.src.Value()
			chromNow := b.src.Chrom()
			b.src.Pop()
			if b.chrom != chromNow {
				if iv, ok := b.closeBin(); ok {
					b.chrom = chromNow
					b.binStart = binFloor(b.curStart, b.binSize)
					b.haveCur = true
					b.Set(iv.Chrom, iv.Start, iv.Finish, iv.Value, iterator.StrandNone)
					return
				}
				b.chrom = chromNow
				b.binStart = binFloor(b.curStart, b.binSize)
			}
			b.haveCur = true
		}

		binEnd := b.binStart + b.binSize
		overlapStart, overlapEnd := b.curStart, b.curFinish
		if overlapStart < b.binStart {
			overlapStart = b.binStart
		}
		if overlapEnd > binEnd {
			overlapEnd = binEnd
		}
		if overlapEnd > overlapStart {
			width := overlapEnd - overlapStart
			b.anyCoverage = true
			if math.IsNaN(b.curValue) {
				b.isNaN = true
			} else {
				b.weightedSum += float64(width) * b.curValue
			}
			b.coveredWidth += width
		}

		if b.curFinish <= binEnd {
			b.haveCur = false
			continue
		}
		// This interval extends past the current window: close the
		// window and move on to the next, keeping the interval's
		// remaining portion for it.
		b.curStart = binEnd
		iv, ok := b.closeBin()
		b.binStart = binEnd
		if ok {
			b.Set(iv.Chrom, iv.Start, iv.Finish, iv.Value, iterator.StrandNone)
			return
		}
	}
}

func (b *bin) Pop() {
	if b.Done() {
		return
	}
	b.advance()
}

// Seek is unsupported: bin boundaries depend on every record seen since
// the chromosome began, so Bin must sit downstream of any Seek target.
func (b *bin) Seek(chrom string, start, finish iterator.Pos) {
	b.Fail(iterator.ErrSeekUnsupported)
}

func (b *bin) Close() error { return b.src.Close() }
