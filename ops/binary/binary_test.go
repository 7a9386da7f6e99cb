// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package binary

import (
	"testing"

	"github.com/grailbio/wiggletools/iterator"
	"github.com/stretchr/testify/assert"
)

type slice struct {
	iterator.Base
	items []iterator.Interval
	idx   int
}

func newSlice(items []iterator.Interval, def float64) *slice {
	s := &slice{items: items}
	s.Base = iterator.NewBase(def, false)
	s.advance()
	return s
}

func (s *slice) advance() {
	if s.idx >= len(s.items) {
		s.MarkDone()
		return
	}
	iv := s.items[s.idx]
	s.idx++
	s.Set(iv.Chrom, iv.Start, iv.Finish, iv.Value, iv.Strand)
}

func (s *slice) Pop() {
	if s.Done() {
		return
	}
	s.advance()
}

func (s *slice) Seek(chrom string, start, finish iterator.Pos) {
	for s.idx < len(s.items) {
		iv := s.items[s.idx]
		if iv.Chrom == chrom && iv.Finish > start {
			break
		}
		s.idx++
	}
	s.advance()
}

func (s *slice) Close() error { return nil }

func iv(chrom string, start, finish iterator.Pos, value float64) iterator.Interval {
	return iterator.Interval{Chrom: chrom, Start: start, Finish: finish, Value: value}
}

func TestOverlapClipsToMask(t *testing.T) {
	base := newSlice([]iterator.Interval{iv("chr1", 1, 20, 5)}, 0)
	mask := newSlice([]iterator.Interval{iv("chr1", 5, 10, 1)}, 0)
	out, err := iterator.CollectAll(Overlap(base, mask))
	assert.NoError(t, err)
	assert.Equal(t, []iterator.Interval{iv("chr1", 5, 10, 5)}, out)
}

func TestNonOverlapExcludesMask(t *testing.T) {
	base := newSlice([]iterator.Interval{iv("chr1", 1, 20, 5)}, 0)
	mask := newSlice([]iterator.Interval{iv("chr1", 5, 10, 1)}, 0)
	out, err := iterator.CollectAll(NonOverlap(base, mask))
	assert.NoError(t, err)
	assert.Equal(t, []iterator.Interval{
		iv("chr1", 1, 5, 5),
		iv("chr1", 10, 20, 5),
	}, out)
}

func TestOverlapMultipleMaskIntervals(t *testing.T) {
	base := newSlice([]iterator.Interval{iv("chr1", 1, 30, 7)}, 0)
	mask := newSlice([]iterator.Interval{
		iv("chr1", 2, 5, 1),
		iv("chr1", 10, 15, 1),
	}, 0)
	out, err := iterator.CollectAll(Overlap(base, mask))
	assert.NoError(t, err)
	assert.Equal(t, []iterator.Interval{
		iv("chr1", 2, 5, 7),
		iv("chr1", 10, 15, 7),
	}, out)
}

func TestNearestReportsClosestMark(t *testing.T) {
	base := newSlice([]iterator.Interval{
		iv("chr1", 1, 5, 0),
		iv("chr1", 20, 25, 0),
	}, 0)
	marks := newSlice([]iterator.Interval{
		iv("chr1", 6, 7, 100),
		iv("chr1", 30, 31, 200),
	}, 0)
	out, err := iterator.CollectAll(Nearest(base, marks))
	assert.NoError(t, err)
	assert.Equal(t, 100.0, out[0].Value)
	assert.Equal(t, 200.0, out[1].Value)
}
