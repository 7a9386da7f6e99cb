// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package apply

import (
	"testing"

	"github.com/grailbio/wiggletools/iterator"
	"github.com/grailbio/wiggletools/ops/integrate"
	"github.com/stretchr/testify/assert"
)

type slice struct {
	iterator.Base
	items []iterator.Interval
	idx   int
}

func newSlice(items []iterator.Interval) *slice {
	s := &slice{items: items}
	s.Base = iterator.NewBase(0, false)
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
	s.idx = 0
	for s.idx < len(s.items) {
		it := s.items[s.idx]
		if it.Chrom == chrom && it.Finish > start {
			break
		}
		s.idx++
	}
	s.advance()
	// Clip the first interval's start to the query window, matching the
	// leaf-reader contract Seek callers rely on.
	if !s.Done() && s.Start() < start {
		iv := s.items[s.idx-1]
		iv.Start = start
		s.Set(iv.Chrom, iv.Start, iv.Finish, iv.Value, iv.Strand)
	}
}

func (s *slice) Close() error { return nil }

func iv(chrom string, start, finish iterator.Pos, value float64) iterator.Interval {
	return iterator.Interval{Chrom: chrom, Start: start, Finish: finish, Value: value}
}

func openerFor(items []iterator.Interval) Opener {
	return func() (iterator.Iterator, error) {
		return newSlice(items), nil
	}
}

func TestRunEvaluatesEachRegionIndependently(t *testing.T) {
	items := []iterator.Interval{
		iv("chr1", 1, 10, 2),
		iv("chr1", 10, 20, 4),
	}
	regions := []Region{
		{Chrom: "chr1", Start: 1, Finish: 10},
		{Chrom: "chr1", Start: 10, Finish: 20},
	}
	results, err := Run(regions, openerFor(items), func(region Region, it iterator.Iterator) (float64, error) {
		s, err := integrate.Compute(it)
		if err != nil {
			return 0, err
		}
		return s.Mean(), nil
	})
	assert.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, 2.0, results[0].Value)
	assert.Equal(t, 4.0, results[1].Value)
}

func TestProfileRescalesToFixedBinsAndReversesOnMinusStrand(t *testing.T) {
	items := []iterator.Interval{
		iv("chr1", 1, 11, 1),
		iv("chr1", 11, 21, 5),
	}
	fwd := Region{Chrom: "chr1", Start: 1, Finish: 21, Strand: iterator.StrandFwd}
	rev := Region{Chrom: "chr1", Start: 1, Finish: 21, Strand: iterator.StrandRev}

	profiles, err := Profile([]Region{fwd, rev}, openerFor(items), 2)
	assert.NoError(t, err)
	assert.Len(t, profiles, 2)
	assert.InDelta(t, 1.0, profiles[0][0], 1e-9)
	assert.InDelta(t, 5.0, profiles[0][1], 1e-9)
	// reverse-strand region reads the same bins back to front
	assert.InDelta(t, 5.0, profiles[1][0], 1e-9)
	assert.InDelta(t, 1.0, profiles[1][1], 1e-9)
}
