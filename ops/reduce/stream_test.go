// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package reduce

import (
	"math"
	"testing"

	"github.com/grailbio/wiggletools/iterator"
	"github.com/grailbio/wiggletools/ops/multiplex"
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

func (s *slice) Seek(chrom string, start, finish iterator.Pos) {}
func (s *slice) Close() error                                  { return nil }

func iv(chrom string, start, finish iterator.Pos, value float64) iterator.Interval {
	return iterator.Interval{Chrom: chrom, Start: start, Finish: finish, Value: value}
}

// TestStreamSum covers scenario E1: summing two tracks into a single
// stream, NaN-absorbing across the gaps where only one source is in
// play.
func TestStreamSum(t *testing.T) {
	a := newSlice([]iterator.Interval{iv("chr1", 1, 10, 1)}, math.NaN())
	b := newSlice([]iterator.Interval{iv("chr1", 5, 15, 2)}, math.NaN())
	mux := multiplex.New([]iterator.Iterator{a, b}, false)
	st := NewStream(mux, Sum, DefaultOf(Sum, []float64{math.NaN(), math.NaN()}))

	out, err := iterator.CollectAll(st)
	assert.NoError(t, err)
	assert.Equal(t, 3, len(out))
	assert.True(t, math.IsNaN(out[0].Value))
	assert.Equal(t, 3.0, out[1].Value)
	assert.True(t, math.IsNaN(out[2].Value))
	assert.Equal(t, iterator.Pos(5), out[1].Start)
	assert.Equal(t, iterator.Pos(10), out[1].Finish)
}

// TestStreamStrictModeSkipsPartialSpans covers scenario E2: the same
// two tracks reduced in strict mode report only the span where both are
// in play.
func TestStreamStrictModeSkipsPartialSpans(t *testing.T) {
	a := newSlice([]iterator.Interval{iv("chr1", 1, 10, 1)}, math.NaN())
	b := newSlice([]iterator.Interval{iv("chr1", 5, 15, 2)}, math.NaN())
	mux := multiplex.New([]iterator.Iterator{a, b}, true)
	st := NewStream(mux, Sum, DefaultOf(Sum, []float64{math.NaN(), math.NaN()}))

	out, err := iterator.CollectAll(st)
	assert.NoError(t, err)
	assert.Equal(t, []iterator.Interval{
		{Chrom: "chr1", Start: 5, Finish: 10, Value: 3, Strand: iterator.StrandNone},
	}, out)
}

// TestStreamMean covers scenario E3: averaging two tracks whose gaps
// fall back to a finite default rather than NaN.
func TestStreamMean(t *testing.T) {
	a := newSlice([]iterator.Interval{iv("chr1", 1, 10, 10)}, 0)
	b := newSlice([]iterator.Interval{iv("chr1", 5, 15, 20)}, 0)
	mux := multiplex.New([]iterator.Iterator{a, b}, false)
	st := NewStream(mux, Mean, DefaultOf(Mean, []float64{0, 0}))

	out, err := iterator.CollectAll(st)
	assert.NoError(t, err)
	assert.Equal(t, []iterator.Interval{
		{Chrom: "chr1", Start: 1, Finish: 5, Value: 5, Strand: iterator.StrandNone},
		{Chrom: "chr1", Start: 5, Finish: 10, Value: 15, Strand: iterator.StrandNone},
		{Chrom: "chr1", Start: 10, Finish: 15, Value: 10, Strand: iterator.StrandNone},
	}, out)
}

func TestStreamSeekUnsupported(t *testing.T) {
	a := newSlice([]iterator.Interval{iv("chr1", 0, 10, 1)}, 0)
	mux := multiplex.New([]iterator.Iterator{a}, false)
	st := NewStream(mux, Sum, 0)
	st.Seek("chr1", 2, 5)
	assert.Equal(t, iterator.ErrSeekUnsupported, st.Err())
}
