// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package multiplex

import (
	"math"
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

func TestMultiplexerMergesTwoSources(t *testing.T) {
	a := newSlice([]iterator.Interval{iv("chr1", 1, 10, 1)}, math.NaN())
	b := newSlice([]iterator.Interval{iv("chr1", 5, 15, 2)}, math.NaN())
	mux := New([]iterator.Iterator{a, b}, false)

	var rows []Row
	for !mux.Done() {
		rows = append(rows, mux.CurrentRow())
		mux.Pop()
	}
	assert.NoError(t, mux.Err())

	expected := []Row{
		{Chrom: "chr1", Start: 1, Finish: 5, Values: []float64{1, math.NaN()}, Present: []bool{true, false}},
		{Chrom: "chr1", Start: 5, Finish: 10, Values: []float64{1, 2}, Present: []bool{true, true}},
		{Chrom: "chr1", Start: 10, Finish: 15, Values: []float64{math.NaN(), 2}, Present: []bool{false, true}},
	}
	assert.Equal(t, normalizeNaN(expected), normalizeNaN(rows))
}

// normalizeNaN replaces NaN sentinels with a comparable placeholder so
// assert.Equal's deep comparison (which treats NaN != NaN) can be used
// against rows that legitimately contain NaN.
func normalizeNaN(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		values := make([]float64, len(r.Values))
		for j, v := range r.Values {
			if math.IsNaN(v) {
				v = math.Inf(1)
			}
			values[j] = v
		}
		out[i] = Row{Chrom: r.Chrom, Start: r.Start, Finish: r.Finish, Values: values, Present: r.Present}
	}
	return out
}

func TestMultiplexerAcrossChromosomes(t *testing.T) {
	a := newSlice([]iterator.Interval{iv("chr1", 1, 5, 1), iv("chr2", 1, 5, 3)}, 0)
	b := newSlice([]iterator.Interval{iv("chr2", 1, 5, 4)}, 0)
	mux := New([]iterator.Iterator{a, b}, false)

	row := mux.CurrentRow()
	assert.Equal(t, "chr1", row.Chrom)
	assert.Equal(t, []float64{1, 0}, row.Values)
	assert.Equal(t, []bool{true, false}, row.Present)
	mux.Pop()
	assert.True(t, mux.Done() == false)
	row = mux.CurrentRow()
	assert.Equal(t, "chr2", row.Chrom)
	assert.Equal(t, []float64{3, 4}, row.Values)
	assert.Equal(t, []bool{true, true}, row.Present)
}

func TestMultiplexerStrictModeSkipsPartialSpans(t *testing.T) {
	a := newSlice([]iterator.Interval{iv("chr1", 1, 10, 1)}, math.NaN())
	b := newSlice([]iterator.Interval{iv("chr1", 5, 15, 2)}, math.NaN())
	mux := New([]iterator.Iterator{a, b}, true)

	var rows []Row
	for !mux.Done() {
		rows = append(rows, mux.CurrentRow())
		mux.Pop()
	}
	assert.NoError(t, mux.Err())

	// Non-strict mode reports three spans (see
	// TestMultiplexerMergesTwoSources); strict mode keeps only the span
	// where both sources are in play.
	assert.Equal(t, []Row{
		{Chrom: "chr1", Start: 5, Finish: 10, Values: []float64{1, 2}, Present: []bool{true, true}},
	}, rows)
}
