// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package queue

import (
	"testing"

	"github.com/grailbio/wiggletools/iterator"
	"github.com/stretchr/testify/assert"
)

func TestBlockQueueSendRecvInOrder(t *testing.T) {
	q := New(2)
	a := &Block{Intervals: []iterator.Interval{{Chrom: "chr1", Start: 1, Finish: 2}}}
	b := &Block{Intervals: []iterator.Interval{{Chrom: "chr1", Start: 2, Finish: 3}}}
	assert.NoError(t, q.Send(a))
	assert.NoError(t, q.Send(b))
	q.Close()

	got, ok := q.Recv()
	assert.True(t, ok)
	assert.Same(t, a, got)
	got, ok = q.Recv()
	assert.True(t, ok)
	assert.Same(t, b, got)
	_, ok = q.Recv()
	assert.False(t, ok)
}

func TestBlockQueueCancelUnblocksSend(t *testing.T) {
	q := New(1)
	assert.NoError(t, q.Send(&Block{})) // fills the one slot
	q.Cancel()
	done := make(chan error, 1)
	go func() { done <- q.Send(&Block{}) }()
	assert.Equal(t, ErrCancelled, <-done)
}

type fakeSrc struct {
	iterator.Base
	items     []iterator.Interval
	idx       int
	seekCalls []iterator.Interval
	closed    bool
}

func newFakeSrc(items []iterator.Interval) *fakeSrc {
	s := &fakeSrc{items: items}
	s.Base = iterator.NewBase(0, false)
	s.advance()
	return s
}

func (s *fakeSrc) advance() {
	if s.idx >= len(s.items) {
		s.MarkDone()
		return
	}
	iv := s.items[s.idx]
	s.idx++
	s.Set(iv.Chrom, iv.Start, iv.Finish, iv.Value, iv.Strand)
}

func (s *fakeSrc) Pop() {
	if s.Done() {
		return
	}
	s.advance()
}

func (s *fakeSrc) Seek(chrom string, start, finish iterator.Pos) {
	s.seekCalls = append(s.seekCalls, iterator.Interval{Chrom: chrom, Start: start, Finish: finish})
	s.idx = 0
	for s.idx < len(s.items) && (s.items[s.idx].Chrom != chrom || s.items[s.idx].Finish <= start) {
		s.idx++
	}
	s.advance()
}

func (s *fakeSrc) Close() error { s.closed = true; return nil }

func TestBufferedReplaysSourceInOrder(t *testing.T) {
	src := newFakeSrc([]iterator.Interval{
		{Chrom: "chr1", Start: 1, Finish: 2, Value: 1},
		{Chrom: "chr1", Start: 2, Finish: 3, Value: 2},
		{Chrom: "chr1", Start: 3, Finish: 4, Value: 3},
	})
	b := NewBuffered(src, 1)
	out, err := iterator.CollectAll(b)
	assert.NoError(t, err)
	assert.Equal(t, []iterator.Interval{
		{Chrom: "chr1", Start: 1, Finish: 2, Value: 1},
		{Chrom: "chr1", Start: 2, Finish: 3, Value: 2},
		{Chrom: "chr1", Start: 3, Finish: 4, Value: 3},
	}, out)
}

func TestBufferedSeekRestartsFromSource(t *testing.T) {
	src := newFakeSrc([]iterator.Interval{
		{Chrom: "chr1", Start: 1, Finish: 2, Value: 1},
		{Chrom: "chr1", Start: 2, Finish: 3, Value: 2},
		{Chrom: "chr2", Start: 1, Finish: 2, Value: 9},
	})
	b := NewBuffered(src, 1)
	b.Seek("chr2", 1, 2)
	assert.False(t, b.Done())
	assert.Equal(t, "chr2", b.Chrom())
	assert.Equal(t, 9.0, b.Value())
	assert.Len(t, src.seekCalls, 1)
	assert.Equal(t, "chr2", src.seekCalls[0].Chrom)
}

func TestBufferedCloseClosesSource(t *testing.T) {
	src := newFakeSrc(nil)
	b := NewBuffered(src, 1)
	assert.NoError(t, b.Close())
	assert.True(t, src.closed)
}
