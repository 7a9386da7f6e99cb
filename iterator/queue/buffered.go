// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package queue

import "github.com/grailbio/wiggletools/iterator"

// Buffered wraps src with a background goroutine that decodes ahead into
// a BlockQueue, implementing SPEC_FULL.md §4.3's bounded producer/
// consumer stage: a slow leaf reader (disk I/O, decompression) runs
// concurrently with its consumer instead of blocking it record by
// record.
type Buffered struct {
	iterator.Base
	src     iterator.Iterator
	q       *BlockQueue
	block   *Block
	idx     int
	stopped chan struct{}
}

// NewBuffered starts a goroutine draining src in batches of BlockSize
// into a queue of the given depth (in blocks), and returns an Iterator
// over the result.
func NewBuffered(src iterator.Iterator, depth int) *Buffered {
	b := &Buffered{src: src, q: New(depth)}
	b.Base = iterator.NewBase(src.Default(), src.Overlaps())
	b.start()
	b.advance()
	return b
}

func (b *Buffered) start() {
	b.stopped = make(chan struct{})
	go b.produce()
}

func (b *Buffered) produce() {
	defer close(b.stopped)
	defer b.q.Close()
	batch := make([]iterator.Interval, 0, BlockSize)
	for !b.src.Done() {
		batch = append(batch, iterator.Interval{
			Chrom: b.src.Chrom(), Start: b.src.Start(), Finish: b.src.Finish(),
			Value: b.src.Value(), Strand: b.src.StrandOf(),
		})
		b.src.Pop()
		if len(batch) == BlockSize {
			if err := b.q.Send(&Block{Intervals: batch}); err != nil {
				return
			}
			batch = make([]iterator.Interval, 0, BlockSize)
		}
	}
	if err := b.src.Err(); err != nil {
		b.q.Send(&Block{Err: err})
		return
	}
	if len(batch) > 0 {
		if err := b.q.Send(&Block{Intervals: batch}); err != nil {
			return
		}
	}
}

func (b *Buffered) advance() {
	for b.block == nil || b.idx >= len(b.block.Intervals) {
		blk, ok := b.q.Recv()
		if !ok {
			b.MarkDone()
			return
		}
		if blk.Err != nil {
			b.Fail(blk.Err)
			return
		}
		b.block, b.idx = blk, 0
	}
	iv := b.block.Intervals[b.idx]
	b.idx++
	b.Set(iv.Chrom, iv.Start, iv.Finish, iv.Value, iv.Strand)
}

// Pop implements iterator.Iterator.
func (b *Buffered) Pop() {
	if b.Done() {
		return
	}
	b.advance()
}

// Seek cancels the in-flight producer, drains any queued blocks, then
// restarts production from src.Seek's new position -- the seek-
// cancellation protocol §4.3/§5 describes for the original engine's
// pthread-based queue, reimplemented over channels.
func (b *Buffered) Seek(chrom string, start, finish iterator.Pos) {
	b.q.Cancel()
	b.q.Drain()
	<-b.stopped // wait for the producer to stop touching b.src
	b.src.Seek(chrom, start, finish)
	b.q = New(cap(b.q.blocks))
	b.block, b.idx = nil, 0
	b.start()
	b.advance()
}

// Close closes the underlying source; the producer goroutine observes
// this indirectly once it next calls a src method, per src's own Close
// contract.
func (b *Buffered) Close() error { return b.src.Close() }
