// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package queue implements the bounded block queue that decouples a
// background decoder (a leaf reader's format-specific parser, or the
// writer's ASCII formatter) from its single foreground consumer.
//
// The original engine built this out of a pthread mutex, two condition
// variables ("not empty", "not full") and a kill sentinel. Go's buffered
// channels already are a bounded mutex+condvar pair, so BlockQueue is a
// thin wrapper around one: Send blocks the producer when the channel is
// full, Recv blocks the consumer when it is empty, and Cancel substitutes
// for the kill sentinel by closing a side channel the producer selects on.
package queue

import (
	"github.com/grailbio/base/errors"
	"github.com/grailbio/wiggletools/iterator"
)

// BlockSize is the default number of intervals batched per block, chosen
// (per the spec) to amortize queue signaling overhead.
const BlockSize = 10000

// MaxHeadStart is the default queue depth: how many decoded blocks the
// producer is allowed to get ahead of the consumer.
const MaxHeadStart = 4

// ErrCancelled is returned by a producer's Send after Cancel has been
// called.
var ErrCancelled = errors.New("queue: cancelled")

// Block is one batch of intervals moving through the queue. Ownership of
// the slice transfers to whichever side currently holds the Block.
type Block struct {
	Intervals []iterator.Interval
	Err       error // set by the producer on decode failure
}

// BlockQueue is a single-producer, single-consumer bounded FIFO of
// *Block. It is not safe for multiple producers or multiple consumers.
type BlockQueue struct {
	blocks chan *Block
	cancel chan struct{}
	done   chan struct{}
}

// New returns a queue with the given capacity (in blocks).
func New(capacity int) *BlockQueue {
	if capacity <= 0 {
		capacity = MaxHeadStart
	}
	return &BlockQueue{
		blocks: make(chan *Block, capacity),
		cancel: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Send delivers a block to the consumer, blocking while the queue is
// full. It returns ErrCancelled if Cancel is called before the block can
// be enqueued; the caller must stop producing and return. Send must not
// be called after Close.
func (q *BlockQueue) Send(b *Block) error {
	select {
	case q.blocks <- b:
		return nil
	case <-q.cancel:
		return ErrCancelled
	}
}

// Recv returns the next block, blocking while the queue is empty. ok is
// false once the producer has called Close and no more blocks remain.
func (q *BlockQueue) Recv() (b *Block, ok bool) {
	b, ok = <-q.blocks
	return
}

// Close is called by the producer when its stream is exhausted: no more
// Sends will occur, and Recv will return ok=false once the queue drains.
func (q *BlockQueue) Close() {
	close(q.blocks)
}

// Cancel implements the seek-cancellation protocol of §4.3/§5: it wakes a
// producer blocked in Send (or about to block), causing Send to return
// ErrCancelled. The caller must then join the producer goroutine (e.g. via
// a sync.WaitGroup or <-done channel it owns) before relaunching with new
// seek parameters. Cancel must be called at most once per queue; calling
// it twice panics, matching the "kill flag is set atomically, once" model.
func (q *BlockQueue) Cancel() {
	close(q.cancel)
}

// Drain discards any blocks left in the queue after a Cancel, so the
// producer's goroutine (which may still be trying one last Send) does not
// deadlock against a full channel it is about to abandon.
func (q *BlockQueue) Drain() {
	for range q.blocks {
	}
}
