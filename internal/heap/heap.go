// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package heap provides the integer-keyed min-heap-with-duplicates that
// backs the multiplexer (ops/multiplex) and multiset (ops/multiset): a
// structure holding (position, iterator index) pairs that supports
// insert and extract-min in O(log n), with many entries legally sharing
// the same position key.
//
// The original engine used a Fibonacci heap for this; per the design
// notes any amortized-O(log n) min-heap with duplicate-key support
// suffices. We use the same left-leaning red-black tree
// (github.com/biogo/store/llrb) the teacher already reaches for to do a
// K-way merge by key (cmd/bio-bam-sort/sorter.internalMergeShards):
// duplicate positions are disambiguated by iterator index so the tree
// never needs to store a list per key.
package heap

import "github.com/biogo/store/llrb"

// Entry is one (position, iterator index) pair stored in a PosHeap.
type Entry struct {
	Pos int64
	Idx int
}

func (e Entry) Compare(other llrb.Comparable) int {
	o := other.(Entry)
	if e.Pos != o.Pos {
		if e.Pos < o.Pos {
			return -1
		}
		return 1
	}
	return e.Idx - o.Idx
}

// PosHeap is a min-heap of Entry, ordered by Pos then Idx, supporting
// duplicate Pos values.
type PosHeap struct {
	tree llrb.Tree
}

// Push inserts (pos, idx).
func (h *PosHeap) Push(pos int64, idx int) {
	h.tree.Insert(Entry{pos, idx})
}

// Len returns the number of entries in the heap.
func (h *PosHeap) Len() int { return h.tree.Len() }

// Min returns the smallest entry without removing it. ok is false if the
// heap is empty.
func (h *PosHeap) Min() (e Entry, ok bool) {
	c := h.tree.Min()
	if c == nil {
		return Entry{}, false
	}
	return c.(Entry), true
}

// Pop removes and returns the smallest entry. ok is false if the heap was
// empty.
func (h *PosHeap) Pop() (e Entry, ok bool) {
	c := h.tree.DeleteMin()
	if c == nil {
		return Entry{}, false
	}
	return c.(Entry), true
}

// Reset empties the heap.
func (h *PosHeap) Reset() { h.tree = llrb.Tree{} }
