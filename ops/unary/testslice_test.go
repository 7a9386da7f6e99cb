// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package unary

import "github.com/grailbio/wiggletools/iterator"

// slice is a minimal in-memory iterator.Iterator over a fixed list of
// intervals, used by this package's tests in place of a leaf reader.
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
