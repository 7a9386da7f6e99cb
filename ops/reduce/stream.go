// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package reduce

import (
	"github.com/grailbio/wiggletools/iterator"
	"github.com/grailbio/wiggletools/ops/multiplex"
)

// Stream wraps a multiplex.Multiplexer with a Func, emitting one
// single-valued Interval per span the reducer chooses to keep -- the
// §4.8 "reduce" operator over a set of tracks. Spans a Func marks
// ok=false (Select on an absent slot, FillIn trimmed against an absent
// mask) are skipped entirely rather than reported with a placeholder
// value, same as multiplex.Multiplexer's own strict-mode skip.
type Stream struct {
	iterator.Base
	mux *multiplex.Multiplexer
	fn  Func
}

// NewStream returns a Stream applying fn to every row mux produces. def
// should be fn's default_value, computed by the caller via DefaultOf
// from mux's sources' defaults.
func NewStream(mux *multiplex.Multiplexer, fn Func, def float64) *Stream {
	s := &Stream{mux: mux, fn: fn}
	s.Base = iterator.NewBase(def, false)
	s.advance()
	return s
}

func (s *Stream) advance() {
	for !s.mux.Done() {
		row := s.mux.CurrentRow()
		value, ok := s.fn(row.Values, row.Present)
		s.mux.Pop()
		if !ok {
			continue
		}
		s.Set(row.Chrom, row.Start, row.Finish, value, iterator.StrandNone)
		return
	}
	if err := s.mux.Err(); err != nil {
		s.Fail(err)
		return
	}
	s.MarkDone()
}

func (s *Stream) Pop() {
	if s.Done() {
		return
	}
	s.advance()
}

// Seek is unsupported: a reduced stream mixes every input source at
// each span, so it cannot honor an arbitrary start without reseeking
// every source and rebuilding the multiplexer.
func (s *Stream) Seek(chrom string, start, finish iterator.Pos) {
	s.Fail(iterator.ErrSeekUnsupported)
}

func (s *Stream) Close() error { return s.mux.Close() }
