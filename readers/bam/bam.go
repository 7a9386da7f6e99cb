// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package bam implements the alignment-archive leaf reader of
// SPEC_FULL.md §4.2: it adapts github.com/biogo/hts/bam-decoded records
// into a depth-of-coverage Iterator, exactly the role
// encoding/bamprovider.BAMProvider plays for record-level iteration in
// the teacher repo (a bamIterator with pre-fetched next/done/err fields).
// Record decoding itself -- CIGAR parsing, BGZF block decompression -- is
// the external collaborator's job (github.com/biogo/hts); what this
// package owns is turning decoded records into the run-length-encoded
// depth signal SPEC_FULL.md §4.2 specifies.
package bam

import (
	"context"
	"io"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/wiggletools/iterator"
)

// Mode selects which of the two alignment-derived signals §4.2 defines.
type Mode int

const (
	// ReadStart: value at position p is the number of alignments whose
	// leftmost mapped base equals p.
	ReadStart Mode = iota
	// Coverage: value at p is the number of alignments whose
	// matched/mismatched/deletion spans cover p.
	Coverage
)

// Options configures a Reader.
type Options struct {
	Mode Mode
	// MinMapQ excludes alignments below this mapping quality.
	MinMapQ byte
	// ExcludeFlags excludes alignments with any of these SAM flags set
	// (e.g. sam.Unmapped, sam.Secondary, sam.Duplicate).
	ExcludeFlags sam.Flags
}

// Reader is an iterator.Iterator over a BAM file's depth signal.
type Reader struct {
	iterator.Base

	path   string
	opts   Options
	in     file.File
	reader *bam.Reader

	sweep   *sweep
	pending []iterator.Interval
}

// New opens path and returns a Reader positioned at its first depth
// interval. No .bai index is opened; Seek is a linear rescan, see Seek.
func New(ctx context.Context, path string, opts Options) (*Reader, error) {
	r := &Reader{path: path, opts: opts}
	if err := r.open(ctx); err != nil {
		return nil, err
	}
	r.Base = iterator.NewBase(0, false)
	r.advance()
	return r, nil
}

func (r *Reader) open(ctx context.Context) error {
	in, err := file.Open(ctx, r.path)
	if err != nil {
		return err
	}
	reader, err := bam.NewReader(in.Reader(ctx), 1)
	if err != nil {
		in.Close(ctx)
		return err
	}
	r.in = in
	r.reader = reader
	r.sweep = newSweep(r.opts.Mode)
	return nil
}

func (r *Reader) keep(rec *sam.Record) bool {
	if rec.Flags&sam.Unmapped != 0 {
		return false
	}
	if r.opts.ExcludeFlags != 0 && rec.Flags&r.opts.ExcludeFlags != 0 {
		return false
	}
	if byte(rec.MapQ) < r.opts.MinMapQ {
		return false
	}
	return len(rec.Cigar) > 0
}

// advance refills r.pending as needed and pops its head into the current
// Base record.
func (r *Reader) advance() {
	for len(r.pending) == 0 {
		rec, err := r.reader.Read()
		if err != nil {
			r.pending = r.sweep.finish()
			if len(r.pending) == 0 {
				r.finishStream(err)
				return
			}
			break
		}
		if !r.keep(rec) {
			continue
		}
		out := r.sweep.feed(rec.Ref.Name(), iterator.Pos(rec.Pos)+1, rec.Cigar)
		if len(out) > 0 {
			r.pending = out
			break
		}
	}
	if len(r.pending) == 0 {
		r.MarkDone()
		return
	}
	iv := r.pending[0]
	r.pending = r.pending[1:]
	r.Set(iv.Chrom, iv.Start, iv.Finish, iv.Value, iterator.StrandNone)
}

func (r *Reader) finishStream(readErr error) {
	if readErr != nil && readErr != io.EOF {
		r.Fail(readErr)
		return
	}
	r.MarkDone()
}

// Pop implements iterator.Iterator.
func (r *Reader) Pop() {
	if r.Done() {
		return
	}
	r.advance()
}

// Seek reopens the BAM file and rescans from the start. A real deployment
// would use the .bai index (as encoding/bamprovider does, via
// bgzf.Chunk-level seeks) to jump directly to the query region; that
// optimization is the kind of decoder-internals work §1 puts out of
// scope, so this reader takes the always-correct, linear-rescan fallback
// every non-indexed leaf reader in this package uses.
func (r *Reader) Seek(chrom string, start, finish iterator.Pos) {
	ctx := vcontext.Background()
	if r.in != nil {
		r.in.Close(ctx)
	}
	if err := r.open(ctx); err != nil {
		r.Fail(err)
		return
	}
	r.pending = nil
	r.advance()
	for !r.Done() {
		if r.Chrom() == chrom && r.Finish() > start {
			break
		}
		r.Pop()
	}
	if r.Done() || r.Chrom() != chrom || r.Start() >= finish {
		r.MarkDone()
		return
	}
	clippedStart, clippedFinish := r.Start(), r.Finish()
	if clippedStart < start {
		clippedStart = start
	}
	if clippedFinish > finish {
		clippedFinish = finish
	}
	r.Set(r.Chrom(), clippedStart, clippedFinish, r.Value(), r.StrandOf())
}

// Close implements iterator.Iterator.
func (r *Reader) Close() error {
	if r.in != nil {
		return r.in.Close(vcontext.Background())
	}
	return nil
}
