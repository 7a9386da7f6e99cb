// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package bed implements the "sorted interval list" leaf reader of
// SPEC_FULL.md §4.2/§6: lines of `chrom start end [name score strand]` in
// 0-based half-open coordinates. Output intervals have value 1 unless
// Options.ScoreColumn selects a numeric score column.
package bed

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/grailbio/wiggletools/internal/asciiscan"
	"github.com/grailbio/wiggletools/internal/openfile"
	"github.com/grailbio/wiggletools/iterator"
)

// Options configures a Reader.
type Options struct {
	// ScoreColumn causes column 5 (1-indexed: chrom start end name score
	// strand) to be parsed as the interval value, instead of the default
	// constant 1.
	ScoreColumn bool
	// Default is the value reported for positions not covered by any
	// interval in the file.
	Default float64
}

// Reader is an iterator.Iterator over a sorted BED-like file.
type Reader struct {
	iterator.Base

	path    string
	opts    Options
	opened  *openfile.Opened
	scanner *bufio.Scanner
	lineNo  int

	lastChrom      string
	lastChromBytes []byte
	prevStart      iterator.Pos
	haveSeenChrom  bool
}

// New opens path and returns a Reader positioned at its first interval.
func New(ctx context.Context, path string, opts Options) (*Reader, error) {
	r := &Reader{path: path, opts: opts}
	if err := r.reopen(ctx); err != nil {
		return nil, err
	}
	r.Base = iterator.NewBase(opts.Default, false)
	r.advance()
	return r, nil
}

func (r *Reader) reopen(ctx context.Context) error {
	if r.opened != nil {
		r.opened.Close()
	}
	opened, err := openfile.Open(ctx, r.path)
	if err != nil {
		return err
	}
	r.opened = opened
	r.scanner = opened.Scanner()
	r.lineNo = 0
	r.lastChrom = ""
	r.lastChromBytes = nil
	r.haveSeenChrom = false
	return nil
}

// advance scans the next well-formed line into the Base's current fields,
// or marks the Reader Done/errored.
func (r *Reader) advance() {
	var tokens [6][]byte
	for r.scanner.Scan() {
		r.lineNo++
		line := r.scanner.Bytes()
		n := asciiscan.Tokens(tokens[:], line)
		if n == 0 {
			continue
		}
		if n < 3 {
			r.Fail(fmt.Errorf("bed: %s:%d: expected at least 3 columns, got %d", r.path, r.lineNo, n))
			return
		}
		start0, err := strconv.Atoi(string(tokens[1]))
		if err != nil {
			r.Fail(fmt.Errorf("bed: %s:%d: bad start coordinate: %w", r.path, r.lineNo, err))
			return
		}
		end0, err := strconv.Atoi(string(tokens[2]))
		if err != nil {
			r.Fail(fmt.Errorf("bed: %s:%d: bad end coordinate: %w", r.path, r.lineNo, err))
			return
		}
		if end0 <= start0 {
			r.Fail(fmt.Errorf("bed: %s:%d: non-positive-length interval [%d,%d)", r.path, r.lineNo, start0, end0))
			return
		}
		value := 1.0
		if r.opts.ScoreColumn {
			if n < 5 {
				r.Fail(fmt.Errorf("bed: %s:%d: score column requested but only %d columns present", r.path, r.lineNo, n))
				return
			}
			value, err = strconv.ParseFloat(string(tokens[4]), 64)
			if err != nil {
				r.Fail(fmt.Errorf("bed: %s:%d: bad score: %w", r.path, r.lineNo, err))
				return
			}
		}

		chrom := r.internChrom(tokens[0])
		start := iterator.Pos(start0) + 1
		finish := iterator.Pos(end0) + 1

		if chrom == r.lastChrom && r.haveSeenChrom {
			if start < r.prevStart {
				r.Fail(fmt.Errorf("bed: %s:%d: unsorted input: start %d precedes previous start %d on %s",
					r.path, r.lineNo, start0, r.prevStart-1, chrom))
				return
			}
		}
		r.lastChrom, r.haveSeenChrom = chrom, true
		r.prevStart = start

		r.Set(chrom, start, finish, value, iterator.StrandNone)
		return
	}
	if err := r.scanner.Err(); err != nil {
		r.Fail(err)
		return
	}
	r.MarkDone()
}

// internChrom returns a string for name, reusing the previous chromosome's
// allocation when name names the same chromosome -- the reader only
// allocates a fresh string on an actual chromosome change, matching the
// "fresh allocation on chromosome change" lifetime rule of §3.
func (r *Reader) internChrom(name []byte) string {
	if r.lastChromBytes != nil && bytes.Equal(r.lastChromBytes, name) {
		return r.lastChrom
	}
	s := string(name)
	r.lastChromBytes = append(r.lastChromBytes[:0], name...)
	return s
}

// Pop implements iterator.Iterator.
func (r *Reader) Pop() {
	if r.Done() {
		return
	}
	r.advance()
}

// Seek implements iterator.Iterator by reopening the file and scanning
// forward, since BED is not indexed. The first overlapping interval is
// clipped up to start; later clipping to finish happens naturally once
// the caller stops Popping past finish.
func (r *Reader) Seek(chrom string, start, finish iterator.Pos) {
	ctx := context.Background()
	if err := r.reopen(ctx); err != nil {
		r.Fail(err)
		return
	}
	r.advance()
	for !r.Done() {
		if r.Chrom() == chrom && r.Finish() > start {
			break
		}
		if r.Chrom() > chrom {
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
	if r.opened != nil {
		return r.opened.Close()
	}
	return nil
}
