// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package step implements the ASCII step/graph leaf reader of
// SPEC_FULL.md §4.2/§6: `variableStep`/`fixedStep` headers followed by
// value lines, interleaved with standalone four-column graph lines.
// Tokenizing follows the same single-pass, allocation-free scan as
// readers/bed (internal/asciiscan), generalized from 3 columns to the
// variable shapes step/graph lines take.
package step

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/wiggletools/internal/asciiscan"
	"github.com/grailbio/wiggletools/internal/openfile"
	"github.com/grailbio/wiggletools/iterator"
)

// Options configures a Reader.
type Options struct {
	// Default is the value reported for positions not covered by any
	// interval in the file.
	Default float64
}

type mode int

const (
	modeNone mode = iota
	modeFixed
	modeVariable
)

// Reader is an iterator.Iterator over an ASCII step/graph file.
type Reader struct {
	iterator.Base

	path    string
	opts    Options
	opened  *openfile.Opened
	scanner *bufio.Scanner
	lineNo  int

	mode        mode
	chrom       string
	chromBytes  []byte
	span        iterator.Pos
	fixedNext   iterator.Pos
	fixedStep   iterator.Pos
	haveSorted  bool
	prevChrom   string
	prevStart   iterator.Pos
}

// New opens path and returns a Reader positioned at its first interval.
func New(ctx context.Context, path string, opts Options) (*Reader, error) {
	r := &Reader{path: path, opts: opts}
	opened, err := openfile.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	r.opened = opened
	r.scanner = opened.Scanner()
	r.Base = iterator.NewBase(opts.Default, false)
	r.advance()
	return r, nil
}

func (r *Reader) fail(format string, args ...interface{}) {
	r.Fail(fmt.Errorf("step: %s:%d: "+format, append([]interface{}{r.path, r.lineNo}, args...)...))
}

func (r *Reader) checkSorted(chrom string, start iterator.Pos) bool {
	if r.haveSorted && chrom == r.prevChrom && start < r.prevStart {
		r.fail("unsorted input: position %d precedes previous position %d on %s", start, r.prevStart, chrom)
		return false
	}
	r.prevChrom, r.prevStart, r.haveSorted = chrom, start, true
	return true
}

func (r *Reader) internChrom(name []byte) string {
	if r.chromBytes != nil && bytes.Equal(r.chromBytes, name) {
		return r.chrom
	}
	s := string(name)
	r.chromBytes = append(r.chromBytes[:0], name...)
	r.chrom = s
	return s
}

func parseHeaderField(tokens [][]byte, key string) (string, bool) {
	prefix := key + "="
	for _, t := range tokens {
		if bytes.HasPrefix(t, []byte(prefix)) {
			return string(t[len(prefix):]), true
		}
	}
	return "", false
}

// advance scans forward until it can establish the next interval, or the
// stream is exhausted/errored.
func (r *Reader) advance() {
	var tokens [8][]byte
	for {
		if r.mode == modeFixed {
			if !r.scanner.Scan() {
				break
			}
			r.lineNo++
			line := bytes.TrimSpace(r.scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			if looksLikeHeader(line) {
				r.mode = modeNone
				// fall through to header parsing below on this same line
			} else {
				value, err := strconv.ParseFloat(string(line), 64)
				if err != nil {
					r.fail("bad fixedStep value: %v", err)
					return
				}
				start := r.fixedNext
				finish := start + r.span
				r.fixedNext += r.fixedStep
				if !r.checkSorted(r.chrom, start) {
					return
				}
				r.Set(r.chrom, start, finish, value, iterator.StrandNone)
				return
			}
		}
		if !r.scanner.Scan() {
			break
		}
		r.lineNo++
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		n := asciiscan.Tokens(tokens[:], line)
		if n == 0 {
			continue
		}
		switch string(tokens[0]) {
		case "fixedStep":
			chromStr, ok := parseHeaderField(tokens[:n], "chrom")
			if !ok {
				r.fail("fixedStep header missing chrom=")
				return
			}
			startStr, ok := parseHeaderField(tokens[:n], "start")
			if !ok {
				r.fail("fixedStep header missing start=")
				return
			}
			start, err := strconv.Atoi(startStr)
			if err != nil {
				r.fail("bad fixedStep start=: %v", err)
				return
			}
			step := 1
			if stepStr, ok := parseHeaderField(tokens[:n], "step"); ok {
				if step, err = strconv.Atoi(stepStr); err != nil {
					r.fail("bad fixedStep step=: %v", err)
					return
				}
			}
			span := 1
			if spanStr, ok := parseHeaderField(tokens[:n], "span"); ok {
				if span, err = strconv.Atoi(spanStr); err != nil {
					r.fail("bad fixedStep span=: %v", err)
					return
				}
			}
			r.internChrom([]byte(chromStr))
			r.mode = modeFixed
			r.fixedNext = iterator.Pos(start)
			r.fixedStep = iterator.Pos(step)
			r.span = iterator.Pos(span)
			r.haveSorted = false
			continue
		case "variableStep":
			chromStr, ok := parseHeaderField(tokens[:n], "chrom")
			if !ok {
				r.fail("variableStep header missing chrom=")
				return
			}
			span := 1
			var err error
			if spanStr, ok := parseHeaderField(tokens[:n], "span"); ok {
				if span, err = strconv.Atoi(spanStr); err != nil {
					r.fail("bad variableStep span=: %v", err)
					return
				}
			}
			r.internChrom([]byte(chromStr))
			r.mode = modeVariable
			r.span = iterator.Pos(span)
			r.haveSorted = false
			continue
		default:
			if r.mode == modeVariable {
				if n < 2 {
					r.fail("variableStep data line needs 2 columns, got %d", n)
					return
				}
				pos, err := strconv.Atoi(string(tokens[0]))
				if err != nil {
					r.fail("bad variableStep position: %v", err)
					return
				}
				value, err := strconv.ParseFloat(string(tokens[1]), 64)
				if err != nil {
					r.fail("bad variableStep value: %v", err)
					return
				}
				start := iterator.Pos(pos)
				if !r.checkSorted(r.chrom, start) {
					return
				}
				r.Set(r.chrom, start, start+r.span, value, iterator.StrandNone)
				return
			}
			// Four-column graph line: chrom start end value, 0-based half-open.
			if n != 4 {
				r.fail("unrecognized line (want 4-column graph line or a step header)")
				return
			}
			start0, err := strconv.Atoi(string(tokens[1]))
			if err != nil {
				r.fail("bad graph start: %v", err)
				return
			}
			end0, err := strconv.Atoi(string(tokens[2]))
			if err != nil {
				r.fail("bad graph end: %v", err)
				return
			}
			if end0 <= start0 {
				r.fail("non-positive-length graph interval [%d,%d)", start0, end0)
				return
			}
			value, err := strconv.ParseFloat(string(tokens[3]), 64)
			if err != nil {
				r.fail("bad graph value: %v", err)
				return
			}
			chrom := r.internChrom(tokens[0])
			start := iterator.Pos(start0) + 1
			finish := iterator.Pos(end0) + 1
			if !r.checkSorted(chrom, start) {
				return
			}
			r.mode = modeNone
			r.Set(chrom, start, finish, value, iterator.StrandNone)
			return
		}
	}
	if err := r.scanner.Err(); err != nil {
		r.Fail(err)
		return
	}
	r.MarkDone()
}

func looksLikeHeader(line []byte) bool {
	return bytes.HasPrefix(line, []byte("fixedStep")) || bytes.HasPrefix(line, []byte("variableStep"))
}

// Pop implements iterator.Iterator.
func (r *Reader) Pop() {
	if r.Done() {
		return
	}
	r.advance()
}

// Seek reopens the file and scans forward, since ASCII step/graph is not
// indexed; see readers/bed.Reader.Seek for the same trade-off (only the
// window's leading edge is clipped).
func (r *Reader) Seek(chrom string, start, finish iterator.Pos) {
	ctx := context.Background()
	if r.opened != nil {
		r.opened.Close()
	}
	opened, err := openfile.Open(ctx, r.path)
	if err != nil {
		r.Fail(err)
		return
	}
	r.opened = opened
	r.scanner = opened.Scanner()
	r.lineNo = 0
	r.mode = modeNone
	r.haveSorted = false
	r.advance()
	for !r.Done() {
		if r.Chrom() == chrom && r.Finish() > start {
			break
		}
		if strings.Compare(r.Chrom(), chrom) > 0 {
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
