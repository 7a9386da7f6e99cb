// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package vcf implements the variant call leaf reader of SPEC_FULL.md
// §4.2/§6: one unit-value interval per record, at the call position.
// Binary BCF decoding is out of scope (same "format decoder internals are
// an external collaborator" boundary spec.md draws around compressed
// indexed formats); this reader handles plain VCF text, tokenized with
// the same allocation-free scan readers/bed and readers/step use.
package vcf

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
	// variant record.
	Default float64
}

// Reader is an iterator.Iterator over a VCF file's call positions.
type Reader struct {
	iterator.Base

	path    string
	opts    Options
	opened  *openfile.Opened
	scanner *bufio.Scanner
	lineNo  int

	chrom      string
	chromBytes []byte
	haveSorted bool
	prevChrom  string
	prevStart  iterator.Pos
}

// New opens path and returns a Reader positioned at its first record.
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

func (r *Reader) internChrom(name []byte) string {
	if r.chromBytes != nil && bytes.Equal(r.chromBytes, name) {
		return r.chrom
	}
	s := string(name)
	r.chromBytes = append(r.chromBytes[:0], name...)
	r.chrom = s
	return s
}

func (r *Reader) advance() {
	var tokens [2][]byte
	for r.scanner.Scan() {
		r.lineNo++
		line := r.scanner.Bytes()
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		n := asciiscan.Tokens(tokens[:], line)
		if n < 2 {
			r.Fail(fmt.Errorf("vcf: %s:%d: expected at least CHROM, POS columns", r.path, r.lineNo))
			return
		}
		pos, err := strconv.Atoi(string(tokens[1]))
		if err != nil {
			r.Fail(fmt.Errorf("vcf: %s:%d: bad POS: %w", r.path, r.lineNo, err))
			return
		}
		chrom := r.internChrom(tokens[0])
		start := iterator.Pos(pos)
		if r.haveSorted && chrom == r.prevChrom && start < r.prevStart {
			r.Fail(fmt.Errorf("vcf: %s:%d: unsorted input: POS %d precedes previous POS %d on %s",
				r.path, r.lineNo, pos, r.prevStart, chrom))
			return
		}
		r.prevChrom, r.prevStart, r.haveSorted = chrom, start, true
		r.Set(chrom, start, start+1, 1.0, iterator.StrandNone)
		return
	}
	if err := r.scanner.Err(); err != nil {
		r.Fail(err)
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

// Seek reopens the file and scans forward; VCF text is not indexed.
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
	}
}

// Close implements iterator.Iterator.
func (r *Reader) Close() error {
	if r.opened != nil {
		return r.opened.Close()
	}
	return nil
}
