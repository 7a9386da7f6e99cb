// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package bigwig implements the "indexed compressed track" leaf reader of
// SPEC_FULL.md §4.2/§6: a file holding, per chromosome, a zlib-compressed
// run of intervals plus a directory mapping chromosome name to that
// block's file offset and size -- the same three-part shape (magic
// header, chromosome index, compressed data blocks keyed by chromosome)
// as a UCSC bigWig file, simplified to a flat chromosome directory in
// place of bigWig's B+tree and to block-per-chromosome granularity
// (matching the random-access contract SPEC_FULL.md §6 actually asks for:
// "random access by chromosome, returns decompressed intervals").
//
// Decoding the real UCSC bigWig/bigBed wire format (R-tree chunk index,
// zoom summaries) is exactly the kind of decoder-internals work spec.md
// §1 names as an external collaborator; what belongs in this module is
// the pull interface such a decoder must implement (iterator.Iterator)
// plus a reference implementation exercising it, adapted from the header/
// chromList/zlib-block layout of the bigWig reference examined in
// DESIGN.md.
package bigwig

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/klauspost/compress/zlib"
	"github.com/grailbio/wiggletools/iterator"
	"github.com/pkg/errors"
)

// Magic identifies a wiggletools indexed track file.
const Magic uint32 = 0x57494758 // "WIGX" little-endian

// record is the fixed-width wire shape of one interval inside a
// decompressed chromosome block: 0-based half-open start/end (matching
// bigWig's own on-disk convention) plus a float64 value.
type record struct {
	Start0 uint32
	End0   uint32
	Value  float64
}

const recordSize = 4 + 4 + 8

type chromEntry struct {
	name             string
	length           uint32
	blockOffset      uint64
	blockCompLen     uint64
	blockRecordCount uint32
}

// Options configures a Reader.
type Options struct {
	Default float64
}

// Reader is an iterator.Iterator over a wiggletools indexed track file,
// visiting chromosomes in lexicographic order and, within each
// chromosome, intervals in position order -- per §4.2's "Chromosome
// iteration" rule for sources that expose a per-chromosome index.
type Reader struct {
	iterator.Base

	path   string
	opts   Options
	in     file.File
	chroms []chromEntry // sorted by name

	chromIdx int
	recs     []record
	recIdx   int
}

// New opens path and returns a Reader positioned at its first interval.
func New(ctx context.Context, path string, opts Options) (*Reader, error) {
	r := &Reader{path: path, opts: opts}
	if err := r.open(ctx); err != nil {
		return nil, err
	}
	r.Base = iterator.NewBase(opts.Default, false)
	r.chromIdx = -1
	r.advanceChrom(ctx)
	r.advance()
	return r, nil
}

func (r *Reader) open(ctx context.Context) error {
	in, err := file.Open(ctx, r.path)
	if err != nil {
		return err
	}
	r.in = in
	br := bufio.NewReader(in.Reader(ctx))
	var magic uint32
	if err := binary.Read(br, binary.LittleEndian, &magic); err != nil {
		return errors.Wrap(err, "bigwig: reading magic")
	}
	if magic != Magic {
		return fmt.Errorf("bigwig: %s: bad magic %#x", r.path, magic)
	}
	var nChrom uint32
	if err := binary.Read(br, binary.LittleEndian, &nChrom); err != nil {
		return errors.Wrap(err, "bigwig: reading chromosome count")
	}
	r.chroms = make([]chromEntry, nChrom)
	for i := range r.chroms {
		var nameLen uint16
		if err := binary.Read(br, binary.LittleEndian, &nameLen); err != nil {
			return errors.Wrap(err, "bigwig: reading chrom name length")
		}
		nameBuf := make([]byte, nameLen)
		if _, err := io.ReadFull(br, nameBuf); err != nil {
			return errors.Wrap(err, "bigwig: reading chrom name")
		}
		var e chromEntry
		e.name = string(nameBuf)
		if err := binary.Read(br, binary.LittleEndian, &e.length); err != nil {
			return errors.Wrap(err, "bigwig: reading chrom length")
		}
		if err := binary.Read(br, binary.LittleEndian, &e.blockOffset); err != nil {
			return errors.Wrap(err, "bigwig: reading block offset")
		}
		if err := binary.Read(br, binary.LittleEndian, &e.blockCompLen); err != nil {
			return errors.Wrap(err, "bigwig: reading block size")
		}
		if err := binary.Read(br, binary.LittleEndian, &e.blockRecordCount); err != nil {
			return errors.Wrap(err, "bigwig: reading block record count")
		}
		r.chroms[i] = e
	}
	sort.Slice(r.chroms, func(i, j int) bool { return r.chroms[i].name < r.chroms[j].name })
	return nil
}

// readChromBlock seeks to the given chromosome's compressed block,
// decompresses it, and returns its records in position order.
func (r *Reader) readChromBlock(ctx context.Context, e chromEntry) ([]record, error) {
	sr, ok := r.in.Reader(ctx).(interface {
		ReadAt(p []byte, off int64) (int, error)
	})
	var raw []byte
	if ok {
		raw = make([]byte, e.blockCompLen)
		if _, err := sr.ReadAt(raw, int64(e.blockOffset)); err != nil {
			return nil, errors.Wrapf(err, "bigwig: reading block for %s", e.name)
		}
	} else {
		return nil, fmt.Errorf("bigwig: %s: underlying file does not support random access", r.path)
	}
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrapf(err, "bigwig: decompressing block for %s", e.name)
	}
	defer zr.Close()
	recs := make([]record, e.blockRecordCount)
	for i := range recs {
		if err := binary.Read(zr, binary.LittleEndian, &recs[i]); err != nil {
			return nil, errors.Wrapf(err, "bigwig: decoding record %d of %s", i, e.name)
		}
	}
	return recs, nil
}

func (r *Reader) advanceChrom(ctx context.Context) bool {
	r.chromIdx++
	for r.chromIdx < len(r.chroms) {
		e := r.chroms[r.chromIdx]
		if e.blockRecordCount == 0 {
			r.chromIdx++
			continue
		}
		recs, err := r.readChromBlock(ctx, e)
		if err != nil {
			r.Fail(err)
			return false
		}
		r.recs = recs
		r.recIdx = 0
		return true
	}
	r.recs = nil
	return false
}

func (r *Reader) advance() {
	ctx := vcontext.Background()
	for {
		if r.recIdx < len(r.recs) {
			rec := r.recs[r.recIdx]
			r.recIdx++
			chrom := r.chroms[r.chromIdx].name
			r.Set(chrom, iterator.Pos(rec.Start0)+1, iterator.Pos(rec.End0)+1, rec.Value, iterator.StrandNone)
			return
		}
		if r.Err() != nil {
			return
		}
		if !r.advanceChrom(ctx) {
			r.MarkDone()
			return
		}
	}
}

// Pop implements iterator.Iterator.
func (r *Reader) Pop() {
	if r.Done() {
		return
	}
	r.advance()
}

// Seek jumps directly to the requested chromosome's block (the
// random-access granularity this format's index supports) and scans
// within it to the first overlapping record.
func (r *Reader) Seek(chrom string, start, finish iterator.Pos) {
	ctx := vcontext.Background()
	idx := sort.Search(len(r.chroms), func(i int) bool { return r.chroms[i].name >= chrom })
	if idx == len(r.chroms) || r.chroms[idx].name != chrom {
		r.MarkDone()
		return
	}
	r.chromIdx = idx - 1
	if !r.advanceChrom(ctx) {
		r.MarkDone()
		return
	}
	for r.recIdx < len(r.recs) {
		rec := r.recs[r.recIdx]
		if iterator.Pos(rec.End0)+1 > start {
			break
		}
		r.recIdx++
	}
	r.advance()
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
