// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package openfile centralizes the "open a local-or-remote path, sniff
// gzip, hand back an io.Reader" dance every ASCII leaf reader needs. It is
// the same pattern pileup.LoadFa and interval.NewBEDUnionFromPath use:
// github.com/grailbio/base/file for transparent local/S3 access and
// github.com/grailbio/base/fileio to detect gzip by extension/magic.
package openfile

import (
	"bufio"
	"context"
	"io"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/klauspost/compress/gzip"
)

// Opened bundles the decompressed reader with the underlying file.File so
// the caller can defer Close.
type Opened struct {
	f      file.File
	reader io.Reader
	ctx    context.Context
}

// Open opens path (a local path or any scheme github.com/grailbio/base/file
// recognizes, e.g. s3://...), transparently gunzipping if the path looks
// gzip-compressed.
func Open(ctx context.Context, path string) (*Opened, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	var r io.Reader = f.Reader(ctx)
	if fileio.DetermineType(path) == fileio.Gzip {
		gz, err := gzip.NewReader(r)
		if err != nil {
			f.Close(ctx)
			return nil, err
		}
		r = gz
	}
	return &Opened{f: f, reader: r, ctx: ctx}, nil
}

// Scanner returns a bufio.Scanner over the decompressed content, with a
// generous max-token-size since some track formats emit very long lines.
func (o *Opened) Scanner() *bufio.Scanner {
	sc := bufio.NewScanner(o.reader)
	buf := make([]byte, 64*1024)
	sc.Buffer(buf, 64<<20)
	return sc
}

// Reader returns the decompressed io.Reader directly.
func (o *Opened) Reader() io.Reader { return o.reader }

// Close releases the underlying file.
func (o *Opened) Close() error { return o.f.Close(o.ctx) }
