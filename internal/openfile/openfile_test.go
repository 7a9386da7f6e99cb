// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package openfile_test

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/grailbio/wiggletools/internal/openfile"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
)

func TestOpenPlainFile(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := vcontext.Background()

	path := filepath.Join(tmpdir, "in.txt")
	f, err := file.Create(ctx, path)
	assert.NoError(t, err)
	_, err = f.Writer(ctx).Write([]byte("hello\nworld\n"))
	assert.NoError(t, err)
	assert.NoError(t, f.Close(ctx))

	o, err := openfile.Open(ctx, path)
	assert.NoError(t, err)
	defer o.Close()

	sc := o.Scanner()
	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	assert.NoError(t, sc.Err())
	assert.Equal(t, []string{"hello", "world"}, lines)
}

func TestOpenGzippedFile(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := vcontext.Background()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte("chr1\t1\t2\n"))
	assert.NoError(t, err)
	assert.NoError(t, gz.Close())

	path := filepath.Join(tmpdir, "in.txt.gz")
	f, err := file.Create(ctx, path)
	assert.NoError(t, err)
	_, err = f.Writer(ctx).Write(buf.Bytes())
	assert.NoError(t, err)
	assert.NoError(t, f.Close(ctx))

	o, err := openfile.Open(ctx, path)
	assert.NoError(t, err)
	defer o.Close()

	got, err := ioutil.ReadAll(o.Reader())
	assert.NoError(t, err)
	assert.Equal(t, "chr1\t1\t2\n", string(got))
}
