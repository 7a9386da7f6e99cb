// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package unary

import (
	"math"
	"testing"

	"github.com/grailbio/wiggletools/iterator"
	"github.com/stretchr/testify/assert"
)

func iv(chrom string, start, finish iterator.Pos, value float64) iterator.Interval {
	return iterator.Interval{Chrom: chrom, Start: start, Finish: finish, Value: value}
}

func TestScaleAndShift(t *testing.T) {
	src := newSlice([]iterator.Interval{iv("chr1", 1, 10, 2), iv("chr1", 10, 20, math.NaN())}, 0)
	out, err := iterator.CollectAll(Scale(src, 3))
	assert.NoError(t, err)
	assert.Equal(t, 6.0, out[0].Value)
	assert.True(t, math.IsNaN(out[1].Value))

	src2 := newSlice([]iterator.Interval{iv("chr1", 1, 10, 2)}, 0)
	out2, err := iterator.CollectAll(Shift(src2, 5))
	assert.NoError(t, err)
	assert.Equal(t, 7.0, out2[0].Value)
}

func TestAbsFloorToInt(t *testing.T) {
	src := newSlice([]iterator.Interval{iv("chr1", 1, 10, -3.7)}, 0)
	out, _ := iterator.CollectAll(Abs(src))
	assert.Equal(t, 3.7, out[0].Value)

	src2 := newSlice([]iterator.Interval{iv("chr1", 1, 10, 3.7)}, 0)
	out2, _ := iterator.CollectAll(Floor(src2))
	assert.Equal(t, 3.0, out2[0].Value)

	src3 := newSlice([]iterator.Interval{iv("chr1", 1, 10, -3.7)}, 0)
	out3, _ := iterator.CollectAll(ToInt(src3))
	assert.Equal(t, -3.0, out3[0].Value)
}

func TestUnitIsZeroHighPass(t *testing.T) {
	src := newSlice([]iterator.Interval{iv("chr1", 1, 10, 0), iv("chr1", 10, 20, 5)}, math.NaN())
	out, _ := iterator.CollectAll(Unit(src))
	assert.Equal(t, 1.0, out[0].Value)
	assert.Equal(t, 1.0, out[1].Value)

	src2 := newSlice([]iterator.Interval{iv("chr1", 1, 10, 0), iv("chr1", 10, 20, 5)}, 0)
	out2, _ := iterator.CollectAll(IsZero(src2))
	assert.Equal(t, 1.0, out2[0].Value)
	assert.Equal(t, 0.0, out2[1].Value)

	src3 := newSlice([]iterator.Interval{iv("chr1", 1, 10, 1), iv("chr1", 10, 20, 5)}, math.NaN())
	out3, _ := iterator.CollectAll(HighPass(src3, 3))
	assert.True(t, math.IsNaN(out3[0].Value))
	assert.Equal(t, 5.0, out3[1].Value)
}

func TestDefaultValueReplacesNaN(t *testing.T) {
	src := newSlice([]iterator.Interval{iv("chr1", 1, 10, math.NaN()), iv("chr1", 10, 20, 4)}, math.NaN())
	out, _ := iterator.CollectAll(DefaultValue(src, -1))
	assert.Equal(t, -1.0, out[0].Value)
	assert.Equal(t, 4.0, out[1].Value)
}

func TestCompressMergesTouchingEqualIntervals(t *testing.T) {
	src := newSlice([]iterator.Interval{
		iv("chr1", 1, 10, 5),
		iv("chr1", 10, 20, 5),
		iv("chr1", 20, 30, 7),
	}, 0)
	out, err := iterator.CollectAll(Compress(src))
	assert.NoError(t, err)
	assert.Equal(t, []iterator.Interval{
		iv("chr1", 1, 20, 5),
		iv("chr1", 20, 30, 7),
	}, out)
}

func TestUnionSumsOverlaps(t *testing.T) {
	src := newSlice([]iterator.Interval{
		iv("chr1", 1, 10, 2),
		iv("chr1", 5, 15, 3),
	}, 0)
	out, err := iterator.CollectAll(Union(src))
	assert.NoError(t, err)
	assert.Equal(t, []iterator.Interval{
		iv("chr1", 1, 5, 2),
		iv("chr1", 5, 10, 5),
		iv("chr1", 10, 15, 3),
	}, out)
}

func TestCoverageCountsContributors(t *testing.T) {
	src := newSlice([]iterator.Interval{
		iv("chr1", 1, 10, 2),
		iv("chr1", 5, 15, 3),
		iv("chr1", 8, 20, 1),
	}, 0)
	out, err := iterator.CollectAll(Coverage(src))
	assert.NoError(t, err)
	assert.Equal(t, []iterator.Interval{
		iv("chr1", 1, 5, 1),
		iv("chr1", 5, 8, 2),
		iv("chr1", 8, 10, 3),
		iv("chr1", 10, 15, 2),
		iv("chr1", 15, 20, 1),
	}, out)
}

func TestUnionSeekUnsupported(t *testing.T) {
	src := newSlice([]iterator.Interval{iv("chr1", 1, 10, 2)}, 0)
	u := Union(src)
	u.Seek("chr1", 2, 5)
	assert.True(t, u.Done())
	assert.Equal(t, iterator.ErrSeekUnsupported, u.Err())
}

func TestShiftPosAndExtend(t *testing.T) {
	src := newSlice([]iterator.Interval{iv("chr1", 10, 20, 1)}, 0)
	out, _ := iterator.CollectAll(ShiftPos(src, 5))
	assert.Equal(t, iterator.Pos(15), out[0].Start)
	assert.Equal(t, iterator.Pos(25), out[0].Finish)

	src2 := newSlice([]iterator.Interval{iv("chr1", 10, 20, 1)}, 0)
	out2, _ := iterator.CollectAll(Extend(src2, 5))
	assert.Equal(t, iterator.Pos(10), out2[0].Start)
	assert.Equal(t, iterator.Pos(25), out2[0].Finish)
}
