// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package apply implements the per-region buffered evaluation engine of
// SPEC_FULL.md §4.10 (apply.c/wiggleApply.c): given a list of regions
// (typically a BED file) and a track, seek the track to each region in
// turn and hand the restricted sub-stream to a per-region function,
// concurrently across regions via github.com/grailbio/base/traverse --
// the same fan-out-over-independent-shards helper
// encoding/converter.generateShardBoundaries's caller uses to convert BAM
// shards to PAM in parallel.
package apply

import (
	"math"

	"github.com/grailbio/base/traverse"
	"github.com/grailbio/wiggletools/iterator"
)

// MaxBuffer mirrors apply.c's MAX_BUFFER constant (a per-region size
// bound, in bases). Run and Profile do not consult it: every region is
// evaluated by its own Seek on a fresh Iterator, with no buffering.
const MaxBuffer = 1_000_000

// MaxBufferSum mirrors apply.c's MAX_BUFFER_SUM constant (a bound on the
// total bases buffered across a batch of regions). Run and Profile do
// not consult it; regions are not batched.
const MaxBufferSum = 1_000_000

// MaxSeek mirrors apply.c's MAX_SEEK constant (a gap, in bases, between
// consecutive regions). Run and Profile do not consult it; nearby
// regions are not coalesced into a single Seek.
const MaxSeek = 10

// Region is one query span a Func is evaluated over.
type Region struct {
	Chrom  string
	Start  iterator.Pos
	Finish iterator.Pos
	Name   string
	Strand iterator.Strand
}

// Func computes one region's result from the track restricted to that
// region. the restricted Iterator is already Seek'd to [Start,Finish)
// and strictly bounded to it.
type Func func(region Region, restricted iterator.Iterator) (float64, error)

// Result pairs a Region with its computed value, or an error.
type Result struct {
	Region Region
	Value  float64
	Err    error
}

// Opener produces a fresh Iterator over the track being queried; apply
// needs one independent Iterator per concurrent region (Seek mutates an
// Iterator's position), so the caller supplies a factory rather than a
// single shared Iterator.
type Opener func() (iterator.Iterator, error)

// Run evaluates fn over every region, using traverse.Each to fan out
// across regions concurrently (bounded by the GOMAXPROCS-derived
// parallelism traverse.Each chooses, the same default
// encoding/converter's BAM-to-PAM conversion relies on).
func Run(regions []Region, open Opener, fn Func) ([]Result, error) {
	results := make([]Result, len(regions))
	err := traverse.Each(len(regions), func(i int) error {
		region := regions[i]
		it, err := open()
		if err != nil {
			results[i] = Result{Region: region, Value: math.NaN(), Err: err}
			return nil
		}
		defer it.Close()
		it.Seek(region.Chrom, region.Start, region.Finish)
		value, err := fn(region, &bounded{it, region})
		if err != nil {
			results[i] = Result{Region: region, Value: math.NaN(), Err: err}
			return nil
		}
		results[i] = Result{Region: region, Value: value}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// bounded ends a Seek'd Iterator at its region's Finish.
type bounded struct {
	iterator.Iterator
	region Region
}

func (b *bounded) Done() bool {
	return b.Iterator.Done() || b.Iterator.Chrom() != b.region.Chrom || b.Iterator.Start() >= b.region.Finish
}

func (b *bounded) Finish() iterator.Pos {
	if f := b.Iterator.Finish(); f < b.region.Finish {
		return f
	}
	return b.region.Finish
}

// Profile evaluates a track at a fixed number of bins per region,
// rescaling every region to a common bin count and, for regions on the
// reverse strand, reversing the bin order -- §4.10's "profile mode",
// used to build aggregate signal plots (e.g. average coverage around a
// set of transcription start sites) across regions of differing length.
func Profile(regions []Region, open Opener, nBins int) ([][]float64, error) {
	profiles := make([][]float64, len(regions))
	err := traverse.Each(len(regions), func(i int) error {
		region := regions[i]
		it, err := open()
		if err != nil {
			return err
		}
		defer it.Close()
		it.Seek(region.Chrom, region.Start, region.Finish)
		profiles[i] = rescale(it, region, nBins)
		return it.Err()
	})
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// rescale buckets a region-restricted track into nBins equal-width bins,
// each the length-weighted mean of the values it covers.
func rescale(it iterator.Iterator, region Region, nBins int) []float64 {
	bins := make([]float64, nBins)
	weights := make([]float64, nBins)
	span := float64(region.Finish - region.Start)
	if span <= 0 {
		return bins
	}
	for !it.Done() {
		start, finish, value := it.Start(), it.Finish(), it.Value()
		if !math.IsNaN(value) {
			lo := float64(start-region.Start) / span * float64(nBins)
			hi := float64(finish-region.Start) / span * float64(nBins)
			for b := int(lo); b < nBins && float64(b) < hi; b++ {
				if b < 0 {
					continue
				}
				overlapLo, overlapHi := math.Max(lo, float64(b)), math.Min(hi, float64(b+1))
				if overlapHi > overlapLo {
					w := overlapHi - overlapLo
					bins[b] += w * value
					weights[b] += w
				}
			}
		}
		it.Pop()
	}
	for b := range bins {
		if weights[b] > 0 {
			bins[b] /= weights[b]
		} else {
			bins[b] = math.NaN()
		}
	}
	if region.reversed() {
		for i, j := 0, nBins-1; i < j; i, j = i+1, j-1 {
			bins[i], bins[j] = bins[j], bins[i]
		}
	}
	return bins
}

// reversed reports whether this region's profile should be flipped so
// every region reads 5' to 3' along its own strand, per §4.10.
func (r Region) reversed() bool { return r.Strand == iterator.StrandRev }
