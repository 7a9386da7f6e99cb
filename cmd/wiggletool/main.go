// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

/*
wiggletool is a thin command-line driver over the wiggletools operator
algebra: it opens one or more tracks, applies at most one unary
transform, and either writes the resulting track or reports one
whole-track statistic. The original engine's recursive-descent grammar
over arbitrary nested operator expressions is out of scope here (see
SPEC_FULL.md's Non-goals); this is the minimal flag-based harness that
exercises readers/*, ops/*, and writer end to end, in the same spirit as
cmd/bio-pileup's flag-driven entry point over snp.Pileup.
*/
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/wiggletools/iterator"
	"github.com/grailbio/wiggletools/ops/integrate"
	"github.com/grailbio/wiggletools/ops/multiplex"
	"github.com/grailbio/wiggletools/ops/unary"
	"github.com/grailbio/wiggletools/readers/bam"
	"github.com/grailbio/wiggletools/readers/bed"
	"github.com/grailbio/wiggletools/readers/bigwig"
	"github.com/grailbio/wiggletools/readers/step"
	"github.com/grailbio/wiggletools/readers/vcf"
	"github.com/grailbio/wiggletools/writer"
)

var (
	inputs  = flag.String("in", "", "Comma-separated input track paths")
	op      = flag.String("op", "", "Unary transform to apply: scale=F, shift=F, abs, floor, toInt, ln, unit, isZero, compress, union, coverage")
	stat    = flag.String("stat", "", "Whole-track statistic to report instead of writing a track: auc, mean, min, max, stddev, cv, span, energy")
	out     = flag.String("out", "", "Output path for track mode (bedGraph/wig text); default stdout")
	paste   = flag.Bool("paste", false, "Paste mode: write every -in track as aligned columns instead of combining them")
	defVal  = flag.String("default", "NaN", "Default value for gaps in the input track(s)")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s -in path[,path...] [-op transform] [-stat name] [-out path]\n", os.Args[0])
	flag.PrintDefaults()
}

func open(path string, def float64) (iterator.Iterator, error) {
	ctx := vcontext.Background()
	switch {
	case strings.HasSuffix(path, ".bed"):
		return bed.New(ctx, path, bed.Options{ScoreColumn: true, Default: def})
	case strings.HasSuffix(path, ".vcf"):
		return vcf.New(ctx, path, vcf.Options{Default: def})
	case strings.HasSuffix(path, ".bam"):
		return bam.New(ctx, path, bam.Options{Mode: bam.Coverage})
	case strings.HasSuffix(path, ".bw") || strings.HasSuffix(path, ".bigWig"):
		return bigwig.New(ctx, path, bigwig.Options{Default: def})
	default:
		return step.New(ctx, path, step.Options{Default: def})
	}
}

func applyOp(it iterator.Iterator, spec string) (iterator.Iterator, error) {
	if spec == "" {
		return it, nil
	}
	name, arg, _ := strings.Cut(spec, "=")
	switch name {
	case "scale":
		f, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, err
		}
		return unary.Scale(it, f), nil
	case "shift":
		f, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, err
		}
		return unary.Shift(it, f), nil
	case "abs":
		return unary.Abs(it), nil
	case "floor":
		return unary.Floor(it), nil
	case "toInt":
		return unary.ToInt(it), nil
	case "ln":
		return unary.Ln(it), nil
	case "unit":
		return unary.Unit(it), nil
	case "isZero":
		return unary.IsZero(it), nil
	case "compress":
		return unary.Compress(it), nil
	case "union":
		return unary.Union(it), nil
	case "coverage":
		return unary.Coverage(it), nil
	default:
		return nil, fmt.Errorf("wiggletool: unrecognized -op %q", spec)
	}
}

func reportStat(it iterator.Iterator, name string) error {
	s, err := integrate.Compute(it)
	if err != nil {
		return err
	}
	var v float64
	switch name {
	case "auc":
		v = s.AUC()
	case "mean":
		v = s.Mean()
	case "min":
		v = s.Min()
	case "max":
		v = s.Max()
	case "stddev":
		v = s.StdDev()
	case "cv":
		v = s.CV()
	case "span":
		v = float64(s.Span())
	case "energy":
		v = s.Energy()
	default:
		return fmt.Errorf("wiggletool: unrecognized -stat %q", name)
	}
	fmt.Println(v)
	return nil
}

func run() error {
	if *inputs == "" {
		usage()
		return fmt.Errorf("wiggletool: -in is required")
	}
	def := 0.0
	if *defVal != "NaN" {
		f, err := strconv.ParseFloat(*defVal, 64)
		if err != nil {
			return err
		}
		def = f
	} else {
		def = math.NaN()
	}
	paths := strings.Split(*inputs, ",")

	if *paste {
		sources := make([]iterator.Iterator, len(paths))
		for i, p := range paths {
			it, err := open(p, def)
			if err != nil {
				return err
			}
			sources[i] = it
		}
		mux := multiplex.New(sources, false)
		pw := writer.NewPasteWriter(outWriter())
		return pw.WriteAll(mux)
	}

	if len(paths) != 1 {
		return fmt.Errorf("wiggletool: multiple -in paths require -paste")
	}
	it, err := open(paths[0], def)
	if err != nil {
		return err
	}
	it, err = applyOp(it, *op)
	if err != nil {
		return err
	}
	if *stat != "" {
		return reportStat(it, *stat)
	}
	w := writer.New(outWriter())
	return w.WriteAll(it)
}

func outWriter() *os.File {
	if *out == "" {
		return os.Stdout
	}
	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("wiggletool: %v", err)
	}
	return f
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	if err := run(); err != nil {
		log.Fatalf("%v", err)
	}
}
