// elTrain: a high-performance tool for preparing genome model training data.
// Copyright (c) 2020-2021 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/eltrain/blob/master/LICENSE.txt>.

// Package genome derives gap-free contigs from genome assemblies and
// divides them over train/validation/test splits.
package genome

import (
	"math"
	"sort"

	"golang.org/x/exp/rand"

	"github.com/exascience/eltrain/bed"
	"github.com/exascience/eltrain/fasta"
	"github.com/exascience/eltrain/intervals"
)

// A Contig is a maximal genomic span free of assembly gaps,
// half-open, zero-based. Contigs are immutable once created.
type Contig struct {
	Chrom string
	Start, End int32
}

// Len returns the number of nucleotides covered by the contig.
func (contig Contig) Len() int32 {
	return contig.End - contig.Start
}

// LoadChromosomes returns one span per chromosome of the given FASTA
// file, covering the full sequence.
func LoadChromosomes(fastaFile string) map[string][]intervals.Interval {
	spans := make(map[string][]intervals.Interval)
	for chrom, length := range fasta.SequenceLengths(fastaFile) {
		spans[chrom] = []intervals.Interval{{Start: 0, End: length}}
	}
	return spans
}

// SplitByGaps excises the assembly gaps listed in a BED file from the
// given chromosome spans.
func SplitByGaps(spans map[string][]intervals.Interval, gapsFile string) map[string][]intervals.Interval {
	gaps := intervals.FromBed(bed.ParseBed(gapsFile))
	result := make(map[string][]intervals.Interval, len(spans))
	for chrom, chromSpans := range spans {
		chromGaps := gaps[chrom]
		intervals.ParallelSortByStart(chromGaps)
		result[chrom] = intervals.Subtract(chromSpans, intervals.ParallelFlatten(chromGaps))
	}
	return result
}

// Contigs flattens per-chromosome spans into a contig list, sorted by
// chromosome name, then by start position.
func Contigs(spans map[string][]intervals.Interval) (contigs []Contig) {
	chroms := make([]string, 0, len(spans))
	for chrom := range spans {
		chroms = append(chroms, chrom)
	}
	sort.Strings(chroms)
	for _, chrom := range chroms {
		for _, span := range spans[chrom] {
			contigs = append(contigs, Contig{Chrom: chrom, Start: span.Start, End: span.End})
		}
	}
	return contigs
}

// LimitContigs keeps only the contigs that overlap at least one
// region in the given index.
func LimitContigs(contigs []Contig, index intervals.Index) (result []Contig) {
	for _, contig := range contigs {
		if index.Overlaps(contig.Chrom, contig.Start, contig.End) {
			result = append(result, contig)
		}
	}
	return result
}

// FilterContigs removes contigs too short to hold a single model
// window.
func FilterContigs(contigs []Contig, seqLength int32) (result []Contig) {
	for _, contig := range contigs {
		if contig.Len() >= seqLength {
			result = append(result, contig)
		}
	}
	return result
}

// SampleContigs draws round(pct*len(contigs)) contigs uniformly
// without replacement. The relative order of the drawn contigs is
// preserved.
func SampleContigs(contigs []Contig, pct float64, rnd *rand.Rand) []Contig {
	n := int(math.Round(pct * float64(len(contigs))))
	drawn := rnd.Perm(len(contigs))[:n]
	sort.Ints(drawn)
	result := make([]Contig, 0, n)
	for _, i := range drawn {
		result = append(result, contigs[i])
	}
	return result
}

// ToBed converts contigs to bed regions, with an optional name per
// region.
func ToBed(contigs []Contig, name string) (regions []bed.Region) {
	regions = make([]bed.Region, 0, len(contigs))
	for _, contig := range contigs {
		regions = append(regions, bed.Region{
			Chrom: contig.Chrom,
			Start: contig.Start,
			End:   contig.End,
			Name:  name,
		})
	}
	return regions
}
