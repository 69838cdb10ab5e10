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

package intervals

import (
	"github.com/exascience/eltrain/bed"
)

// An Index answers overlap queries against a fixed, chromosome-keyed
// set of genomic regions. Queries use half-open coordinates.
//
// The default implementation is a SortedIndex. A BedtoolsIndex
// answers the same queries by shelling out to the bedtools
// command-line tool instead.
type Index interface {
	// Overlaps tells whether the query range overlaps at least one
	// region in the indexed set.
	Overlaps(chrom string, start, end int32) bool
	// Intersect returns the indexed regions overlapping the query
	// range, sorted by start position.
	Intersect(chrom string, start, end int32) []Interval
}

// SortedIndex is an in-process Index over flattened, sorted intervals
// per chromosome.
type SortedIndex map[string][]Interval

// NewSortedIndex builds a SortedIndex from raw per-chromosome
// intervals. The input intervals are sorted and flattened in place.
func NewSortedIndex(regions map[string][]Interval) SortedIndex {
	index := make(SortedIndex, len(regions))
	for chrom, ivals := range regions {
		ParallelSortByStart(ivals)
		index[chrom] = ParallelFlatten(ivals)
	}
	return index
}

// FromBed collects the intervals of a parsed BED file per chromosome.
func FromBed(regions []bed.Region) map[string][]Interval {
	intervals := make(map[string][]Interval)
	for _, region := range regions {
		intervals[region.Chrom] = append(intervals[region.Chrom], Interval{Start: region.Start, End: region.End})
	}
	return intervals
}

// NewSortedIndexFromBedFile builds a SortedIndex from the entries of a
// BED file.
func NewSortedIndexFromBedFile(filename string) SortedIndex {
	return NewSortedIndex(FromBed(bed.ParseBed(filename)))
}

// Overlaps implements the method of the Index interface.
func (index SortedIndex) Overlaps(chrom string, start, end int32) bool {
	return Overlap(index[chrom], start, end)
}

// Intersect implements the method of the Index interface.
func (index SortedIndex) Intersect(chrom string, start, end int32) []Interval {
	return Intersect(index[chrom], start, end)
}
