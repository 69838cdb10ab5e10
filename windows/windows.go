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

// Package windows tiles contigs into fixed-length model windows and
// annotates them with unmappable-region masks.
package windows

import (
	"log"

	"golang.org/x/exp/rand"

	"github.com/exascience/eltrain/bed"
	"github.com/exascience/eltrain/genome"
)

// A Split identifies one of the train/validation/test partitions of
// the window set.
type Split int

// The three splits, in their fixed order.
const (
	Train Split = iota
	Valid
	Test
)

// Splits lists the three splits in merge order.
var Splits = [3]Split{Train, Valid, Test}

func (split Split) String() string {
	switch split {
	case Train:
		return "train"
	case Valid:
		return "valid"
	case Test:
		return "test"
	default:
		log.Panicf("invalid split %d", int(split))
		return ""
	}
}

// ParseSplit parses a split label.
func ParseSplit(label string) Split {
	switch label {
	case "train":
		return Train
	case "valid":
		return Valid
	case "test":
		return Test
	default:
		log.Panicf("invalid split label %v", label)
		return 0
	}
}

// A Window is a fixed-length genomic span used as one model training
// example, half-open, zero-based, labeled with the split it belongs
// to.
type Window struct {
	Chrom string
	Start, End int32
	Label Split
}

// Tile slides a window of seqLength across each contig, starting at
// the contig start and advancing floor(stride*seqLength) positions
// per step. A window that would reach or pass the contig end is not
// emitted; in particular, a window flush with the contig end is
// excluded. The emitted windows carry the given split label.
func Tile(contigs []genome.Contig, seqLength int32, stride float64, label Split) (result []Window) {
	step := int32(stride * float64(seqLength))
	if step < 1 {
		log.Panicf("stride %v on windows of %d nt yields a zero step", stride, seqLength)
	}
	for _, contig := range contigs {
		start := contig.Start
		for end := start + seqLength; end < contig.End; end = start + seqLength {
			result = append(result, Window{Chrom: contig.Chrom, Start: start, End: end, Label: label})
			start += step
		}
	}
	return result
}

// Merge shuffles each split's window list and concatenates them in
// train/valid/test order. The result is the canonical window order of
// a run: downstream stages may filter windows but never reorder them,
// so every split occupies one contiguous index range.
func Merge(train, valid, test []Window, rnd *rand.Rand) []Window {
	result := make([]Window, 0, len(train)+len(valid)+len(test))
	for _, split := range [][]Window{train, valid, test} {
		rnd.Shuffle(len(split), func(i, j int) {
			split[i], split[j] = split[j], split[i]
		})
		result = append(result, split...)
	}
	return result
}

// ToBed converts windows to bed regions, with the split label in the
// name column.
func ToBed(windows []Window) (regions []bed.Region) {
	regions = make([]bed.Region, 0, len(windows))
	for _, window := range windows {
		regions = append(regions, bed.Region{
			Chrom: window.Chrom,
			Start: window.Start,
			End:   window.End,
			Name:  window.Label.String(),
		})
	}
	return regions
}

// FromBedFile reads a window list written by ToBed, preserving order.
func FromBedFile(filename string) (result []Window) {
	for _, region := range bed.ParseBed(filename) {
		result = append(result, Window{
			Chrom: region.Chrom,
			Start: region.Start,
			End:   region.End,
			Label: ParseSplit(region.Name),
		})
	}
	return result
}

// SplitCounts returns the number of windows per split.
func SplitCounts(windows []Window) (counts [3]int) {
	for _, window := range windows {
		counts[window.Label]++
	}
	return counts
}
