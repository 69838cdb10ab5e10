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

package genome

import (
	"log"
	"sort"
	"strings"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"

	psort "github.com/exascience/pargo/sort"
)

// PctAbstain is the fraction of a split's remaining nucleotide gap
// above which a contig is considered too large to assign to that
// split without overshooting its aim.
const PctAbstain = 0.2

// SortByLengthDescending sorts a slice of Contig by length, longest
// first.
func SortByLengthDescending(contigs []Contig) {
	sort.SliceStable(contigs, func(i, j int) bool {
		return contigs[i].Len() > contigs[j].Len()
	})
}

type byLengthDescending []Contig

func (s byLengthDescending) SequentialSort(i, j int) {
	SortByLengthDescending(s[i:j])
}

func (s byLengthDescending) NewTemp() psort.StableSorter {
	return byLengthDescending(make([]Contig, len(s)))
}

func (s byLengthDescending) Len() int {
	return len(s)
}

func (s byLengthDescending) Less(i, j int) bool {
	return s[i].Len() > s[j].Len()
}

func (s byLengthDescending) Assign(source psort.StableSorter) func(i, j, len int) {
	dst, src := s, source.(byLengthDescending)
	return func(i, j, len int) {
		copy(dst[i:i+len], src[j:j+len])
	}
}

// DivideByPct divides contigs into train/valid/test lists, aiming for
// the given nucleotide fractions for the test and valid splits and
// the remainder for train.
//
// The contigs are processed longest-first, so the hardest contigs to
// place are allocated while all aims still have room. Each contig is
// assigned by drawing a split with probabilities proportional to the
// remaining nucleotide gap of each split; a split whose remaining gap
// is smaller than the contig length divided by pctAbstain abstains
// from the draw, which prevents a single long contig from
// overshooting a small split. The train gap is floored at one
// nucleotide, so the draw always has at least one candidate.
//
// The passed random source makes the division reproducible for a
// fixed seed and contig order.
func DivideByPct(contigs []Contig, testPct, validPct, pctAbstain float64, rnd *rand.Rand) (train, valid, test []Contig) {
	sorted := make([]Contig, len(contigs))
	copy(sorted, contigs)
	psort.StableSort(byLengthDescending(sorted))

	var totalNt int64
	for _, contig := range sorted {
		totalNt += int64(contig.Len())
	}

	testAim := testPct * float64(totalNt)
	validAim := validPct * float64(totalNt)
	trainAim := float64(totalNt) - validAim - testAim

	var trainNt, validNt, testNt int64

	for _, contig := range sorted {
		length := float64(contig.Len())

		testGap := floorAt(0, testAim-float64(testNt))
		validGap := floorAt(0, validAim-float64(validNt))
		trainGap := floorAt(1, trainAim-float64(trainNt))

		// abstain when the contig would overshoot the aim
		if length > pctAbstain*testGap {
			testGap = 0
		}
		if length > pctAbstain*validGap {
			validGap = 0
		}

		w := sampleuv.NewWeighted([]float64{trainGap, validGap, testGap}, rnd)
		ri, ok := w.Take()
		if !ok {
			ri = 0
		}
		switch ri {
		case 0:
			train = append(train, contig)
			trainNt += int64(contig.Len())
		case 1:
			valid = append(valid, contig)
			validNt += int64(contig.Len())
		case 2:
			test = append(test, contig)
			testNt += int64(contig.Len())
		}
	}

	reportDivision(train, valid, test, trainNt, validNt, testNt)
	return train, valid, test
}

// DivideByChrom divides contigs into train/valid/test lists by
// chromosome name. testChr and validChr are comma-separated lists of
// chromosome names. The assignment is exact and deterministic.
func DivideByChrom(contigs []Contig, testChr, validChr string) (train, valid, test []Contig) {
	testChrs := chromSet(testChr)
	validChrs := chromSet(validChr)

	var trainNt, validNt, testNt int64

	for _, contig := range contigs {
		switch {
		case testChrs[contig.Chrom]:
			test = append(test, contig)
			testNt += int64(contig.Len())
		case validChrs[contig.Chrom]:
			valid = append(valid, contig)
			validNt += int64(contig.Len())
		default:
			train = append(train, contig)
			trainNt += int64(contig.Len())
		}
	}

	reportDivision(train, valid, test, trainNt, validNt, testNt)
	return train, valid, test
}

func chromSet(chrs string) map[string]bool {
	set := make(map[string]bool)
	for _, chrom := range strings.Split(chrs, ",") {
		if chrom != "" {
			set[chrom] = true
		}
	}
	return set
}

func reportDivision(train, valid, test []Contig, trainNt, validNt, testNt int64) {
	totalNt := trainNt + validNt + testNt
	log.Println("Contigs divided into")
	log.Printf(" Train: %5d contigs, %10d nt (%.4f)\n", len(train), trainNt, float64(trainNt)/float64(totalNt))
	log.Printf(" Valid: %5d contigs, %10d nt (%.4f)\n", len(valid), validNt, float64(validNt)/float64(totalNt))
	log.Printf(" Test:  %5d contigs, %10d nt (%.4f)\n", len(test), testNt, float64(testNt)/float64(totalNt))
}

func floorAt(floor, value float64) float64 {
	if value < floor {
		return floor
	}
	return value
}
