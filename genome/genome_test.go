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
	"path/filepath"
	"testing"

	"golang.org/x/exp/rand"

	"github.com/exascience/eltrain/bed"
	"github.com/exascience/eltrain/intervals"
)

func contigsEqual(contigs1, contigs2 []Contig) bool {
	if len(contigs1) != len(contigs2) {
		return false
	}
	for i, contig1 := range contigs1 {
		if contig1 != contigs2[i] {
			return false
		}
	}
	return true
}

func TestSplitByGaps(t *testing.T) {
	gapsFile := filepath.Join(t.TempDir(), "gaps.bed")
	bed.WriteBed(gapsFile, []bed.Region{
		{Chrom: "chr1", Start: 100, End: 200},
		{Chrom: "chr1", Start: 150, End: 250},
		{Chrom: "chr2", Start: 0, End: 50},
	})
	spans := SplitByGaps(map[string][]intervals.Interval{
		"chr1": {{Start: 0, End: 1000}},
		"chr2": {{Start: 0, End: 1000}},
		"chr3": {{Start: 0, End: 1000}},
	}, gapsFile)

	contigs := Contigs(spans)
	if !contigsEqual(contigs, []Contig{
		{Chrom: "chr1", Start: 0, End: 100},
		{Chrom: "chr1", Start: 250, End: 1000},
		{Chrom: "chr2", Start: 50, End: 1000},
		{Chrom: "chr3", Start: 0, End: 1000},
	}) {
		t.Error("SplitByGaps failed")
	}
}

func TestLimitContigs(t *testing.T) {
	contigs := []Contig{
		{Chrom: "chr1", Start: 0, End: 1000},
		{Chrom: "chr1", Start: 2000, End: 3000},
		{Chrom: "chr2", Start: 0, End: 1000},
	}
	index := intervals.NewSortedIndex(map[string][]intervals.Interval{
		"chr1": {{Start: 500, End: 600}},
	})
	if !contigsEqual(LimitContigs(contigs, index), contigs[:1]) {
		t.Error("LimitContigs failed")
	}
}

func TestFilterContigs(t *testing.T) {
	contigs := []Contig{
		{Chrom: "chr1", Start: 0, End: 999},
		{Chrom: "chr1", Start: 0, End: 1000},
		{Chrom: "chr1", Start: 0, End: 1001},
	}
	if !contigsEqual(FilterContigs(contigs, 1000), contigs[1:]) {
		t.Error("FilterContigs failed")
	}
}

func TestSampleContigs(t *testing.T) {
	var contigs []Contig
	for i := int32(0); i < 10; i++ {
		contigs = append(contigs, Contig{Chrom: "chr1", Start: i * 1000, End: i*1000 + 1000})
	}
	sampled := SampleContigs(contigs, 0.5, rand.New(rand.NewSource(44)))
	if len(sampled) != 5 {
		t.Fatal("SampleContigs count failed")
	}
	for i := 1; i < len(sampled); i++ {
		if sampled[i].Start <= sampled[i-1].Start {
			t.Fatal("SampleContigs order failed")
		}
	}
	again := SampleContigs(contigs, 0.5, rand.New(rand.NewSource(44)))
	if !contigsEqual(sampled, again) {
		t.Error("SampleContigs determinism failed")
	}
	if !contigsEqual(SampleContigs(contigs, 1, rand.New(rand.NewSource(44))), contigs) {
		t.Error("SampleContigs full sample failed")
	}
}

func TestDivideByChrom(t *testing.T) {
	contigs := []Contig{
		{Chrom: "chr1", Start: 0, End: 1000},
		{Chrom: "chr2", Start: 0, End: 1000},
		{Chrom: "chr3", Start: 0, End: 1000},
		{Chrom: "chr4", Start: 0, End: 1000},
		{Chrom: "chr5", Start: 0, End: 1000},
	}
	train, valid, test := DivideByChrom(contigs, "chr3,chr4", "chr2")
	if !contigsEqual(train, []Contig{contigs[0], contigs[4]}) {
		t.Error("DivideByChrom train failed")
	}
	if !contigsEqual(valid, contigs[1:2]) {
		t.Error("DivideByChrom valid failed")
	}
	if !contigsEqual(test, contigs[2:4]) {
		t.Error("DivideByChrom test failed")
	}
}

func TestDivideByPctConservation(t *testing.T) {
	var contigs []Contig
	for i := int32(0); i < 100; i++ {
		contigs = append(contigs, Contig{Chrom: "chr1", Start: i * 10000, End: i*10000 + 1000 + i*100})
	}
	train, valid, test := DivideByPct(contigs, 0.1, 0.1, PctAbstain, rand.New(rand.NewSource(44)))
	if len(train)+len(valid)+len(test) != len(contigs) {
		t.Fatal("DivideByPct conservation failed")
	}
	seen := make(map[Contig]bool)
	for _, split := range [][]Contig{train, valid, test} {
		for _, contig := range split {
			if seen[contig] {
				t.Fatal("DivideByPct assigned a contig twice")
			}
			seen[contig] = true
		}
	}
}

func TestDivideByPctConvergence(t *testing.T) {
	var contigs []Contig
	var totalNt int64
	for i := int32(0); i < 2000; i++ {
		contig := Contig{Chrom: "chr1", Start: i * 2000, End: i*2000 + 1000}
		contigs = append(contigs, contig)
		totalNt += int64(contig.Len())
	}
	_, valid, test := DivideByPct(contigs, 0.1, 0.2, PctAbstain, rand.New(rand.NewSource(44)))

	var validNt, testNt int64
	for _, contig := range valid {
		validNt += int64(contig.Len())
	}
	for _, contig := range test {
		testNt += int64(contig.Len())
	}
	validFraction := float64(validNt) / float64(totalNt)
	testFraction := float64(testNt) / float64(totalNt)
	if validFraction < 0.15 || validFraction > 0.25 {
		t.Errorf("valid fraction %v too far from aim 0.2", validFraction)
	}
	if testFraction < 0.05 || testFraction > 0.15 {
		t.Errorf("test fraction %v too far from aim 0.1", testFraction)
	}
}

func TestDivideByPctAbstainAll(t *testing.T) {
	contigs := []Contig{
		{Chrom: "chr1", Start: 0, End: 100000},
		{Chrom: "chr2", Start: 0, End: 100000},
	}
	// a zero abstention fraction leaves train as the only candidate
	train, valid, test := DivideByPct(contigs, 0.3, 0.3, 0, rand.New(rand.NewSource(44)))
	if !contigsEqual(train, contigs) || valid != nil || test != nil {
		t.Error("DivideByPct with zero abstention failed")
	}
}
