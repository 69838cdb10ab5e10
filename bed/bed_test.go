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

package bed

import (
	"io/ioutil"
	"path/filepath"
	"testing"
)

func regionsEqual(regions1, regions2 []Region) bool {
	if len(regions1) != len(regions2) {
		return false
	}
	for i, region1 := range regions1 {
		if region1 != regions2[i] {
			return false
		}
	}
	return true
}

func TestParseBed(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "regions.bed")
	contents := "# a comment\n" +
		"track name=regions\n" +
		"browser position chr1\n" +
		"chr1\t0\t1000\n" +
		"chr1\t2000\t3000\ttrain\textra\tcolumns\n" +
		"\n" +
		"chr2\t500\t600\ttest\n"
	if err := ioutil.WriteFile(filename, []byte(contents), 0666); err != nil {
		t.Fatal(err)
	}
	regions := ParseBed(filename)
	if !regionsEqual(regions, []Region{
		{Chrom: "chr1", Start: 0, End: 1000},
		{Chrom: "chr1", Start: 2000, End: 3000, Name: "train"},
		{Chrom: "chr2", Start: 500, End: 600, Name: "test"},
	}) {
		t.Errorf("ParseBed failed: %+v", regions)
	}
}

func TestWriteBedRoundtrip(t *testing.T) {
	regions := []Region{
		{Chrom: "chr1", Start: 0, End: 1000},
		{Chrom: "chr2", Start: 500, End: 600, Name: "test"},
	}
	filename := filepath.Join(t.TempDir(), "regions.bed")
	WriteBed(filename, regions)
	if !regionsEqual(ParseBed(filename), regions) {
		t.Error("BED roundtrip failed")
	}
}

func TestSortRegions(t *testing.T) {
	regions := []Region{
		{Chrom: "chr2", Start: 0, End: 10},
		{Chrom: "chr1", Start: 500, End: 600},
		{Chrom: "chr1", Start: 100, End: 200},
	}
	SortRegions(regions)
	if !regionsEqual(regions, []Region{
		{Chrom: "chr1", Start: 100, End: 200},
		{Chrom: "chr1", Start: 500, End: 600},
		{Chrom: "chr2", Start: 0, End: 10},
	}) {
		t.Error("SortRegions failed")
	}
}
