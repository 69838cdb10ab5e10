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

import "sort"

// A Region is a struct for representing intervals as defined in a BED
// file. See https://genome.ucsc.edu/FAQ/FAQformat.html#format1
// Only the first four columns are represented; Name is empty for
// three-column files. Start/End are half-open, zero-based.
type Region struct {
	Chrom string
	Start int32
	End   int32
	Name  string
}

// SortRegions sorts bed regions by chromosome name, then by start
// position.
func SortRegions(regions []Region) {
	sort.SliceStable(regions, func(i, j int) bool {
		if regions[i].Chrom != regions[j].Chrom {
			return regions[i].Chrom < regions[j].Chrom
		}
		return regions[i].Start < regions[j].Start
	})
}
