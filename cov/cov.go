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

// Package cov reads genome coverage tracks and pools them into
// per-window bin values.
package cov

import (
	"bufio"
	"log"
	"sort"
	"strings"

	"github.com/exascience/eltrain/internal"
	"github.com/exascience/eltrain/utils"
)

// A ValuedInterval is a half-open genomic span carrying a coverage
// value.
type ValuedInterval struct {
	Start, End int32
	Value      float32
}

// A Track maps chromosome names to coverage intervals, sorted by
// start position.
type Track map[string][]ValuedInterval

// ReadBedGraph parses a bedGraph coverage file: chrom, start, end,
// value per line. The intervals are sorted per chromosome.
func ReadBedGraph(filename string) Track {
	file := internal.FileOpen(filename)
	defer internal.Close(file)

	track := make(Track)
	scanner := bufio.NewScanner(utils.HandleBgzf(bufio.NewReader(file)))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" ||
			strings.HasPrefix(line, "#") ||
			strings.HasPrefix(line, "track") ||
			strings.HasPrefix(line, "browser") {
			continue
		}
		data := strings.Split(line, "\t")
		if len(data) < 4 {
			log.Panicf("invalid bedGraph line in %v: %v", filename, line)
		}
		track[data[0]] = append(track[data[0]], ValuedInterval{
			Start: int32(internal.ParseInt(data[1], 10, 32)),
			End:   int32(internal.ParseInt(data[2], 10, 32)),
			Value: float32(internal.ParseFloat(data[3], 32)),
		})
	}
	if err := scanner.Err(); err != nil {
		log.Panic(err)
	}
	for _, ivals := range track {
		sort.SliceStable(ivals, func(i, j int) bool {
			return ivals[i].Start < ivals[j].Start
		})
	}
	return track
}

// PoolWindow computes the mean coverage of every pooled bin of the
// given window. (end-start) must be a multiple of poolWidth.
func PoolWindow(track Track, chrom string, start, end, poolWidth int32) []float32 {
	bins := make([]float32, (end-start)/poolWidth)
	ivals := track[chrom]
	n := len(ivals)
	lo := sort.Search(n, func(i int) bool {
		return ivals[i].End > start
	})
	for _, ival := range ivals[lo:] {
		if ival.Start >= end {
			break
		}
		overlapStart := ival.Start
		if overlapStart < start {
			overlapStart = start
		}
		overlapEnd := ival.End
		if overlapEnd > end {
			overlapEnd = end
		}
		for pos := overlapStart; pos < overlapEnd; {
			bin := (pos - start) / poolWidth
			binEnd := start + (bin+1)*poolWidth
			if binEnd > overlapEnd {
				binEnd = overlapEnd
			}
			bins[bin] += float32(binEnd-pos) * ival.Value
			pos = binEnd
		}
	}
	for i := range bins {
		bins[i] /= float32(poolWidth)
	}
	return bins
}
