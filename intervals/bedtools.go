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
	"bufio"
	"bytes"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/exascience/eltrain/internal"
)

// BedtoolsIndex is an Index that delegates overlap queries to the
// external bedtools command-line tool. The indexed set is the given
// BED file; every query writes a single-region BED file to a
// temporary location and runs bedtools intersect against it.
//
// This implementation exists as a cross-check against SortedIndex and
// for region sets too large to keep in memory. SortedIndex is the
// default.
type BedtoolsIndex struct {
	// BedFile is the BED file holding the indexed regions.
	BedFile string
	// TempDir is where query files are staged. Defaults to the
	// system temporary directory.
	TempDir string
}

// NewBedtoolsIndex returns a BedtoolsIndex over the regions of the
// given BED file.
func NewBedtoolsIndex(bedFile string) *BedtoolsIndex {
	return &BedtoolsIndex{BedFile: bedFile}
}

func (index *BedtoolsIndex) queryFile(chrom string, start, end int32) string {
	dir := index.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	name := filepath.Join(dir, fmt.Sprintf("eltrain-query-%v.bed", uuid.New()))
	file := internal.FileCreate(name)
	defer internal.Close(file)
	fmt.Fprintf(file, "%v\t%v\t%v\n", chrom, start, end)
	return name
}

// Overlaps implements the method of the Index interface.
func (index *BedtoolsIndex) Overlaps(chrom string, start, end int32) bool {
	query := index.queryFile(chrom, start, end)
	defer func() { _ = os.Remove(query) }()
	var out bytes.Buffer
	cmd := exec.Command("bedtools", "intersect", "-u", "-a", query, "-b", index.BedFile)
	cmd.Stdout = &out
	cmd.Stderr = os.Stderr
	internal.RunCmd(cmd)
	return out.Len() > 0
}

// Intersect implements the method of the Index interface.
func (index *BedtoolsIndex) Intersect(chrom string, start, end int32) (result []Interval) {
	query := index.queryFile(chrom, start, end)
	defer func() { _ = os.Remove(query) }()
	var out bytes.Buffer
	cmd := exec.Command("bedtools", "intersect", "-wo", "-a", query, "-b", index.BedFile)
	cmd.Stdout = &out
	cmd.Stderr = os.Stderr
	internal.RunCmd(cmd)
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		// columns 0-2 echo the query, 3-5 are the overlapping region
		data := strings.Split(scanner.Text(), "\t")
		if len(data) < 6 {
			log.Panicf("unexpected bedtools intersect output: %v", scanner.Text())
		}
		result = append(result, Interval{
			Start: int32(internal.ParseInt(data[4], 10, 32)),
			End:   int32(internal.ParseInt(data[5], 10, 32)),
		})
	}
	if err := scanner.Err(); err != nil {
		log.Panic(err)
	}
	SortByStart(result)
	return result
}
