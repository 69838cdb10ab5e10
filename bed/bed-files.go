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
	"bufio"
	"log"
	"strconv"
	"strings"

	"github.com/exascience/eltrain/internal"
	"github.com/exascience/eltrain/utils"
)

// ParseBed parses a BED file. See
// https://genome.ucsc.edu/FAQ/FAQformat.html#format1
// Track definition lines and comments are skipped; columns beyond the
// fourth are ignored. The regions are returned in file order.
func ParseBed(filename string) (regions []Region) {
	file := internal.FileOpen(filename)
	defer internal.Close(file)

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
		if len(data) < 3 {
			log.Panicf("invalid bed line in %v: %v", filename, line)
		}
		region := Region{
			Chrom: data[0],
			Start: int32(internal.ParseInt(data[1], 10, 32)),
			End:   int32(internal.ParseInt(data[2], 10, 32)),
		}
		if len(data) > 3 {
			region.Name = data[3]
		}
		regions = append(regions, region)
	}
	if err := scanner.Err(); err != nil {
		log.Panic(err)
	}
	return regions
}

// WriteBed stores regions in a BED file. The name column is written
// only for regions that have one.
func WriteBed(filename string, regions []Region) {
	file := internal.FileCreate(filename)
	defer internal.Close(file)

	out := bufio.NewWriter(file)
	var buf []byte
	for _, region := range regions {
		buf = append(buf[:0], region.Chrom...)
		buf = append(buf, '\t')
		buf = strconv.AppendInt(buf, int64(region.Start), 10)
		buf = append(buf, '\t')
		buf = strconv.AppendInt(buf, int64(region.End), 10)
		if region.Name != "" {
			buf = append(buf, '\t')
			buf = append(buf, region.Name...)
		}
		buf = append(buf, '\n')
		internal.Write(out, buf)
	}
	if err := out.Flush(); err != nil {
		log.Panic(err)
	}
}
