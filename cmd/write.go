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

package cmd

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/exascience/eltrain/cov"
	"github.com/exascience/eltrain/fasta"
	"github.com/exascience/eltrain/internal"
	"github.com/exascience/eltrain/windows"
)

// WriteHelp is the help string for this command.
const WriteHelp = "write parameters:\n" +
	"eltrain write fasta-file sequences-bed cov-dir output-file\n" +
	"[--start n]\n" +
	"[--end n]\n" +
	"[--unmap elunmap-file]\n" +
	"[--timed]\n"

// Write implements the eltrain write command. It assembles the model
// windows [start, end) into one .elshard file of training records,
// combining the genomic sequence with the pooled coverage of every
// target, and masking unmappable bins with NaN.
func Write() error {
	var (
		start, end int
		unmapFile  string
		timed      bool
	)

	var flags flag.FlagSet

	flags.IntVar(&start, "start", 0, "first window of the shard")
	flags.IntVar(&end, "end", -1, "one past the last window of the shard")
	flags.StringVar(&unmapFile, "unmap", "", "unmappable bin mask file")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")

	if len(os.Args) < 6 {
		fmt.Fprintln(os.Stderr, "Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, WriteHelp)
		os.Exit(1)
	}

	fastaFile := getFilename(os.Args[2], WriteHelp)
	seqsBed := getFilename(os.Args[3], WriteHelp)
	covDir := getFilename(os.Args[4], WriteHelp)
	output := getFilename(os.Args[5], WriteHelp)

	parseFlags(flags, 6, WriteHelp)

	var sanityChecksFailed bool
	if !checkExist("", fastaFile) {
		sanityChecksFailed = true
	}
	if !checkExist("", seqsBed) {
		sanityChecksFailed = true
	}
	if !checkExist("", covDir) {
		sanityChecksFailed = true
	}
	if !checkCreate("", output) {
		sanityChecksFailed = true
	}
	if unmapFile != "" && !checkExist("--unmap", unmapFile) {
		sanityChecksFailed = true
	}
	if start < 0 {
		log.Println("Error: Invalid start: ", start)
		sanityChecksFailed = true
	}
	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, WriteHelp)
		os.Exit(1)
	}

	timedRun(timed, "Writing training records.", func() {
		ws := windows.FromBedFile(seqsBed)
		if end < 0 {
			end = len(ws)
		}
		if start > end || end > len(ws) {
			log.Panicf("window range [%d, %d) outside %v with %d windows", start, end, seqsBed, len(ws))
		}

		covFiles := seqsCovFiles(covDir)
		coverage := make([][][]float32, len(covFiles))
		for t, covFile := range covFiles {
			coverage[t] = cov.ReadSeqsCovRange(covFile, start, end)
		}

		var mask *windows.Mask
		if unmapFile != "" {
			mask = windows.ReadMask(unmapFile)
		}

		genome := fasta.ParseFasta(fastaFile)

		nan := float32(math.NaN())
		records := make([]cov.ShardRecord, 0, end-start)
		for i := start; i < end; i++ {
			w := ws[i]
			chromSeq, ok := genome[w.Chrom]
			if !ok {
				log.Panicf("chromosome %v not present in %v", w.Chrom, fastaFile)
			}
			sequence := make([]byte, w.End-w.Start)
			copy(sequence, chromSeq[w.Start:w.End])
			rows := make([][]float32, len(coverage))
			for t := range coverage {
				rows[t] = coverage[t][i-start]
			}
			if mask != nil {
				row := mask.Rows[i]
				for bin := 0; bin < mask.Bins; bin++ {
					if row.Test(uint(bin)) {
						for t := range rows {
							rows[t][bin] = nan
						}
					}
				}
			}
			records = append(records, cov.ShardRecord{
				Label:    w.Label,
				Chrom:    w.Chrom,
				Start:    w.Start,
				End:      w.End,
				Sequence: sequence,
				Coverage: rows,
			})
		}
		cov.WriteShard(output, records)
		log.Printf("Wrote %d training records to %v.\n", len(records), output)
	})
	return nil
}

// seqsCovFiles lists the per-target .elcov files of a coverage
// directory in target index order.
func seqsCovFiles(covDir string) []string {
	files, err := internal.Directory(covDir)
	if err != nil {
		log.Panic(err)
	}
	indices := make([]int, 0, len(files))
	for _, file := range files {
		if !strings.HasSuffix(file, ".elcov") {
			continue
		}
		index, err := strconv.Atoi(strings.TrimSuffix(file, ".elcov"))
		if err != nil {
			log.Panicf("unexpected coverage file name %v in %v", file, covDir)
		}
		indices = append(indices, index)
	}
	sort.Ints(indices)
	result := make([]string, 0, len(indices))
	for _, index := range indices {
		result = append(result, filepath.Join(covDir, strconv.Itoa(index)+".elcov"))
	}
	return result
}
