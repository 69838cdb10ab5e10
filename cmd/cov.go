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
	"os"

	"github.com/exascience/pargo/parallel"

	"github.com/exascience/eltrain/cov"
	"github.com/exascience/eltrain/windows"
)

// CovHelp is the help string for this command.
const CovHelp = "cov parameters:\n" +
	"eltrain cov coverage-file sequences-bed output-file\n" +
	"[--pool-width n]\n" +
	"[--timed]\n"

// Cov implements the eltrain cov command. It pools one target's raw
// coverage over every model window and stores the resulting rows in
// an .elcov file, in window order.
func Cov() error {
	var (
		poolWidth int
		timed     bool
	)

	var flags flag.FlagSet

	flags.IntVar(&poolWidth, "pool-width", 128, "coverage pooling bin width")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")

	if len(os.Args) < 5 {
		fmt.Fprintln(os.Stderr, "Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, CovHelp)
		os.Exit(1)
	}

	covFile := getFilename(os.Args[2], CovHelp)
	seqsBed := getFilename(os.Args[3], CovHelp)
	output := getFilename(os.Args[4], CovHelp)

	parseFlags(flags, 5, CovHelp)

	var sanityChecksFailed bool
	if !checkExist("", covFile) {
		sanityChecksFailed = true
	}
	if !checkExist("", seqsBed) {
		sanityChecksFailed = true
	}
	if !checkCreate("", output) {
		sanityChecksFailed = true
	}
	if poolWidth <= 0 {
		log.Println("Error: Invalid pool-width: ", poolWidth)
		sanityChecksFailed = true
	}
	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, CovHelp)
		os.Exit(1)
	}

	timedRun(timed, "Pooling coverage.", func() {
		track := cov.ReadBedGraph(covFile)
		ws := windows.FromBedFile(seqsBed)
		rows := make([][]float32, len(ws))
		parallel.Range(0, len(ws), 0, func(low, high int) {
			for i := low; i < high; i++ {
				w := ws[i]
				rows[i] = cov.PoolWindow(track, w.Chrom, w.Start, w.End, int32(poolWidth))
			}
		})
		cov.WriteSeqsCov(output, rows)
		log.Printf("Wrote %d coverage rows to %v.\n", len(rows), output)
	})
	return nil
}
