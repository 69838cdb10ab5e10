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

// elTrain prepares training data for genome-sequence models: it
// partitions a genome into fixed-length model windows, divides the
// windows over train/validation/test splits, annotates them with
// unmappable-region masks, and extracts per-target coverage values
// into serialized training shards, either locally or on a cluster.
//
// Please see https://github.com/exascience/eltrain for a documentation
// of the tool.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/exascience/eltrain/cmd"
)

func printHelp() {
	fmt.Fprintln(os.Stderr, "Available commands: data, cov, write")
	fmt.Fprint(os.Stderr, "\n", cmd.DataHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.CovHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.WriteHelp)
}

func main() {
	fmt.Fprintln(os.Stderr, cmd.ProgramMessage)
	if len(os.Args) < 2 {
		log.Println("Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, cmd.HelpMessage, "\n")
		printHelp()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "data":
		err = cmd.Data()
	case "cov":
		err = cmd.Cov()
	case "write":
		err = cmd.Write()
	case "help", "-help", "--help", "-h", "--h":
		printHelp()
	default:
		log.Println("Unknown command: ", os.Args[1])
		fmt.Fprint(os.Stderr, cmd.HelpMessage, "\n")
		printHelp()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}
