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
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/exp/rand"

	"github.com/exascience/eltrain/bed"
	"github.com/exascience/eltrain/genome"
	"github.com/exascience/eltrain/internal"
	"github.com/exascience/eltrain/intervals"
	"github.com/exascience/eltrain/jobs"
	"github.com/exascience/eltrain/targets"
	"github.com/exascience/eltrain/windows"
)

// DataHelp is the help string for this command.
const DataHelp = "data parameters:\n" +
	"eltrain data fasta-file targets-file\n" +
	"[--output dir]\n" +
	"[--seq-length n]\n" +
	"[--pool-width n]\n" +
	"[--gaps bed-file]\n" +
	"[--limit-bed bed-file]\n" +
	"[--sample-pct f]\n" +
	"[--test-pct-or-chr s]\n" +
	"[--valid-pct-or-chr s]\n" +
	"[--stride-train f]\n" +
	"[--stride-test f]\n" +
	"[--seqs-per-shard n]\n" +
	"[--unmap-bed bed-file]\n" +
	"[--unmap-threshold f]\n" +
	"[--bedtools]\n" +
	"[--seed n]\n" +
	"[--local]\n" +
	"[--processes n]\n" +
	"[--queue name]\n" +
	"[--memory mb]\n" +
	"[--time-limit t]\n" +
	"[--sleep-time d]\n" +
	"[--log-path path]\n" +
	"[--timed]\n"

// Data implements the eltrain data command.
func Data() error {
	var (
		outputDir, gapsFile, limitFile, unmapFile   string
		testPctOrChr, validPctOrChr                 string
		queue, timeLimit, logPath                   string
		seqLength, poolWidth                        int
		seqsPerShard, processes, memory, seed       int
		samplePct, strideTrain, strideTest          float64
		unmapThreshold                              float64
		useBedtools, local, timed                   bool
		sleepTime                                   time.Duration
	)

	var flags flag.FlagSet

	flags.StringVar(&outputDir, "output", "data_out", "output directory")
	flags.IntVar(&seqLength, "seq-length", 131072, "model window length")
	flags.IntVar(&poolWidth, "pool-width", 128, "coverage pooling bin width")
	flags.StringVar(&gapsFile, "gaps", "", "BED file of assembly gaps to excise")
	flags.StringVar(&limitFile, "limit-bed", "", "BED file of regions to restrict contigs to")
	flags.Float64Var(&samplePct, "sample-pct", 1.0, "fraction of contigs to sample")
	flags.StringVar(&testPctOrChr, "test-pct-or-chr", "0.05", "test set fraction, or comma-separated chromosomes")
	flags.StringVar(&validPctOrChr, "valid-pct-or-chr", "0.05", "validation set fraction, or comma-separated chromosomes")
	flags.Float64Var(&strideTrain, "stride-train", 1.0, "tiling stride for train contigs, as a fraction of seq-length")
	flags.Float64Var(&strideTest, "stride-test", 1.0, "tiling stride for valid/test contigs, as a fraction of seq-length")
	flags.IntVar(&seqsPerShard, "seqs-per-shard", 256, "maximum windows per shard file")
	flags.StringVar(&unmapFile, "unmap-bed", "", "BED file of unmappable regions")
	flags.Float64Var(&unmapThreshold, "unmap-threshold", 0.3, "drop windows with at least this fraction of unmappable bins")
	flags.BoolVar(&useBedtools, "bedtools", false, "intersect regions with the external bedtools command")
	flags.IntVar(&seed, "seed", 44, "random seed")
	flags.BoolVar(&local, "local", false, "run jobs locally instead of submitting to SLURM")
	flags.IntVar(&processes, "processes", 0, "number of parallel local jobs")
	flags.StringVar(&queue, "queue", "standard", "SLURM partition")
	flags.IntVar(&memory, "memory", 15000, "SLURM memory request in MB")
	flags.StringVar(&timeLimit, "time-limit", "12:0:0", "SLURM time limit")
	flags.DurationVar(&sleepTime, "sleep-time", time.Second, "SLURM queue polling interval")
	flags.StringVar(&logPath, "log-path", "", "writable directory for eltrain log files")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")

	if len(os.Args) < 4 {
		fmt.Fprintln(os.Stderr, "Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, DataHelp)
		os.Exit(1)
	}

	fastaFile := getFilename(os.Args[2], DataHelp)
	targetsFile := getFilename(os.Args[3], DataHelp)

	parseFlags(flags, 4, DataHelp)

	setLogOutput(logPath)

	contigsBed := filepath.Join(outputDir, "contigs.bed")
	seqsBed := filepath.Join(outputDir, "sequences.bed")
	maskFile := filepath.Join(outputDir, "mseqs_unmap.elunmap")
	covDir := filepath.Join(outputDir, "seqs_cov")
	shardDir := filepath.Join(outputDir, "shards")

	// sanity checks

	var sanityChecksFailed bool

	if !checkExist("", fastaFile) {
		sanityChecksFailed = true
	}
	if !checkExist("", targetsFile) {
		sanityChecksFailed = true
	}
	if gapsFile != "" && !checkExist("--gaps", gapsFile) {
		sanityChecksFailed = true
	}
	if limitFile != "" && !checkExist("--limit-bed", limitFile) {
		sanityChecksFailed = true
	}
	if unmapFile != "" && !checkExist("--unmap-bed", unmapFile) {
		sanityChecksFailed = true
	}
	if !checkCreate("--output", contigsBed) {
		sanityChecksFailed = true
	}
	if seqLength <= 0 {
		log.Println("Error: Invalid seq-length: ", seqLength)
		sanityChecksFailed = true
	}
	if poolWidth <= 0 || seqLength%poolWidth != 0 {
		log.Println("Error: pool-width must be positive and divide seq-length: ", poolWidth)
		sanityChecksFailed = true
	}
	if samplePct <= 0 || samplePct > 1 {
		log.Println("Error: Invalid sample-pct: ", samplePct)
		sanityChecksFailed = true
	}
	if strideTrain <= 0 {
		log.Println("Error: Invalid stride-train: ", strideTrain)
		sanityChecksFailed = true
	}
	if strideTest <= 0 {
		log.Println("Error: Invalid stride-test: ", strideTest)
		sanityChecksFailed = true
	}
	if seqsPerShard <= 0 {
		log.Println("Error: Invalid seqs-per-shard: ", seqsPerShard)
		sanityChecksFailed = true
	}
	if unmapThreshold <= 0 || unmapThreshold > 1 {
		log.Println("Error: Invalid unmap-threshold: ", unmapThreshold)
		sanityChecksFailed = true
	}
	if processes < 0 {
		log.Println("Error: Invalid processes: ", processes)
		sanityChecksFailed = true
	}
	if memory <= 0 {
		log.Println("Error: Invalid memory: ", memory)
		sanityChecksFailed = true
	}

	pctMode, testPct, validPct, modeErr := splitMode(testPctOrChr, validPctOrChr)
	if modeErr != nil {
		log.Println("Error: ", modeErr)
		sanityChecksFailed = true
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, DataHelp)
		os.Exit(1)
	}

	ts, err := targets.ReadManifest(targetsFile)
	if err != nil {
		return err
	}
	log.Printf("Read %d targets from %v.\n", len(ts), targetsFile)

	internal.MkdirAll(outputDir, 0700)
	internal.MkdirAll(covDir, 0700)
	internal.MkdirAll(shardDir, 0700)

	rnd := rand.New(rand.NewSource(uint64(seed)))

	// contigs

	var contigs []genome.Contig
	timedRun(timed, "Building contigs.", func() {
		spans := genome.LoadChromosomes(fastaFile)
		if gapsFile != "" {
			spans = genome.SplitByGaps(spans, gapsFile)
		}
		contigs = genome.Contigs(spans)
		if limitFile != "" {
			contigs = genome.LimitContigs(contigs, newIndex(limitFile, useBedtools))
		}
		contigs = genome.FilterContigs(contigs, int32(seqLength))
		if samplePct < 1 {
			contigs = genome.SampleContigs(contigs, samplePct, rnd)
		}
	})
	log.Printf("%d contigs of at least %d nt.\n", len(contigs), seqLength)
	if err := checkContigs(contigs, seqLength, fastaFile); err != nil {
		return err
	}
	bed.WriteBed(contigsBed, genome.ToBed(contigs, ""))

	// split allocation

	var train, valid, test []genome.Contig
	timedRun(timed, "Dividing contigs.", func() {
		if pctMode {
			train, valid, test = genome.DivideByPct(contigs, testPct, validPct, genome.PctAbstain, rnd)
		} else {
			train, valid, test = genome.DivideByChrom(contigs, testPctOrChr, validPctOrChr)
		}
	})

	// model windows

	var merged []windows.Window
	timedRun(timed, "Tiling model windows.", func() {
		trainWindows := windows.Tile(train, int32(seqLength), strideTrain, windows.Train)
		validWindows := windows.Tile(valid, int32(seqLength), strideTest, windows.Valid)
		testWindows := windows.Tile(test, int32(seqLength), strideTest, windows.Test)
		merged = windows.Merge(trainWindows, validWindows, testWindows, rnd)
	})

	if unmapFile != "" {
		timedRun(timed, "Annotating unmappable regions.", func() {
			mask := windows.Annotate(merged, newIndex(unmapFile, useBedtools), int32(seqLength), int32(poolWidth))
			filtered, filteredMask := windows.FilterUnmappable(merged, mask, unmapThreshold)
			log.Printf("Dropped %d of %d windows with unmappable fraction >= %v.\n", len(merged)-len(filtered), len(merged), unmapThreshold)
			merged, mask = filtered, filteredMask
			windows.WriteMask(mask, maskFile)
		})
	}

	bed.WriteBed(seqsBed, windows.ToBed(merged))
	counts := windows.SplitCounts(merged)
	for _, split := range windows.Splits {
		log.Printf(" %v: %d windows\n", split, counts[split])
	}

	// jobs

	resources := jobs.Resources{Queue: queue, Memory: memory, TimeLimit: timeLimit}
	var runner jobs.Runner
	if local {
		runner = jobs.LocalRunner{Processes: processes}
	} else {
		runner = jobs.SlurmRunner{SleepTime: sleepTime}
	}

	covJobs := jobs.CoverageJobs(ts, seqsBed, covDir, int32(poolWidth), resources)
	var covSummary jobs.Summary
	timedRun(timed, "Running coverage jobs.", func() {
		covSummary = runner.Run(covJobs)
	})
	covSummary.Report("Coverage")
	if !covSummary.Ok() {
		return fmt.Errorf("%d coverage jobs failed; shard jobs not started", len(covSummary.Failures))
	}

	writeMask := ""
	if unmapFile != "" {
		writeMask = maskFile
	}
	shardJobs := jobs.ShardJobs(jobs.Plan(counts, seqsPerShard), fastaFile, seqsBed, covDir, writeMask, shardDir, resources)
	var shardSummary jobs.Summary
	timedRun(timed, "Running shard jobs.", func() {
		shardSummary = runner.Run(shardJobs)
	})
	shardSummary.Report("Shard")
	if !shardSummary.Ok() {
		return fmt.Errorf("%d shard jobs failed", len(shardSummary.Failures))
	}
	return nil
}

func newIndex(bedFile string, useBedtools bool) intervals.Index {
	if useBedtools {
		return intervals.NewBedtoolsIndex(bedFile)
	}
	return intervals.NewSortedIndexFromBedFile(bedFile)
}

// splitMode decides between fraction and chromosome splitting. When
// both parameters parse as numbers, they select fraction mode and must
// be nonnegative with a sum of at most 1. When neither parses, they
// select chromosome mode. A number paired with a chromosome list is an
// error.
func splitMode(testStr, validStr string) (pctMode bool, testPct, validPct float64, err error) {
	testPct, testErr := strconv.ParseFloat(testStr, 64)
	validPct, validErr := strconv.ParseFloat(validStr, 64)
	switch {
	case testErr == nil && validErr == nil:
		if testPct < 0 || validPct < 0 || testPct+validPct > 1 {
			return false, 0, 0, fmt.Errorf("test and validation fractions %v and %v must be nonnegative and sum to at most 1", testStr, validStr)
		}
		return true, testPct, validPct, nil
	case testErr == nil || validErr == nil:
		return false, 0, 0, fmt.Errorf("test-pct-or-chr %v and valid-pct-or-chr %v mix a fraction with a chromosome list", testStr, validStr)
	default:
		return false, 0, 0, nil
	}
}

func checkContigs(contigs []genome.Contig, seqLength int, fastaFile string) error {
	if len(contigs) == 0 {
		return fmt.Errorf("no contigs of at least %d nt in %v", seqLength, fastaFile)
	}
	return nil
}
