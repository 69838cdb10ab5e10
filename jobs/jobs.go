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

// Package jobs groups model windows into shards and dispatches
// coverage-extraction and shard-writing work, either to a local
// bounded worker pool or to a SLURM cluster.
package jobs

import (
	"fmt"
	"log"
	"path"
	"strconv"

	"github.com/exascience/eltrain/targets"
	"github.com/exascience/eltrain/windows"
)

// A Job is one self-contained unit of work. Args re-invoke the
// running eltrain binary; Output is the file the job produces. A job
// whose output already exists is never re-executed, so any job can be
// re-invoked safely after a crash. The resource fields are only
// consulted by the SLURM backend.
type Job struct {
	Name           string
	Args           []string
	Output         string
	Stdout, Stderr string
	Queue          string
	Memory         int // MB
	TimeLimit      string
}

// Resources are the per-job resource requests passed to the SLURM
// backend.
type Resources struct {
	Queue     string
	Memory    int // MB
	TimeLimit string
}

// A Runner executes a family of jobs and returns only when every job
// has reached a terminal state. Jobs within a family carry no
// ordering dependency and run in parallel; a failed job does not
// cancel its siblings.
type Runner interface {
	Run(jobs []Job) Summary
}

// A Failure records one job that did not produce its output.
type Failure struct {
	Name   string
	Stderr string
}

// A Summary reports the terminal states of a job family.
type Summary struct {
	Done, Skipped int
	Failures      []Failure
}

// Ok tells whether every job of the family succeeded or was skipped.
func (summary Summary) Ok() bool {
	return len(summary.Failures) == 0
}

// Report logs the summary. Failed jobs are listed with their log
// paths for inspection and retry.
func (summary Summary) Report(family string) {
	log.Printf("%v jobs: %d done, %d skipped, %d failed\n", family, summary.Done, summary.Skipped, len(summary.Failures))
	for _, failure := range summary.Failures {
		log.Printf(" Failed: %v (see %v)\n", failure.Name, failure.Stderr)
	}
}

// CoverageJobs builds one coverage-extraction job per target: each
// reads the target's raw coverage file and the final window list, and
// produces one .elcov file in covDir, named by target index.
func CoverageJobs(ts []targets.Target, seqsBed, covDir string, poolWidth int32, res Resources) (result []Job) {
	for _, target := range ts {
		stem := path.Join(covDir, strconv.Itoa(target.Index))
		result = append(result, Job{
			Name: fmt.Sprintf("cov_t%d", target.Index),
			Args: []string{
				"cov",
				"--pool-width", strconv.FormatInt(int64(poolWidth), 10),
				target.File, seqsBed, stem + ".elcov",
			},
			Output:    stem + ".elcov",
			Stdout:    stem + ".out",
			Stderr:    stem + ".err",
			Queue:     res.Queue,
			Memory:    res.Memory,
			TimeLimit: res.TimeLimit,
		})
	}
	return result
}

// ShardJobs builds one shard-writing job per shard: each reads the
// shared FASTA and window list, the per-target coverage directory,
// and the mask file if present, and produces one .elshard file in
// shardDir, named by split and shard index.
func ShardJobs(shards []Shard, fastaFile, seqsBed, covDir, unmapFile, shardDir string, res Resources) (result []Job) {
	for _, shard := range shards {
		stem := path.Join(shardDir, fmt.Sprintf("%v-%d", shard.Label, shard.Index))
		args := []string{
			"write",
			"--start", strconv.Itoa(shard.Start),
			"--end", strconv.Itoa(shard.End),
		}
		if unmapFile != "" {
			args = append(args, "--unmap", unmapFile)
		}
		args = append(args, fastaFile, seqsBed, covDir, stem+".elshard")
		result = append(result, Job{
			Name:      fmt.Sprintf("write_%v-%d", shard.Label, shard.Index),
			Args:      args,
			Output:    stem + ".elshard",
			Stdout:    stem + ".out",
			Stderr:    stem + ".err",
			Queue:     res.Queue,
			Memory:    res.Memory,
			TimeLimit: res.TimeLimit,
		})
	}
	return result
}

// A Shard is a contiguous half-open slice of the merged window list,
// lying strictly within one split's index range.
type Shard struct {
	Label      windows.Split
	Index      int
	Start, End int
}

// Plan partitions each split's contiguous index range into shards of
// at most seqsPerShard windows. The final shard of a split may be
// smaller. counts are the per-split window counts of the merged list.
func Plan(counts [3]int, seqsPerShard int) (result []Shard) {
	offset := 0
	for _, split := range windows.Splits {
		n := counts[split]
		for index, start := 0, 0; start < n; index, start = index+1, start+seqsPerShard {
			end := start + seqsPerShard
			if end > n {
				end = n
			}
			result = append(result, Shard{
				Label: split,
				Index: index,
				Start: offset + start,
				End:   offset + end,
			})
		}
		offset += n
	}
	return result
}
