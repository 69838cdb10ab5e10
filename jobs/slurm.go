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

package jobs

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/exascience/eltrain/internal"
)

// squeueRetryLimit bounds the number of consecutive squeue failures
// tolerated before polling is abandoned.
const squeueRetryLimit = 5

// A SlurmRunner submits jobs to a SLURM cluster with sbatch and polls
// squeue until they complete. SleepTime is the polling interval; zero
// means ten seconds.
type SlurmRunner struct {
	SleepTime time.Duration
}

type slurmSubmission struct {
	id  string
	job Job
}

// Run submits the given jobs and blocks until none of them remain in
// the queue. A job counts as done only if its output file exists
// afterwards.
func (runner SlurmRunner) Run(js []Job) Summary {
	sleepTime := runner.SleepTime
	if sleepTime <= 0 {
		sleepTime = 10 * time.Second
	}
	var (
		summary     Summary
		submissions []slurmSubmission
	)
	for _, job := range js {
		if internal.FileExists(job.Output) {
			log.Printf("Skipping %v: output %v already exists.\n", job.Name, job.Output)
			summary.Skipped++
			continue
		}
		submissions = append(submissions, slurmSubmission{id: sbatch(job), job: job})
	}
	for ids, retries := activeIDs(submissions), 0; len(ids) > 0; {
		time.Sleep(sleepTime)
		next, err := queuedIDs(ids)
		if err != nil {
			if retries++; retries >= squeueRetryLimit {
				log.Printf("Giving up on squeue after %d failed attempts: %v\n", retries, err)
				break
			}
			log.Printf("squeue failed, retrying: %v\n", err)
			continue
		}
		ids, retries = next, 0
	}
	for _, submission := range submissions {
		if internal.FileExists(submission.job.Output) {
			summary.Done++
		} else {
			summary.Failures = append(summary.Failures, Failure{Name: submission.job.Name, Stderr: submission.job.Stderr})
		}
	}
	return summary
}

func sbatch(job Job) (id string) {
	cmd := exec.Command("sbatch",
		"--job-name="+job.Name,
		"--output="+job.Stdout,
		"--error="+job.Stderr,
		fmt.Sprintf("--mem=%dM", job.Memory),
		"--time="+job.TimeLimit,
		"--partition="+job.Queue,
		"--wrap="+strings.Join(append([]string{os.Args[0]}, job.Args...), " "),
	)
	cmd.Stderr = os.Stderr
	out, err := cmd.Output()
	if err != nil {
		log.Panicf("sbatch %v: %v", job.Name, err)
	}
	// sbatch prints "Submitted batch job <id>"
	fields := strings.Fields(strings.TrimSpace(string(out)))
	if len(fields) == 0 {
		log.Panicf("sbatch %v: no job id in output %q", job.Name, string(out))
	}
	id = fields[len(fields)-1]
	log.Printf("Submitted %v as SLURM job %v.\n", job.Name, id)
	return id
}

func activeIDs(submissions []slurmSubmission) (ids []string) {
	for _, submission := range submissions {
		ids = append(ids, submission.id)
	}
	return ids
}

// queuedIDs asks squeue which of the given jobs are still pending or
// running. An invalid job id response means all listed jobs have left
// the queue; other failures are returned for the caller to retry.
func queuedIDs(ids []string) ([]string, error) {
	cmd := exec.Command("squeue", "-h", "-o", "%i", "-j", strings.Join(ids, ","))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		// squeue rejects the id list once all listed jobs have left
		// the queue on some SLURM versions
		if strings.Contains(stderr.String(), "Invalid job id") {
			return nil, nil
		}
		os.Stderr.Write(stderr.Bytes())
		return ids, err
	}
	return strings.Fields(string(out)), nil
}
