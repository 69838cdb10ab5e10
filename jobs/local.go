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
	"context"
	"log"
	"os"
	"os/exec"
	"runtime"
	"sync"

	"github.com/exascience/eltrain/internal"
	"github.com/exascience/pargo/pipeline"
)

// A LocalRunner executes jobs on the local machine, at most Processes
// at a time. Processes <= 0 means one per available CPU.
type LocalRunner struct {
	Processes int
}

type jobStatus int

const (
	jobDone jobStatus = iota
	jobSkipped
	jobFailed
)

// jobSource feeds jobs into a pipeline.
type jobSource struct {
	jobs  []Job
	batch []Job
}

func (source *jobSource) Err() error {
	return nil
}

func (source *jobSource) Prepare(_ context.Context) (size int) {
	return len(source.jobs)
}

func (source *jobSource) Fetch(size int) (fetched int) {
	if size > len(source.jobs) {
		size = len(source.jobs)
	}
	source.batch = source.jobs[:size]
	source.jobs = source.jobs[size:]
	return size
}

func (source *jobSource) Data() interface{} {
	return source.batch
}

// Run executes the given jobs on a bounded worker pool. Each job
// re-invokes the current binary with the job's arguments, with both
// output streams captured in the job's stderr file.
func (runner LocalRunner) Run(js []Job) Summary {
	limit := runner.Processes
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	var (
		mutex   sync.Mutex
		summary Summary
	)
	var p pipeline.Pipeline
	p.Source(&jobSource{jobs: js})
	p.SetVariableBatchSize(1, 1)
	p.Add(pipeline.LimitedPar(limit, pipeline.Receive(func(_ int, data interface{}) interface{} {
		for _, job := range data.([]Job) {
			status := runLocal(job)
			mutex.Lock()
			switch status {
			case jobDone:
				summary.Done++
			case jobSkipped:
				summary.Skipped++
			case jobFailed:
				summary.Failures = append(summary.Failures, Failure{Name: job.Name, Stderr: job.Stderr})
			}
			mutex.Unlock()
		}
		return data
	})))
	internal.RunPipeline(&p)
	return summary
}

func runLocal(job Job) jobStatus {
	if internal.FileExists(job.Output) {
		log.Printf("Skipping %v: output %v already exists.\n", job.Name, job.Output)
		return jobSkipped
	}
	log.Printf("Running %v.\n", job.Name)
	stderr := internal.FileCreate(job.Stderr)
	defer internal.Close(stderr)
	cmd := exec.Command(os.Args[0], job.Args...)
	cmd.Stdout = stderr
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		log.Printf("%v failed: %v.\n", job.Name, err)
		return jobFailed
	}
	if !internal.FileExists(job.Output) {
		log.Printf("%v exited cleanly but did not produce %v.\n", job.Name, job.Output)
		return jobFailed
	}
	return jobDone
}
