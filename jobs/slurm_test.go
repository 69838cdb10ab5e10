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
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// fakeSlurmCommand places a shell script with the given name on the
// PATH, shadowing the real SLURM client commands for the duration of
// the test.
func fakeSlurmCommand(t *testing.T, dir, name, script string) {
	if err := ioutil.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"+script+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
}

func fakeSlurmPath(t *testing.T) string {
	dir := t.TempDir()
	origPath := os.Getenv("PATH")
	os.Setenv("PATH", dir+string(os.PathListSeparator)+origPath)
	t.Cleanup(func() { os.Setenv("PATH", origPath) })
	return dir
}

func TestQueuedIDs(t *testing.T) {
	dir := fakeSlurmPath(t)

	fakeSlurmCommand(t, dir, "squeue", "echo 12\necho 13")
	ids, err := queuedIDs([]string{"12", "13", "14"})
	if err != nil {
		t.Error("unexpected error 1: ", err)
	}
	if len(ids) != 2 || ids[0] != "12" || ids[1] != "13" {
		t.Error("incorrect queued ids 1: ", ids)
	}

	fakeSlurmCommand(t, dir, "squeue", "echo 'slurm_load_jobs error: Invalid job id specified' >&2\nexit 1")
	ids, err = queuedIDs([]string{"12"})
	if err != nil {
		t.Error("drained queue reported as error 2: ", err)
	}
	if ids != nil {
		t.Error("drained queue not empty 2: ", ids)
	}

	fakeSlurmCommand(t, dir, "squeue", "echo 'squeue: error: Socket timed out' >&2\nexit 1")
	ids, err = queuedIDs([]string{"12"})
	if err == nil {
		t.Error("transient failure not reported 3")
	}
	if len(ids) != 1 || ids[0] != "12" {
		t.Error("transient failure dropped the queued ids 3: ", ids)
	}
}

func TestSlurmRunner(t *testing.T) {
	dir := fakeSlurmPath(t)
	fakeSlurmCommand(t, dir, "sbatch", "echo Submitted batch job 7")
	fakeSlurmCommand(t, dir, "squeue", "echo 'slurm_load_jobs error: Invalid job id specified' >&2\nexit 1")

	work := t.TempDir()
	existing := filepath.Join(work, "existing.elcov")
	if err := ioutil.WriteFile(existing, nil, 0666); err != nil {
		t.Fatal(err)
	}
	js := []Job{
		{Name: "cov_t0", Output: existing, Stderr: filepath.Join(work, "cov_t0.err")},
		{Name: "cov_t1", Output: filepath.Join(work, "missing.elcov"), Stderr: filepath.Join(work, "cov_t1.err"), Queue: "standard", Memory: 15000, TimeLimit: "12:0:0"},
	}
	summary := SlurmRunner{SleepTime: time.Millisecond}.Run(js)
	if summary.Skipped != 1 {
		t.Error("incorrect skip count 1: ", summary.Skipped)
	}
	if summary.Done != 0 {
		t.Error("incorrect done count 1: ", summary.Done)
	}
	if len(summary.Failures) != 1 || summary.Failures[0].Name != "cov_t1" {
		t.Error("incorrect failures 1: ", summary.Failures)
	}
}

func TestSlurmRunnerSqueueRetry(t *testing.T) {
	dir := fakeSlurmPath(t)
	fakeSlurmCommand(t, dir, "sbatch", "echo Submitted batch job 8")
	// a squeue that keeps failing must not stall the poll loop
	fakeSlurmCommand(t, dir, "squeue", "echo 'squeue: error: Socket timed out' >&2\nexit 1")

	work := t.TempDir()
	js := []Job{
		{Name: "write_train-0", Output: filepath.Join(work, "train-0.elshard"), Stderr: filepath.Join(work, "train-0.err"), Queue: "standard", Memory: 15000, TimeLimit: "12:0:0"},
	}
	done := make(chan Summary, 1)
	go func() {
		done <- SlurmRunner{SleepTime: time.Millisecond}.Run(js)
	}()
	select {
	case summary := <-done:
		if len(summary.Failures) != 1 {
			t.Error("incorrect failures 1: ", summary.Failures)
		}
	case <-time.After(10 * time.Second):
		t.Error("polling did not give up on a failing squeue")
	}
}
