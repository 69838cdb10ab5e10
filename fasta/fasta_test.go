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

package fasta

import (
	"io/ioutil"
	"path/filepath"
	"testing"
)

func writeFasta(t *testing.T, contents string) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "genome.fa")
	if err := ioutil.WriteFile(filename, []byte(contents), 0666); err != nil {
		t.Fatal(err)
	}
	return filename
}

func TestToUpperAndN(t *testing.T) {
	for _, base := range []byte("ACGTN") {
		if ToUpperAndN(base) != base {
			t.Errorf("ToUpperAndN changed %c", base)
		}
	}
	if ToUpperAndN('a') != 'A' || ToUpperAndN('t') != 'T' {
		t.Error("ToUpperAndN case normalization failed")
	}
	for _, base := range []byte("RYMKWSBDHVrymkwsbdhv") {
		if ToUpperAndN(base) != 'N' {
			t.Errorf("ToUpperAndN did not normalize %c", base)
		}
	}
}

func TestParseFasta(t *testing.T) {
	filename := writeFasta(t,
		">chr1 primary assembly\n"+
			"acgt\n"+
			"ACRY\n"+
			"\n"+
			">chr2\n"+
			"ttnn\n")
	fasta := ParseFasta(filename)
	if len(fasta) != 2 {
		t.Fatal("ParseFasta sequence count failed")
	}
	if string(fasta["chr1"]) != "ACGTACNN" {
		t.Errorf("ParseFasta chr1 failed: %v", string(fasta["chr1"]))
	}
	if string(fasta["chr2"]) != "TTNN" {
		t.Errorf("ParseFasta chr2 failed: %v", string(fasta["chr2"]))
	}
}

func TestSequenceLengths(t *testing.T) {
	filename := writeFasta(t, ">chr1\nACGTACGT\nACGT\n>chr2\nACGT\n")
	lengths := SequenceLengths(filename)
	if len(lengths) != 2 || lengths["chr1"] != 12 || lengths["chr2"] != 4 {
		t.Errorf("SequenceLengths from scan failed: %v", lengths)
	}

	// a .fai index takes precedence over the scan
	if err := ioutil.WriteFile(filename+".fai", []byte("chr1\t12\t6\t8\t9\nchr2\t4\t22\t4\t5\n"), 0666); err != nil {
		t.Fatal(err)
	}
	lengths = SequenceLengths(filename)
	if len(lengths) != 2 || lengths["chr1"] != 12 || lengths["chr2"] != 4 {
		t.Errorf("SequenceLengths from fai failed: %v", lengths)
	}
}

func TestParseFai(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "genome.fa.fai")
	if err := ioutil.WriteFile(filename, []byte("chr1\t248956422\t112\t70\t71\n"), 0666); err != nil {
		t.Fatal(err)
	}
	fai := ParseFai(filename)
	ref, ok := fai["chr1"]
	if !ok || ref.Length != 248956422 || ref.Offset != 112 || ref.LineBases != 70 || ref.LineWidth != 71 {
		t.Errorf("ParseFai failed: %+v", ref)
	}
}
