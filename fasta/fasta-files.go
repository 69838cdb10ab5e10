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
	"bufio"
	"bytes"
	"log"

	"github.com/exascience/eltrain/internal"
	"github.com/exascience/eltrain/utils"
)

// FaiReference represents an entry in an FAI file.
type FaiReference struct {
	Length    int32
	Offset    int64
	LineBases int32
	LineWidth int32
}

// ParseFai parses an FAI file.
func ParseFai(filename string) (fai map[string]FaiReference) {
	f := internal.FileOpen(filename)
	defer internal.Close(f)

	fai = make(map[string]FaiReference)

	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		b := bytes.Split(scanner.Bytes(), []byte("\t"))
		if len(b) != 5 {
			log.Panicf("badly formatted fai file %v - invalid number of entries", filename)
		}

		fai[string(b[0])] = FaiReference{
			Length:    int32(internal.ParseInt(string(b[1]), 10, 32)),
			Offset:    internal.ParseInt(string(b[2]), 10, 64),
			LineBases: int32(internal.ParseInt(string(b[3]), 10, 32)),
			LineWidth: int32(internal.ParseInt(string(b[4]), 10, 32)),
		}
	}

	if err := scanner.Err(); err != nil {
		log.Panic(err)
	}

	return fai
}

// contigFromHeader extracts the sequence name from a FASTA header
// line, up to the first whitespace.
func contigFromHeader(b []byte) string {
	i := 1
	for ; i < len(b); i++ {
		if c := b[i]; c >= '!' && c <= '~' {
			break
		}
	}
	j := i + 1
	for ; j < len(b); j++ {
		if c := b[j]; c < '!' || c > '~' {
			break
		}
	}
	return string(b[i:j])
}

var iupacUpperTable = map[byte]byte{
	'A': 'A', 'a': 'A',
	'C': 'C', 'c': 'C',
	'G': 'G', 'g': 'G',
	'T': 'T', 't': 'T',
	'N': 'N', 'n': 'N',
	'R': 'N', 'r': 'N',
	'Y': 'N', 'y': 'N',
	'M': 'N', 'm': 'N',
	'K': 'N', 'k': 'N',
	'W': 'N', 'w': 'N',
	'S': 'N', 's': 'N',
	'B': 'N', 'b': 'N',
	'D': 'N', 'd': 'N',
	'H': 'N', 'h': 'N',
	'V': 'N', 'v': 'N',
}

// ToUpperAndN normalizes ambiguity codes in FASTA references,
// and converts all codes to upper case.
func ToUpperAndN(base byte) byte {
	if n, ok := iupacUpperTable[base]; ok {
		return n
	}
	return base
}

// ParseFasta sequentially parses a FASTA file into a map of
// normalized sequences: upper case, with ambiguity codes replaced
// by N.
func ParseFasta(filename string) (fasta map[string][]byte) {
	fasta = make(map[string][]byte)
	scanFasta(filename, func(contig string, seq []byte) {
		normalized := make([]byte, len(seq))
		for i, c := range seq {
			normalized[i] = ToUpperAndN(c)
		}
		fasta[contig] = normalized
	})
	return fasta
}

// SequenceLengths returns the length of every sequence in a FASTA
// file. When a .fai index accompanies the file, the lengths are taken
// from the index; otherwise the file is scanned in full.
func SequenceLengths(filename string) map[string]int32 {
	lengths := make(map[string]int32)
	if faiFile := filename + ".fai"; internal.FileExists(faiFile) {
		for contig, ref := range ParseFai(faiFile) {
			lengths[contig] = ref.Length
		}
		return lengths
	}
	scanFasta(filename, func(contig string, seq []byte) {
		lengths[contig] = int32(len(seq))
	})
	return lengths
}

// scanFasta parses a FASTA file and calls f once per sequence, in
// file order. The seq slice is reused between calls.
func scanFasta(filename string, f func(contig string, seq []byte)) {
	file := internal.FileOpen(filename)
	defer internal.Close(file)

	scanner := bufio.NewScanner(utils.HandleBgzf(bufio.NewReader(file)))
	scanner.Buffer(make([]byte, 0, 0x10000), 0x10000000)

	var contig string
	var seq []byte
	for scanner.Scan() {
		b := scanner.Bytes()
		if len(b) == 0 {
			continue
		}
		if b[0] == '>' {
			if contig != "" {
				f(contig, seq)
			}
			contig = contigFromHeader(b)
			if contig == "" {
				log.Panicf("invalid fasta file %v - empty header", filename)
			}
			seq = seq[:0]
		} else {
			if contig == "" {
				log.Panicf("invalid fasta file %v - missing first header", filename)
			}
			seq = append(seq, b...)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Panic(err)
	}
	if contig == "" {
		log.Panicf("empty fasta file %v", filename)
	}
	f(contig, seq)
}
