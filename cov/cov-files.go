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

package cov

import (
	"encoding/binary"
	"io"
	"log"
	"math"

	"github.com/golang/snappy"

	"github.com/exascience/eltrain/internal"
)

// ElcovMagic is the magic byte sequence that every .elcov file starts
// with.
var ElcovMagic = []byte{0x31, 0xE1, 0xC0, 0x4F}

// WriteSeqsCov stores per-window pooled coverage rows in an
// eltrain-defined .elcov file. All rows must have the same number of
// bins. The rows are snappy-compressed.
func WriteSeqsCov(filename string, rows [][]float32) {
	file := internal.FileCreate(filename)
	defer internal.Close(file)

	internal.Write(file, ElcovMagic)
	var header [16]byte
	binary.LittleEndian.PutUint64(header[:8], uint64(len(rows)))
	bins := 0
	if len(rows) > 0 {
		bins = len(rows[0])
	}
	binary.LittleEndian.PutUint64(header[8:], uint64(bins))
	internal.Write(file, header[:])

	out := snappy.NewBufferedWriter(file)
	buf := make([]byte, 4*bins)
	for _, row := range rows {
		if len(row) != bins {
			log.Panicf("inconsistent bin count in coverage rows: %d versus %d", len(row), bins)
		}
		for i, value := range row {
			binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(value))
		}
		internal.Write(out, buf)
	}
	if err := out.Close(); err != nil {
		log.Panic(err)
	}
}

// ReadSeqsCovRange loads the coverage rows [start, end) from an
// .elcov file.
func ReadSeqsCovRange(filename string, start, end int) [][]float32 {
	file := internal.FileOpen(filename)
	defer internal.Close(file)

	magic := make([]byte, len(ElcovMagic))
	if _, err := io.ReadFull(file, magic); err != nil {
		log.Panic(err)
	}
	for i, b := range ElcovMagic {
		if magic[i] != b {
			log.Panicf("%v is not an .elcov file - invalid magic", filename)
		}
	}
	var header [16]byte
	if _, err := io.ReadFull(file, header[:]); err != nil {
		log.Panic(err)
	}
	rows := int(binary.LittleEndian.Uint64(header[:8]))
	bins := int(binary.LittleEndian.Uint64(header[8:]))
	if start < 0 || end > rows || start > end {
		log.Panicf("coverage row range [%d, %d) outside %v with %d rows", start, end, filename, rows)
	}

	in := snappy.NewReader(file)
	buf := make([]byte, 4*bins)
	for i := 0; i < start; i++ {
		if _, err := io.ReadFull(in, buf); err != nil {
			log.Panic(err)
		}
	}
	result := make([][]float32, 0, end-start)
	for i := start; i < end; i++ {
		if _, err := io.ReadFull(in, buf); err != nil {
			log.Panic(err)
		}
		row := make([]float32, bins)
		for j := range row {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*j:]))
		}
		result = append(result, row)
	}
	return result
}

// SeqsCovShape returns the number of rows and bins of an .elcov file
// without reading its contents.
func SeqsCovShape(filename string) (rows, bins int) {
	file := internal.FileOpen(filename)
	defer internal.Close(file)

	magic := make([]byte, len(ElcovMagic))
	if _, err := io.ReadFull(file, magic); err != nil {
		log.Panic(err)
	}
	for i, b := range ElcovMagic {
		if magic[i] != b {
			log.Panicf("%v is not an .elcov file - invalid magic", filename)
		}
	}
	var header [16]byte
	if _, err := io.ReadFull(file, header[:]); err != nil {
		log.Panic(err)
	}
	return int(binary.LittleEndian.Uint64(header[:8])), int(binary.LittleEndian.Uint64(header[8:]))
}

// ReadSeqsCov loads all coverage rows from an .elcov file.
func ReadSeqsCov(filename string) [][]float32 {
	rows, _ := SeqsCovShape(filename)
	return ReadSeqsCovRange(filename, 0, rows)
}
