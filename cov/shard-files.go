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
	"github.com/exascience/eltrain/windows"
)

// A ShardRecord is one training example: a labeled genomic window,
// its normalized nucleotide sequence, and the pooled coverage of
// every target over that window. Coverage is indexed by target, then
// bin; unmappable bins hold NaN.
type ShardRecord struct {
	Label      windows.Split
	Chrom      string
	Start, End int32
	Sequence   []byte
	Coverage   [][]float32
}

// ElshardMagic is the magic byte sequence that every .elshard file
// starts with.
var ElshardMagic = []byte{0x31, 0xE5, 0xA8, 0xDF}

// WriteShard stores training records in an eltrain-defined .elshard
// file. All records must have the same sequence length and coverage
// shape. The records are snappy-compressed.
func WriteShard(filename string, records []ShardRecord) {
	file := internal.FileCreate(filename)
	defer internal.Close(file)

	var seqLen, nTargets, bins int
	if len(records) > 0 {
		seqLen = len(records[0].Sequence)
		nTargets = len(records[0].Coverage)
		if nTargets > 0 {
			bins = len(records[0].Coverage[0])
		}
	}

	internal.Write(file, ElshardMagic)
	var header [32]byte
	binary.LittleEndian.PutUint64(header[:8], uint64(len(records)))
	binary.LittleEndian.PutUint64(header[8:16], uint64(seqLen))
	binary.LittleEndian.PutUint64(header[16:24], uint64(nTargets))
	binary.LittleEndian.PutUint64(header[24:], uint64(bins))
	internal.Write(file, header[:])

	out := snappy.NewBufferedWriter(file)
	covBuf := make([]byte, 4*bins)
	for _, record := range records {
		if len(record.Sequence) != seqLen || len(record.Coverage) != nTargets {
			log.Panicf("inconsistent record shape in shard %v", filename)
		}
		internal.Write(out, []byte{byte(record.Label)})
		writeString(out, record.Chrom)
		var coords [8]byte
		binary.LittleEndian.PutUint32(coords[:4], uint32(record.Start))
		binary.LittleEndian.PutUint32(coords[4:], uint32(record.End))
		internal.Write(out, coords[:])
		internal.Write(out, record.Sequence)
		for _, row := range record.Coverage {
			if len(row) != bins {
				log.Panicf("inconsistent bin count in shard %v: %d versus %d", filename, len(row), bins)
			}
			for i, value := range row {
				binary.LittleEndian.PutUint32(covBuf[4*i:], math.Float32bits(value))
			}
			internal.Write(out, covBuf)
		}
	}
	if err := out.Close(); err != nil {
		log.Panic(err)
	}
}

// ReadShard loads all training records from an .elshard file.
func ReadShard(filename string) []ShardRecord {
	file := internal.FileOpen(filename)
	defer internal.Close(file)

	magic := make([]byte, len(ElshardMagic))
	if _, err := io.ReadFull(file, magic); err != nil {
		log.Panic(err)
	}
	for i, b := range ElshardMagic {
		if magic[i] != b {
			log.Panicf("%v is not an .elshard file - invalid magic", filename)
		}
	}
	var header [32]byte
	if _, err := io.ReadFull(file, header[:]); err != nil {
		log.Panic(err)
	}
	count := int(binary.LittleEndian.Uint64(header[:8]))
	seqLen := int(binary.LittleEndian.Uint64(header[8:16]))
	nTargets := int(binary.LittleEndian.Uint64(header[16:24]))
	bins := int(binary.LittleEndian.Uint64(header[24:]))

	in := snappy.NewReader(file)
	covBuf := make([]byte, 4*bins)
	records := make([]ShardRecord, 0, count)
	for i := 0; i < count; i++ {
		var label [1]byte
		if _, err := io.ReadFull(in, label[:]); err != nil {
			log.Panic(err)
		}
		record := ShardRecord{
			Label: windows.Split(label[0]),
			Chrom: readString(in),
		}
		var coords [8]byte
		if _, err := io.ReadFull(in, coords[:]); err != nil {
			log.Panic(err)
		}
		record.Start = int32(binary.LittleEndian.Uint32(coords[:4]))
		record.End = int32(binary.LittleEndian.Uint32(coords[4:]))
		record.Sequence = make([]byte, seqLen)
		if _, err := io.ReadFull(in, record.Sequence); err != nil {
			log.Panic(err)
		}
		record.Coverage = make([][]float32, nTargets)
		for t := range record.Coverage {
			if _, err := io.ReadFull(in, covBuf); err != nil {
				log.Panic(err)
			}
			row := make([]float32, bins)
			for j := range row {
				row[j] = math.Float32frombits(binary.LittleEndian.Uint32(covBuf[4*j:]))
			}
			record.Coverage[t] = row
		}
		records = append(records, record)
	}
	return records
}

func writeString(out io.Writer, s string) {
	var length [8]byte
	binary.LittleEndian.PutUint64(length[:], uint64(len(s)))
	internal.Write(out, length[:])
	internal.WriteString(out, s)
}

func readString(in io.Reader) string {
	var length [8]byte
	if _, err := io.ReadFull(in, length[:]); err != nil {
		log.Panic(err)
	}
	buf := make([]byte, binary.LittleEndian.Uint64(length[:]))
	if _, err := io.ReadFull(in, buf); err != nil {
		log.Panic(err)
	}
	return string(buf)
}
