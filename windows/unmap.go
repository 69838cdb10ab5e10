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

package windows

import (
	"bufio"
	"encoding/binary"
	"io"
	"log"

	"github.com/bits-and-blooms/bitset"
	"github.com/exascience/pargo/parallel"

	"github.com/exascience/eltrain/internal"
	"github.com/exascience/eltrain/intervals"
)

// A Mask records, per window and per pooled bin, whether the bin
// overlaps an unmappable region. Row i corresponds to window i of the
// window list the mask was computed for.
type Mask struct {
	Bins int
	Rows []*bitset.BitSet
}

// binEdgeFraction is the minimum fraction of a pooled bin that an
// overlap must cover for the bin to be marked unmappable. Overlaps
// below this fraction at the first or last affected bin are slivers
// and do not mark the bin.
const binEdgeFraction = 0.2

// Annotate intersects every window with the unmappable regions in the
// given index and converts the overlaps to per-pooled-bin marks.
// seqLength must be the length of every window and a multiple of
// poolWidth.
func Annotate(ws []Window, index intervals.Index, seqLength, poolWidth int32) *Mask {
	bins := int(seqLength / poolWidth)
	mask := &Mask{
		Bins: bins,
		Rows: make([]*bitset.BitSet, len(ws)),
	}
	parallel.Range(0, len(ws), 0, func(low, high int) {
		for i := low; i < high; i++ {
			row := bitset.New(uint(bins))
			window := ws[i]
			for _, region := range index.Intersect(window.Chrom, window.Start, window.End) {
				overlapStart := region.Start
				if overlapStart < window.Start {
					overlapStart = window.Start
				}
				overlapEnd := region.End
				if overlapEnd > window.End {
					overlapEnd = window.End
				}
				markBins(row, overlapStart-window.Start, overlapEnd-window.Start, poolWidth, bins)
			}
			mask.Rows[i] = row
		}
	})
	return mask
}

// markBins sets the pooled bins covered by the overlap
// [overlapStart, overlapEnd), given relative to the window start.
// Bins whose covered width at the edges of the overlap is below
// binEdgeFraction of the pool width are not marked.
func markBins(row *bitset.BitSet, overlapStart, overlapEnd, poolWidth int32, bins int) {
	binStart := overlapStart / poolWidth
	binEnd := (overlapEnd + poolWidth - 1) / poolWidth
	if binStart < 0 || int(binEnd) > bins {
		log.Panicf("unmappable bin range [%d, %d) outside pooled window of %d bins", binStart, binEnd, bins)
	}

	// skip minor overlaps into the first bin
	firstEnd := (binStart + 1) * poolWidth
	if float64(firstEnd-overlapStart) < binEdgeFraction*float64(poolWidth) {
		binStart++
	}

	// skip minor overlaps into the last bin
	lastStart := (binEnd - 1) * poolWidth
	if float64(overlapEnd-lastStart) < binEdgeFraction*float64(poolWidth) {
		binEnd--
	}

	for b := binStart; b < binEnd; b++ {
		row.Set(uint(b))
	}
}

// Fraction returns the unmappable bin fraction of row i.
func (mask *Mask) Fraction(i int) float64 {
	return float64(mask.Rows[i].Count()) / float64(mask.Bins)
}

// FilterUnmappable drops the windows whose unmappable bin fraction
// reaches the given threshold, along with their mask rows. The
// relative order of the surviving windows is preserved.
func FilterUnmappable(ws []Window, mask *Mask, threshold float64) ([]Window, *Mask) {
	result := make([]Window, 0, len(ws))
	rows := make([]*bitset.BitSet, 0, len(mask.Rows))
	for i, window := range ws {
		if mask.Fraction(i) < threshold {
			result = append(result, window)
			rows = append(rows, mask.Rows[i])
		}
	}
	return result, &Mask{Bins: mask.Bins, Rows: rows}
}

// ElunmapMagic is the magic byte sequence that every .elunmap file
// starts with.
var ElunmapMagic = []byte{0x31, 0xBA, 0xDB, 0x17}

// WriteMask stores a mask in an eltrain-defined .elunmap file.
func WriteMask(mask *Mask, filename string) {
	file := internal.FileCreate(filename)
	defer internal.Close(file)

	out := bufio.NewWriter(file)
	internal.Write(out, ElunmapMagic)
	writeUint64(out, uint64(len(mask.Rows)))
	writeUint64(out, uint64(mask.Bins))
	words := (mask.Bins + 63) / 64
	for _, row := range mask.Rows {
		buf := row.Bytes()
		for w := 0; w < words; w++ {
			var word uint64
			if w < len(buf) {
				word = buf[w]
			}
			writeUint64(out, word)
		}
	}
	if err := out.Flush(); err != nil {
		log.Panic(err)
	}
}

// ReadMask loads a mask from an eltrain-defined .elunmap file.
func ReadMask(filename string) *Mask {
	file := internal.FileOpen(filename)
	defer internal.Close(file)

	in := bufio.NewReader(file)
	magic := make([]byte, len(ElunmapMagic))
	if _, err := io.ReadFull(in, magic); err != nil {
		log.Panic(err)
	}
	for i, b := range ElunmapMagic {
		if magic[i] != b {
			log.Panicf("%v is not an .elunmap file - invalid magic", filename)
		}
	}
	rows := int(readUint64(in))
	bins := int(readUint64(in))
	words := (bins + 63) / 64
	mask := &Mask{
		Bins: bins,
		Rows: make([]*bitset.BitSet, rows),
	}
	buf := make([]uint64, words)
	for i := 0; i < rows; i++ {
		for w := 0; w < words; w++ {
			buf[w] = readUint64(in)
		}
		mask.Rows[i] = bitset.From(buf).Clone()
	}
	return mask
}

func writeUint64(out *bufio.Writer, value uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	internal.Write(out, buf[:])
}

func readUint64(in *bufio.Reader) uint64 {
	var buf [8]byte
	if _, err := io.ReadFull(in, buf[:]); err != nil {
		log.Panic(err)
	}
	return binary.LittleEndian.Uint64(buf[:])
}
