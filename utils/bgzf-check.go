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

package utils

import (
	"bufio"
	"io"
	"log"

	"github.com/biogo/hts/bgzf"
)

// HandleBgzf checks if the given reader produces a gzip file
// by looking at the initial bytes. It then either returns
// a bgzf.Reader, or returns the given reader unchanged.
// Genomic inputs compressed with bgzip (BED files in particular)
// are transparently decompressed this way.
// HandleBgzf uses Peek.
func HandleBgzf(buf *bufio.Reader) io.Reader {
	magic, err := buf.Peek(2)
	if err == io.EOF {
		return buf
	}
	if err != nil {
		log.Panic(err)
		return nil
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		r, err := bgzf.NewReader(buf, 0)
		if err != nil {
			log.Panic(err)
			return nil
		}
		return r
	}
	return buf
}
