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

// Package targets reads the manifest of coverage datasets that model
// targets are extracted from.
package targets

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"

	"github.com/exascience/eltrain/internal"
)

// A Target describes one coverage dataset. The index is the row
// number in the manifest and determines the target's position in the
// extracted coverage tensors.
type Target struct {
	Index      int
	Identifier string
	File       string
}

// ReadManifest parses a tab-separated manifest with a header row. The
// file column names the raw coverage source of each target; an
// identifier column is optional. Row order defines target order.
func ReadManifest(filename string) ([]Target, error) {
	file := internal.FileOpen(filename)
	defer internal.Close(file)

	df := dataframe.ReadCSV(file,
		dataframe.WithDelimiter('\t'),
		dataframe.HasHeader(true),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("%v, while reading targets manifest %v", df.Err, filename)
	}

	hasColumn := func(name string) bool {
		for _, col := range df.Names() {
			if col == name {
				return true
			}
		}
		return false
	}
	if !hasColumn("file") {
		return nil, fmt.Errorf("targets manifest %v has no file column", filename)
	}

	files := df.Col("file").Records()
	var identifiers []string
	if hasColumn("identifier") {
		identifiers = df.Col("identifier").Records()
	}

	result := make([]Target, 0, len(files))
	for i, covFile := range files {
		if covFile == "" {
			return nil, fmt.Errorf("targets manifest %v row %v has an empty file column", filename, i)
		}
		target := Target{Index: i, File: covFile}
		if identifiers != nil {
			target.Identifier = identifiers[i]
		} else {
			target.Identifier = fmt.Sprintf("t%d", i)
		}
		result = append(result, target)
	}
	return result, nil
}
