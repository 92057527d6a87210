// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package contig

import (
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
)

// faiRow is one line of a samtools faidx index
// (http://www.htslib.org/doc/faidx.html).
type faiRow struct {
	Name      string
	Length    int
	Offset    int64
	LineBases int
	LineWidth int
}

// tableRow is one line of a plain contig-length table.
type tableRow struct {
	Name   string
	Length int
}

// ReadFai reads the contig names and lengths from a .fai index.
func ReadFai(r io.Reader) ([]Contig, error) {
	reader := tsv.NewReader(r)
	var contigs []Contig
	for {
		var row faiRow
		if err := reader.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.E(errors.Invalid, err, "contig.ReadFai")
		}
		contigs = append(contigs, Contig{Name: row.Name, Len: row.Length})
	}
	return checkNonEmpty(contigs, "contig.ReadFai")
}

// ReadTable reads a two-column name<TAB>length table.  Lines starting with
// '#' are ignored.
func ReadTable(r io.Reader) ([]Contig, error) {
	reader := tsv.NewReader(r)
	reader.Comment = '#'
	var contigs []Contig
	for {
		var row tableRow
		if err := reader.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.E(errors.Invalid, err, "contig.ReadTable")
		}
		contigs = append(contigs, Contig{Name: row.Name, Len: row.Length})
	}
	return checkNonEmpty(contigs, "contig.ReadTable")
}

func checkNonEmpty(contigs []Contig, caller string) ([]Contig, error) {
	if len(contigs) == 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("%s: no contigs", caller))
	}
	return contigs, nil
}
