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

// Package contig loads the set of reference sequences (names and lengths) a
// coverage profile is built against.
package contig

import (
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

// Contig is a reference sequence of known length.
type Contig struct {
	Name string
	Len  int
}

// Split returns the names and lengths of contigs as two parallel slices.
func Split(contigs []Contig) (names []string, lengths []int) {
	names = make([]string, len(contigs))
	lengths = make([]int, len(contigs))
	for i, c := range contigs {
		names[i] = c.Name
		lengths[i] = c.Len
	}
	return
}

// TotalLen returns the summed length of contigs.
func TotalLen(contigs []Contig) (total int64) {
	for _, c := range contigs {
		total += int64(c.Len)
	}
	return
}

// Load reads contigs from path.  The format is chosen from the file name:
//   - *.bam: the BAM header's @SQ lines
//   - *.fai: a samtools faidx index
//   - *.fa, *.fasta, *.fna: FASTA sequences, measured in full
//   - anything else: a two-column name<TAB>length table
// Compressed inputs (*.gz, *.bz2, *.zst) other than BAM are decompressed
// transparently.
func Load(ctx context.Context, path string) (contigs []Contig, err error) {
	if strings.HasSuffix(path, ".bam") {
		return FromBAM(ctx, path)
	}
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return
	}
	defer file.CloseAndReport(ctx, in, &err)
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, path); u != nil {
		defer func() {
			if e := u.Close(); e != nil && err == nil {
				err = e
			}
		}()
		r = u
	}
	switch base := trimCompressionSuffix(path); {
	case strings.HasSuffix(base, ".fai"):
		contigs, err = ReadFai(r)
	case strings.HasSuffix(base, ".fa"), strings.HasSuffix(base, ".fasta"), strings.HasSuffix(base, ".fna"):
		contigs, err = FromFasta(r)
	default:
		contigs, err = ReadTable(r)
	}
	if err == nil {
		log.Printf("contig.Load: %d contigs (%d bases) from %s", len(contigs), TotalLen(contigs), path)
	}
	return
}

func trimCompressionSuffix(path string) string {
	for _, suffix := range []string{".gz", ".bz2", ".zst"} {
		if strings.HasSuffix(path, suffix) {
			return strings.TrimSuffix(path, suffix)
		}
	}
	return path
}
