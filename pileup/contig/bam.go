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
	"context"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
)

// FromHeader returns the references of a SAM/BAM header, in header order.
func FromHeader(header *sam.Header) []Contig {
	refs := header.Refs()
	contigs := make([]Contig, len(refs))
	for i, ref := range refs {
		contigs[i] = Contig{Name: ref.Name(), Len: ref.Len()}
	}
	return contigs
}

// FromBAM reads the header of the BAM file at path.  Only the header is
// decoded.
func FromBAM(ctx context.Context, path string) (contigs []Contig, err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return
	}
	defer file.CloseAndReport(ctx, in, &err)
	reader, err := bam.NewReader(in.Reader(ctx), 1)
	if err != nil {
		return nil, errors.E(err, "contig.FromBAM: reading header of", path)
	}
	defer func() {
		if e := reader.Close(); e != nil && err == nil {
			err = e
		}
	}()
	contigs = FromHeader(reader.Header())
	if len(contigs) == 0 {
		err = errors.E(errors.Invalid, "contig.FromBAM: no @SQ lines in header of", path)
	}
	return
}
