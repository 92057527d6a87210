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
	"bufio"
	"bytes"
	"io"

	"github.com/grailbio/base/errors"
)

// FromFasta measures every sequence in a FASTA stream.  The sequence name is
// the first whitespace-delimited word of its header line.
func FromFasta(in io.Reader) (contigs []Contig, err error) {
	var (
		r       = bufio.NewReader(in)
		seqName string
		seqLen  int
		inSeq   bool
		eof     bool
	)

	setErr := func(e error) {
		if e != nil && err == nil {
			err = e
		}
	}
	flush := func() {
		if inSeq {
			contigs = append(contigs, Contig{Name: seqName, Len: seqLen})
		}
	}
	for !eof && err == nil {
		fullLine, e := r.ReadBytes('\n')
		if e == io.EOF { // Process fullLine, then exit the loop
			eof = true
		} else if e != nil {
			setErr(e)
		}
		line := bytes.TrimRight(fullLine, "\r\n")
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' { // Start a new sequence.
			flush()
			fields := bytes.Fields(line[1:])
			if len(fields) == 0 {
				setErr(errors.E(errors.Invalid, "malformed FASTA file: unnamed sequence"))
				break
			}
			seqName = string(fields[0])
			seqLen = 0
			inSeq = true
			continue
		}
		if !inSeq {
			setErr(errors.E(errors.Invalid, "malformed FASTA file: sequence data before first header"))
			break
		}
		seqLen += len(line)
	}
	if err != nil {
		return nil, err
	}
	flush()
	if len(contigs) == 0 {
		return nil, errors.E(errors.Invalid, "empty FASTA file")
	}
	return contigs, nil
}
