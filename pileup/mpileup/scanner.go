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
package mpileup

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	gunsafe "github.com/grailbio/base/unsafe"
)

// Column indexes of the samtools mpileup text format.  The reference-base
// column (2) and the base-quality column (5) are not needed here.
const (
	colContig  = 0
	colPos     = 1
	colDepth   = 3
	colColumn  = 4
	minColumns = 5
)

// Record is a single line of samtools mpileup output.
type Record struct {
	Contig string
	Pos    int    // 0-based; the text format is 1-based
	Depth  int
	Column []byte // read-bases column, undecoded
}

// ParseError reports a line that is not a valid mpileup record.
type ParseError struct {
	// Line is the 1-based line number, or 0 when the line was parsed outside a
	// Scanner.
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return "mpileup: " + e.Msg
	}
	return fmt.Sprintf("mpileup: line %d: %s", e.Line, e.Msg)
}

// ParseRecord parses one line of samtools mpileup output.  The line may end
// with "\n" or "\r\n".  rec.Column aliases line.
func ParseRecord(line []byte) (rec Record, err error) {
	if perr := parseRecord(line, &rec); perr != nil {
		return Record{}, perr
	}
	return rec, nil
}

func parseRecord(line []byte, rec *Record) *ParseError {
	line = bytes.TrimRight(line, "\r\n")
	var fields [minColumns][]byte
	nField := 0
	for nField < minColumns {
		tab := bytes.IndexByte(line, '\t')
		if tab < 0 {
			fields[nField] = line
			nField++
			break
		}
		fields[nField] = line[:tab]
		line = line[tab+1:]
		nField++
	}
	if nField < minColumns {
		return &ParseError{Msg: fmt.Sprintf("expected at least %d tab-separated columns, got %d", minColumns, nField)}
	}
	if len(fields[colContig]) == 0 {
		return &ParseError{Msg: "empty contig name"}
	}
	pos, err := strconv.Atoi(gunsafe.BytesToString(fields[colPos]))
	if err != nil {
		return &ParseError{Msg: fmt.Sprintf("invalid position %q", fields[colPos])}
	}
	depth, err := strconv.Atoi(gunsafe.BytesToString(fields[colDepth]))
	if err != nil || depth < 0 {
		return &ParseError{Msg: fmt.Sprintf("invalid depth %q", fields[colDepth])}
	}
	rec.Contig = string(fields[colContig])
	rec.Pos = pos - 1
	rec.Depth = depth
	rec.Column = fields[colColumn]
	return nil
}

// ScannerOpts controls the behavior of a Scanner.
type ScannerOpts struct {
	// SkipMalformed causes lines that can't be parsed to be counted and
	// skipped, instead of stopping the scan.
	SkipMalformed bool
}

// Scanner reads Records from a stream of samtools mpileup text.  Typical
// usage:
//
//   s := mpileup.NewScanner(r, mpileup.ScannerOpts{})
//   for s.Scan() {
//     rec := s.Record()
//     ...
//   }
//   if err := s.Err(); err != nil {
//     ...
//   }
type Scanner struct {
	r          *bufio.Reader
	opts       ScannerOpts
	rec        Record
	lineNum    int
	nMalformed int
	eof        bool
	err        error
}

// NewScanner creates a Scanner reading from r.
func NewScanner(r io.Reader, opts ScannerOpts) *Scanner {
	return &Scanner{
		r:    bufio.NewReaderSize(r, 1<<20),
		opts: opts,
	}
}

// Scan advances to the next record.  It returns false at end of input or on
// error.
func (s *Scanner) Scan() bool {
	for !s.eof && s.err == nil {
		line, err := s.r.ReadBytes('\n')
		if err == io.EOF { // Process line, then exit the loop
			s.eof = true
		} else if err != nil {
			s.err = err
			return false
		}
		if len(line) == 0 {
			continue
		}
		s.lineNum++
		if len(bytes.TrimRight(line, "\r\n")) == 0 {
			continue
		}
		if perr := parseRecord(line, &s.rec); perr != nil {
			perr.Line = s.lineNum
			if s.opts.SkipMalformed {
				s.nMalformed++
				continue
			}
			s.err = perr
			return false
		}
		return true
	}
	return false
}

// Record returns the record read by the last successful Scan call.
func (s *Scanner) Record() Record { return s.rec }

// LineNum returns the number of lines read so far.
func (s *Scanner) LineNum() int { return s.lineNum }

// NumMalformed returns the number of malformed lines skipped so far.  It is
// always zero unless ScannerOpts.SkipMalformed is set.
func (s *Scanner) NumMalformed() int { return s.nMalformed }

// Err returns the first error encountered, or nil at a clean end of input.
func (s *Scanner) Err() error { return s.err }
