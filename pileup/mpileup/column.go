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
	"fmt"

	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/pileupcov/pileup"
)

// Counts holds the number of A, T, G, C and N read bases observed in a single
// pileup column, indexed by pileup.BaseA..pileup.BaseN.
type Counts [pileup.NBaseEnum]uint32

// Total returns the sum of all five counters.
func (c *Counts) Total() (total uint32) {
	for _, n := range c {
		total += n
	}
	return
}

// DecodeError reports a read-bases column that cannot be decoded: a '^' with
// no mapping-quality character after it, an indel marker with no length, or
// an indel length running past the end of the column.
type DecodeError struct {
	// Column is a copy of the offending column.
	Column string
	// Offset is the index of the marker that could not be decoded.
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("mpileup: malformed read-bases column at offset %d (%s): %q", e.Offset, e.Reason, e.Column)
}

func newDecodeError(column []byte, offset int, reason string) *DecodeError {
	return &DecodeError{
		Column: string(column),
		Offset: offset,
		Reason: reason,
	}
}

// Decode counts the A/T/G/C/N read bases in a samtools mpileup read-bases
// column.
//
// The column is scanned once, left to right:
//   - '^' starts a read and is followed by exactly one mapping-quality
//     character; both are skipped.
//   - '+' and '-' introduce an insertion or deletion.  The decimal length N
//     that follows the sign is parsed in full (it can have several digits),
//     and the N inserted/deleted bases after it are skipped.
//   - A, T, G, C and N (either case) are counted.
//   - Everything else ('$', '.', ',', '*', ...) is ignored.
//
// Malformed columns yield a *DecodeError and zero counts.
func Decode(column []byte) (counts Counts, err error) {
	n := len(column)
	i := 0
	for i < n {
		c := column[i]
		switch c {
		case '^':
			if i+1 >= n {
				return Counts{}, newDecodeError(column, i, "read start without mapping quality")
			}
			i += 2
		case '+', '-':
			x := i + 1
			skipLen := 0
			for x < n && column[x] >= '0' && column[x] <= '9' {
				skipLen = skipLen*10 + int(column[x]-'0')
				if skipLen > n {
					// Can't possibly fit; stop before the accumulator overflows.
					return Counts{}, newDecodeError(column, i, "indel length past end of column")
				}
				x++
			}
			if x == i+1 {
				return Counts{}, newDecodeError(column, i, "indel without length")
			}
			if x+skipLen > n {
				return Counts{}, newDecodeError(column, i, "indel length past end of column")
			}
			i = x + skipLen
		default:
			if base := pileup.ASCIIToEnumTable[c]; base != pileup.BaseNone {
				counts[base]++
			}
			i++
		}
	}
	return counts, nil
}

// DecodeString is a variant of Decode that takes the column as a string.
func DecodeString(column string) (Counts, error) {
	return Decode(gunsafe.StringToBytes(column))
}
