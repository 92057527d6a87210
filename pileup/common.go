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
package pileup

// Common pileup components.

// These constants fix the column order of every per-position nucleotide count
// table: A, T, G, C, then N.  Output files are indexed with them directly.
const (
	// BaseA represents an A base.
	BaseA byte = iota
	// BaseT represents a T base.
	BaseT
	// BaseG represents a G base.
	BaseG
	// BaseC represents a C base.
	BaseC
	// BaseN represents an ambiguous base.
	BaseN
)

// BaseNone marks a byte that is not a counted nucleotide.
const BaseNone byte = 0xff

// NBaseEnum counts BaseN as well as the regular base types.
const NBaseEnum = 5

// EnumToASCIITable is the A/T/G/C/N enum -> ASCII mapping.
var EnumToASCIITable = [...]byte{'A', 'T', 'G', 'C', 'N'}

// ASCIIToEnumTable is the ASCII -> A/T/G/C/N enum mapping.  Lowercase letters
// map to the same values as uppercase ones (in mpileup text, case only
// encodes strand).  Every other byte maps to BaseNone.
var ASCIIToEnumTable = func() (table [256]byte) {
	for i := range table {
		table[i] = BaseNone
	}
	for enum, c := range EnumToASCIITable {
		table[c] = byte(enum)
		table[c+'a'-'A'] = byte(enum)
	}
	return
}()
