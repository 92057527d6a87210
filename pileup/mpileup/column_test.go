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
package mpileup_test

import (
	"math/rand"
	"testing"

	"github.com/grailbio/pileupcov/pileup"
	"github.com/grailbio/pileupcov/pileup/mpileup"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

// counts builds a Counts in A, T, G, C, N order.
func counts(a, t, g, c, n uint32) mpileup.Counts {
	return mpileup.Counts{a, t, g, c, n}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name   string
		column string
		want   mpileup.Counts
	}{
		{"empty", "", counts(0, 0, 0, 0, 0)},
		{"allBases", "AATTGGCCNN", counts(2, 2, 2, 2, 2)},
		{"lowercase", "aattggccnn", counts(2, 2, 2, 2, 2)},
		{"mixedCase", "AaTtG", counts(2, 2, 1, 0, 0)},
		{"readStart", "^]A", counts(1, 0, 0, 0, 0)},
		// The mapping-quality character is skipped even when it looks like a
		// base.
		{"readStartBaseQual", "^AC", counts(0, 0, 0, 1, 0)},
		{"readStartSignQual", "^+G", counts(0, 0, 1, 0, 0)},
		{"readStartCaretQual", "^^T", counts(0, 1, 0, 0, 0)},
		{"readEnd", "A$C$", counts(1, 0, 0, 1, 0)},
		{"refMatches", "..,,A*", counts(1, 0, 0, 0, 0)},
		// The two inserted bases 'AC' are skipped, the 'T' after them is an
		// aligned base of the next read.
		{"insertion", "A+2ACT", counts(1, 1, 0, 0, 0)},
		{"insertionExact", "A+2AC", counts(1, 0, 0, 0, 0)},
		{"deletion", "G-3nnnC", counts(0, 0, 1, 1, 0)},
		{"multiDigitInsertion", "A+10AAAAAAAAAAT", counts(1, 1, 0, 0, 0)},
		{"multiDigitDeletion", "c-12ACGTACGTACGTg", counts(0, 0, 1, 1, 0)},
		{"zeroLengthIndel", "A+0T", counts(1, 1, 0, 0, 0)},
		{"indelContainsMarkers", "T+3^$+A", counts(1, 1, 0, 0, 0)},
		{"mixed", "^~A.,+1g$-2TTc*^!N", counts(1, 0, 0, 1, 1)},
	}
	for _, tt := range tests {
		got, err := mpileup.DecodeString(tt.column)
		require.NoError(t, err, tt.name)
		expect.EQ(t, got, tt.want, "%s: %q", tt.name, tt.column)

		got, err = mpileup.Decode([]byte(tt.column))
		require.NoError(t, err, tt.name)
		expect.EQ(t, got, tt.want, "%s: %q", tt.name, tt.column)
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		column string
		offset int
	}{
		{"^", 0},
		{"AC^", 2},
		{"A+", 1},
		{"A-", 1},
		{"A+T", 1},
		{"A+3AC", 1},
		{"A-12ACGT", 1},
		{"A+99999999999999999999", 1},
	}
	for _, tt := range tests {
		got, err := mpileup.DecodeString(tt.column)
		require.Error(t, err, tt.column)
		derr, ok := err.(*mpileup.DecodeError)
		require.True(t, ok, "%q: got %T", tt.column, err)
		expect.EQ(t, derr.Offset, tt.offset, tt.column)
		expect.EQ(t, derr.Column, tt.column)
		expect.EQ(t, got, mpileup.Counts{}, tt.column)
	}
}

// TestDecodePlainBases checks that a column consisting only of A/T/G/C/N
// characters yields counts summing to its length.
func TestDecodePlainBases(t *testing.T) {
	const alphabet = "ATGCNatgcn"
	r := rand.New(rand.NewSource(1))
	for iter := 0; iter < 200; iter++ {
		column := make([]byte, r.Intn(300))
		var want mpileup.Counts
		for i := range column {
			c := alphabet[r.Intn(len(alphabet))]
			column[i] = c
			want[pileup.ASCIIToEnumTable[c]]++
		}
		got, err := mpileup.Decode(column)
		require.NoError(t, err)
		expect.EQ(t, got, want)
		expect.EQ(t, int(got.Total()), len(column))
	}
}

func TestASCIIToEnumTable(t *testing.T) {
	for enum, c := range pileup.EnumToASCIITable {
		expect.EQ(t, pileup.ASCIIToEnumTable[c], byte(enum))
		expect.EQ(t, pileup.ASCIIToEnumTable[c+'a'-'A'], byte(enum))
	}
	for _, c := range []byte("^$+-.,*0123456789BDHKMRSVWYUX") {
		expect.EQ(t, pileup.ASCIIToEnumTable[c], pileup.BaseNone, "%c", c)
	}
}

func BenchmarkDecode(b *testing.B) {
	column := []byte("^~A.,+1g$-2TTc*^!N..,,,..,,ACGTacgt..,,+12ACGTACGTACGT..,,")
	b.SetBytes(int64(len(column)))
	for i := 0; i < b.N; i++ {
		if _, err := mpileup.Decode(column); err != nil {
			b.Fatal(err)
		}
	}
}
