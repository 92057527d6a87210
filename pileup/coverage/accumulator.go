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
package coverage

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/pileupcov/pileup"
	"github.com/grailbio/pileupcov/pileup/mpileup"
)

// Profile holds the per-position coverage of a single contig.
//
// Depth and count values are uint16.  Values above 65535 wrap around.
type Profile struct {
	Name string
	// Depth[pos] is the read depth at 0-based position pos.
	Depth []uint16
	// Counts is a row-major [len(Depth)][pileup.NBaseEnum] matrix; Counts[5*pos+b]
	// is the number of reads with base b (pileup.BaseA..BaseN) at pos.  It is
	// nil when base profiling is disabled.
	Counts []uint16
}

func newProfile(name string, length int, trackBases bool) *Profile {
	p := &Profile{
		Name:  name,
		Depth: make([]uint16, length),
	}
	if trackBases {
		p.Counts = make([]uint16, length*pileup.NBaseEnum)
	}
	return p
}

// Len returns the contig length.
func (p *Profile) Len() int { return len(p.Depth) }

// HasCounts reports whether p carries nucleotide counts.
func (p *Profile) HasCounts() bool { return p.Counts != nil }

// BaseCounts returns the A/T/G/C/N counts at pos.  It returns all zeros if p
// carries no nucleotide counts.
func (p *Profile) BaseCounts(pos int) (row [pileup.NBaseEnum]uint16) {
	if p.Counts != nil {
		copy(row[:], p.Counts[pos*pileup.NBaseEnum:(pos+1)*pileup.NBaseEnum])
	}
	return
}

// Accumulator builds dense coverage profiles from a stream of mpileup
// records.  Storage for a contig is allocated the first time a record lands
// inside it.  Records for unknown contigs, and records whose position falls
// outside the contig, are silently dropped.
//
// An Accumulator is not safe for concurrent use.
type Accumulator struct {
	names      []string
	lengths    []int
	index      map[string]int
	profiles   []*Profile // parallel to names; nil until allocated
	nAllocated int
	trackBases bool
}

// NewAccumulator creates an Accumulator for the given contigs.  names and
// lengths are parallel slices.  If trackBases is false only depth is
// recorded.
func NewAccumulator(names []string, lengths []int, trackBases bool) (*Accumulator, error) {
	if len(names) != len(lengths) {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("coverage.NewAccumulator: %d contig names but %d contig lengths", len(names), len(lengths)))
	}
	a := &Accumulator{
		names:      names,
		lengths:    lengths,
		index:      make(map[string]int, len(names)),
		profiles:   make([]*Profile, len(names)),
		trackBases: trackBases,
	}
	for i, name := range names {
		if _, ok := a.index[name]; ok {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("coverage.NewAccumulator: duplicate contig name %q", name))
		}
		if lengths[i] <= 0 {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("coverage.NewAccumulator: contig %q has nonpositive length %d", name, lengths[i]))
		}
		a.index[name] = i
	}
	return a, nil
}

// Process records the depth, and if enabled the decoded read-bases column, at
// 0-based position pos of contig.  A later call for the same position
// overwrites the earlier one.
//
// The only possible error is a *mpileup.DecodeError for a malformed column,
// in which case nothing is recorded for that position.
func (a *Accumulator) Process(contig string, pos, depth int, column []byte) error {
	i, ok := a.index[contig]
	if !ok {
		return nil
	}
	if pos < 0 || pos >= a.lengths[i] {
		return nil
	}
	var counts mpileup.Counts
	if a.trackBases {
		var err error
		if counts, err = mpileup.Decode(column); err != nil {
			return err
		}
	}
	p := a.profiles[i]
	if p == nil {
		p = newProfile(contig, a.lengths[i], a.trackBases)
		a.profiles[i] = p
		a.nAllocated++
	}
	p.Depth[pos] = uint16(depth)
	if a.trackBases {
		row := p.Counts[pos*pileup.NBaseEnum : (pos+1)*pileup.NBaseEnum]
		for b, n := range counts {
			row[b] = uint16(n)
		}
	}
	return nil
}

// ProcessRecord is a convenience wrapper around Process.
func (a *Accumulator) ProcessRecord(rec mpileup.Record) error {
	return a.Process(rec.Contig, rec.Pos, rec.Depth, rec.Column)
}

// Profile returns the profile of the named contig.  ok is false if the
// contig is unknown or no record has landed in it yet.
func (a *Accumulator) Profile(name string) (p *Profile, ok bool) {
	i, ok := a.index[name]
	if !ok || a.profiles[i] == nil {
		return nil, false
	}
	return a.profiles[i], true
}

// Profiles returns the allocated profiles, in contig order.
func (a *Accumulator) Profiles() []*Profile {
	profiles := make([]*Profile, 0, a.nAllocated)
	for _, p := range a.profiles {
		if p != nil {
			profiles = append(profiles, p)
		}
	}
	return profiles
}

// Contigs returns the known contig names, in construction order.
func (a *Accumulator) Contigs() []string { return a.names }

// NumContigs returns the number of known contigs.
func (a *Accumulator) NumContigs() int { return len(a.names) }

// NumAllocated returns the number of contigs that have a profile.
func (a *Accumulator) NumAllocated() int { return a.nAllocated }

// TrackBases reports whether nucleotide counts are being recorded.
func (a *Accumulator) TrackBases() bool { return a.trackBases }
