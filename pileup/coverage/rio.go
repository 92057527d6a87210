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
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/base/recordio/recordiozstd"
	"github.com/grailbio/pileupcov/pileup"
)

const (
	contigNamesHeader = "ContigNames"
	trailerVersion    = 1

	profileFlagCounts = 1
)

func init() {
	recordiozstd.Init()
}

// Serialized profile format (little-endian):
//   [0..4): flags (profileFlagCounts if Counts is present)
//   [4..8): name length k
//   [8..8+k): name
//   next 4 bytes: contig length n
//   next 2n bytes: Depth
//   if profileFlagCounts, next 10n bytes: Counts
func marshalProfile(scratch []byte, v interface{}) ([]byte, error) {
	p := v.(*Profile)
	n := p.Len()
	flags := uint32(0)
	bytesReq := 12 + len(p.Name) + 2*n
	if p.HasCounts() {
		flags |= profileFlagCounts
		bytesReq += 2 * len(p.Counts)
	}
	t := scratch
	if len(t) < bytesReq {
		t = make([]byte, bytesReq)
	}
	t = t[:bytesReq]
	binary.LittleEndian.PutUint32(t[0:4], flags)
	binary.LittleEndian.PutUint32(t[4:8], uint32(len(p.Name)))
	offset := 8 + copy(t[8:], p.Name)
	binary.LittleEndian.PutUint32(t[offset:offset+4], uint32(n))
	offset += 4
	for _, d := range p.Depth {
		binary.LittleEndian.PutUint16(t[offset:offset+2], d)
		offset += 2
	}
	for _, c := range p.Counts {
		binary.LittleEndian.PutUint16(t[offset:offset+2], c)
		offset += 2
	}
	return t, nil
}

func truncatedProfileError(in []byte) error {
	return errors.E(errors.Invalid, fmt.Sprintf("coverage: truncated profile record (%d bytes)", len(in)))
}

func unmarshalProfile(in []byte) (out interface{}, err error) {
	if len(in) < 8 {
		return nil, truncatedProfileError(in)
	}
	flags := binary.LittleEndian.Uint32(in[0:4])
	nameLen := int(binary.LittleEndian.Uint32(in[4:8]))
	if len(in) < 12+nameLen {
		return nil, truncatedProfileError(in)
	}
	p := &Profile{Name: string(in[8 : 8+nameLen])}
	offset := 8 + nameLen
	n := int(binary.LittleEndian.Uint32(in[offset : offset+4]))
	offset += 4
	bytesReq := offset + 2*n
	if flags&profileFlagCounts != 0 {
		bytesReq += 2 * n * pileup.NBaseEnum
	}
	if len(in) != bytesReq {
		return nil, truncatedProfileError(in)
	}
	p.Depth = make([]uint16, n)
	for i := range p.Depth {
		p.Depth[i] = binary.LittleEndian.Uint16(in[offset : offset+2])
		offset += 2
	}
	if flags&profileFlagCounts != 0 {
		p.Counts = make([]uint16, n*pileup.NBaseEnum)
		for i := range p.Counts {
			p.Counts[i] = binary.LittleEndian.Uint16(in[offset : offset+2])
			offset += 2
		}
	}
	return p, nil
}

func profilesRioTrailer(numProfiles int) []byte {
	var buffer bytes.Buffer
	if err := binary.Write(&buffer, binary.LittleEndian, int64(trailerVersion)); err != nil {
		panic("couldn't write trailer version")
	}
	if err := binary.Write(&buffer, binary.LittleEndian, int64(numProfiles)); err != nil {
		panic("couldn't write numProfiles to trailer")
	}
	return buffer.Bytes()
}

func parseProfilesRioTrailer(trailer []byte) (int64, error) {
	r := bytes.NewReader(trailer)
	var version, numProfiles int64
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return 0, err
	}
	if version != trailerVersion {
		return 0, fmt.Errorf("unrecognized trailer version: got %d, want %d", version, trailerVersion)
	}
	if err := binary.Read(r, binary.LittleEndian, &numProfiles); err != nil {
		return 0, err
	}
	return numProfiles, nil
}

// WriteProfilesRio writes profiles to out as a recordio file, one record per
// profile.  contigNames (all known contigs, including those without a
// profile) is stored in the header.
func WriteProfilesRio(out io.Writer, profiles []*Profile, contigNames []string) error {
	recordWriter := recordio.NewWriter(out, recordio.WriterOpts{
		Marshal:      marshalProfile,
		Transformers: []string{recordiozstd.Name},
	})
	recordWriter.AddHeader(contigNamesHeader, strings.Join(contigNames, "\000"))
	recordWriter.AddHeader(recordio.KeyTrailer, true)
	for _, p := range profiles {
		recordWriter.Append(p)
	}
	recordWriter.SetTrailer(profilesRioTrailer(len(profiles)))
	return recordWriter.Finish()
}

// ReadProfilesRio reads a recordio file written by WriteProfilesRio.
func ReadProfilesRio(rs io.ReadSeeker) (profiles []*Profile, contigNames []string, err error) {
	scanner := recordio.NewScanner(rs, recordio.ScannerOpts{
		Unmarshal: unmarshalProfile,
	})
	var numProfiles int64 = -1
	if len(scanner.Trailer()) != 0 {
		if numProfiles, err = parseProfilesRioTrailer(scanner.Trailer()); err != nil {
			return
		}
		profiles = make([]*Profile, 0, numProfiles)
	}
	for _, kv := range scanner.Header() {
		switch kv.Key {
		case contigNamesHeader:
			if packed := kv.Value.(string); packed != "" {
				contigNames = strings.Split(packed, "\000")
			}
			// Cannot return an error on unrecognized key since recordio can write its own.
		}
	}
	for scanner.Scan() {
		profiles = append(profiles, scanner.Get().(*Profile))
	}
	if err = scanner.Err(); err != nil {
		return
	}
	if numProfiles >= 0 && int64(len(profiles)) != numProfiles {
		err = errors.E(errors.Invalid, fmt.Sprintf("coverage.ReadProfilesRio: trailer promises %d profiles, found %d", numProfiles, len(profiles)))
	}
	return
}

func writeRioFile(ctx context.Context, path string, profiles []*Profile, contigNames []string) (err error) {
	var dst file.File
	if dst, err = file.Create(ctx, path); err != nil {
		return
	}
	defer file.CloseAndReport(ctx, dst, &err)
	if err = WriteProfilesRio(dst.Writer(ctx), profiles, contigNames); err != nil {
		return
	}
	log.Printf("coverage: wrote %d contigs to %s", len(profiles), path)
	return
}

// ReadProfilesRioFile is ReadProfilesRio on a path.
func ReadProfilesRioFile(ctx context.Context, path string) (profiles []*Profile, contigNames []string, err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return
	}
	defer file.CloseAndReport(ctx, in, &err)
	return ReadProfilesRio(in.Reader(ctx))
}
