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
	"bufio"
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hts/bgzf"
	"github.com/grailbio/pileupcov/pileup"
	"github.com/kshedden/gonpy"
)

// Output formats.
const (
	// FormatTSV writes <prefix>.coverage.tsv, one line per position.
	FormatTSV = "tsv"
	// FormatTSVBgz is FormatTSV, bgzipped to <prefix>.coverage.tsv.gz.
	FormatTSVBgz = "tsv-bgz"
	// FormatNpy writes <prefix>.<contig>.depth.npy and, when nucleotides are
	// tracked, <prefix>.<contig>.counts.npy.
	FormatNpy = "npy"
	// FormatRio writes <prefix>.coverage.rio, one record per contig.
	FormatRio = "rio"
	// FormatStats writes <prefix>.stats.tsv, one summary line per contig.
	FormatStats = "stats"
)

var knownFormats = []string{FormatTSV, FormatTSVBgz, FormatNpy, FormatRio, FormatStats}

// ParseFormats parses a comma-separated list of output formats.  Duplicates
// are dropped.
func ParseFormats(formatsParam string) (formats []string, err error) {
	seen := make(map[string]bool)
	for _, part := range strings.Split(formatsParam, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		known := false
		for _, f := range knownFormats {
			if part == f {
				known = true
				break
			}
		}
		if !known {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("coverage.ParseFormats: unknown format %q; supported formats are %s", part, strings.Join(knownFormats, ", ")))
		}
		if !seen[part] {
			seen[part] = true
			formats = append(formats, part)
		}
	}
	return formats, nil
}

func clampParallelism(parallelism, n int) int {
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	if parallelism > n {
		parallelism = n
	}
	return parallelism
}

// WriteTSV writes every position of every profile to w.  Positions are
// 1-based in the output.  The A/T/G/C/N columns are present iff withCounts
// is set.
func WriteTSV(w *tsv.Writer, profiles []*Profile, withCounts bool) error {
	w.WriteString("#CONTIG\tPOS\tDEPTH")
	if withCounts {
		w.WriteString("A\tT\tG\tC\tN")
	}
	if err := w.EndLine(); err != nil {
		return err
	}
	for _, p := range profiles {
		for pos, depth := range p.Depth {
			w.WriteString(p.Name)
			w.WriteUint32(uint32(pos + 1))
			w.WriteUint32(uint32(depth))
			if withCounts {
				for _, n := range p.BaseCounts(pos) {
					w.WriteUint32(uint32(n))
				}
			}
			if err := w.EndLine(); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

func writeTSVFile(ctx context.Context, path string, profiles []*Profile, withCounts, bgzip bool, parallelism int) (err error) {
	var dst file.File
	if dst, err = file.Create(ctx, path); err != nil {
		return
	}
	defer file.CloseAndReport(ctx, dst, &err)
	if !bgzip {
		err = WriteTSV(tsv.NewWriter(dst.Writer(ctx)), profiles, withCounts)
	} else {
		bgzfWriter := bgzf.NewWriter(dst.Writer(ctx), parallelism)
		err = WriteTSV(tsv.NewWriter(bgzfWriter), profiles, withCounts)
		if e := bgzfWriter.Close(); e != nil && err == nil {
			err = e
		}
	}
	if err == nil {
		log.Printf("coverage: wrote %d contigs to %s", len(profiles), path)
	}
	return
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// WriteNpy writes data to w as a .npy array of the given shape.
func WriteNpy(w io.Writer, data []uint16, shape []int) error {
	bufw := bufio.NewWriter(w)
	npw, err := gonpy.NewWriter(nopCloser{bufw})
	if err != nil {
		return err
	}
	npw.Shape = shape
	if err = npw.WriteUint16(data); err != nil {
		return err
	}
	return bufw.Flush()
}

// NpyFileName returns the path prefix used for the .npy files of a contig.
// Path separators in the contig name are replaced with '_'.
func NpyFileName(prefix, contig string) string {
	return prefix + "." + strings.Replace(contig, "/", "_", -1)
}

func writeNpyFile(ctx context.Context, path string, data []uint16, shape []int) (err error) {
	var dst file.File
	if dst, err = file.Create(ctx, path); err != nil {
		return
	}
	defer file.CloseAndReport(ctx, dst, &err)
	err = WriteNpy(dst.Writer(ctx), data, shape)
	return
}

// writeNpyFiles writes the .npy files of every profile, one contig per
// task.
func writeNpyFiles(ctx context.Context, prefix string, profiles []*Profile, parallelism int) error {
	nJob := clampParallelism(parallelism, len(profiles))
	err := traverse.Each(nJob, func(jobIdx int) error {
		startIdx := (jobIdx * len(profiles)) / nJob
		endIdx := ((jobIdx + 1) * len(profiles)) / nJob
		for _, p := range profiles[startIdx:endIdx] {
			base := NpyFileName(prefix, p.Name)
			if err := writeNpyFile(ctx, base+".depth.npy", p.Depth, []int{p.Len()}); err != nil {
				return err
			}
			if p.HasCounts() {
				if err := writeNpyFile(ctx, base+".counts.npy", p.Counts, []int{p.Len(), pileup.NBaseEnum}); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err == nil {
		log.Printf("coverage: wrote .npy files for %d contigs to %s.*", len(profiles), prefix)
	}
	return err
}

// WriteOutputs writes the profiles of acc in each of the given formats.
func WriteOutputs(ctx context.Context, acc *Accumulator, outPrefix string, formats []string, parallelism int) error {
	profiles := acc.Profiles()
	if len(profiles) == 0 {
		log.Printf("coverage: warning: none of the %d contigs received any pileup records", acc.NumContigs())
	}
	for _, format := range formats {
		var err error
		switch format {
		case FormatTSV:
			err = writeTSVFile(ctx, outPrefix+".coverage.tsv", profiles, acc.TrackBases(), false, parallelism)
		case FormatTSVBgz:
			err = writeTSVFile(ctx, outPrefix+".coverage.tsv.gz", profiles, acc.TrackBases(), true, clampParallelism(parallelism, runtime.NumCPU()))
		case FormatNpy:
			err = writeNpyFiles(ctx, outPrefix, profiles, parallelism)
		case FormatRio:
			err = writeRioFile(ctx, outPrefix+".coverage.rio", profiles, acc.Contigs())
		case FormatStats:
			err = writeStats(ctx, outPrefix+".stats.tsv", profiles, parallelism)
		default:
			err = errors.E(errors.Invalid, "coverage.WriteOutputs: unknown format", format)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
