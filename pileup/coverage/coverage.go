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
	"context"
	"fmt"
	"io"
	"os"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/pileupcov/pileup/contig"
	"github.com/grailbio/pileupcov/pileup/mpileup"
)

// Opts configures Run.
type Opts struct {
	// BamPath is piled up with samtools unless PileupPath is set.  Its header
	// also supplies the contigs when ContigsPath is empty.
	BamPath string
	// PileupPath is precomputed "samtools mpileup" output, possibly
	// compressed.  "-" reads stdin.
	PileupPath string
	// ContigsPath is a .fai, FASTA, BAM or name<TAB>length table listing the
	// contigs to profile; see contig.Load.
	ContigsPath string
	// SkipBaseProfiling disables the per-position A/T/G/C/N counts.
	SkipBaseProfiling bool
	// Formats is a comma-separated list of output formats; see ParseFormats.
	Formats     string
	Parallelism int
	// Strict makes malformed pileup lines and read-bases columns fatal.  By
	// default they are counted, logged and skipped.
	Strict   bool
	Samtools mpileup.SamtoolsOpts
}

// DefaultOpts is the default configuration of bio-coverage.
var DefaultOpts = Opts{
	Formats:     FormatTSV + "," + FormatStats,
	Parallelism: 0,
	Strict:      false,
	Samtools:    mpileup.DefaultSamtoolsOpts,
}

// ConsumeStats counts what Consume saw.
type ConsumeStats struct {
	// NumRecords is the number of well-formed pileup lines.
	NumRecords int
	// NumMalformed is the number of skipped lines (unparseable, or with an
	// undecodable read-bases column).
	NumMalformed int
}

// Consume feeds every record of s into acc.  Unless strict is set, records
// with an undecodable read-bases column are logged and skipped.  Lines that
// are not pileup records at all are handled by s itself (see
// mpileup.ScannerOpts).
func Consume(acc *Accumulator, s *mpileup.Scanner, strict bool) (stats ConsumeStats, err error) {
	nDecodeErr := 0
	for s.Scan() {
		stats.NumRecords++
		nAllocated := acc.NumAllocated()
		if e := acc.ProcessRecord(s.Record()); e != nil {
			if strict {
				err = errors.E(e, fmt.Sprintf("line %d", s.LineNum()))
				return
			}
			if nDecodeErr == 0 {
				log.Printf("coverage: skipping line %d: %v", s.LineNum(), e)
			} else {
				log.Debug.Printf("coverage: skipping line %d: %v", s.LineNum(), e)
			}
			nDecodeErr++
			continue
		}
		if acc.NumAllocated() != nAllocated {
			log.Printf("coverage: received %d of %d contigs", acc.NumAllocated(), acc.NumContigs())
		}
	}
	stats.NumMalformed = s.NumMalformed() + nDecodeErr
	stats.NumRecords -= nDecodeErr
	err = s.Err()
	return
}

// loadContigs resolves the contig set named by opts.
func loadContigs(ctx context.Context, opts *Opts) ([]contig.Contig, error) {
	switch {
	case opts.ContigsPath != "":
		return contig.Load(ctx, opts.ContigsPath)
	case opts.BamPath != "":
		return contig.FromBAM(ctx, opts.BamPath)
	}
	return nil, errors.E(errors.Invalid, "coverage.Run: need a contigs file or a BAM to read contigs from")
}

// openPileup opens opts.PileupPath, decompressing it if its name says so.
func openPileup(ctx context.Context, path string) (r io.Reader, closer func() error, err error) {
	if path == "-" {
		return os.Stdin, func() error { return nil }, nil
	}
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return
	}
	r = in.Reader(ctx)
	u := compress.NewReaderPath(r, path)
	if u != nil {
		r = u
	}
	closer = func() error {
		var err error
		if u != nil {
			err = u.Close()
		}
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
		return err
	}
	return
}

// Run builds coverage profiles as configured by opts and, if outPrefix is
// nonempty, writes them in the requested formats.  The returned Accumulator
// holds the profiles in memory.
func Run(ctx context.Context, opts *Opts, outPrefix string) (acc *Accumulator, err error) {
	formats, err := ParseFormats(opts.Formats)
	if err != nil {
		return
	}
	if opts.PileupPath == "" && opts.BamPath == "" {
		return nil, errors.E(errors.Invalid, "coverage.Run: either a BAM or a pileup path is required")
	}
	contigs, err := loadContigs(ctx, opts)
	if err != nil {
		return
	}
	names, lengths := contig.Split(contigs)
	if acc, err = NewAccumulator(names, lengths, !opts.SkipBaseProfiling); err != nil {
		return
	}

	var (
		r         io.Reader
		closeFunc func() error
		proc      *mpileup.MpileupProcess
	)
	procCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if opts.PileupPath != "" {
		if r, closeFunc, err = openPileup(ctx, opts.PileupPath); err != nil {
			return
		}
		log.Printf("coverage: reading pileup from %s", opts.PileupPath)
	} else {
		if proc, err = mpileup.StartMpileup(procCtx, opts.BamPath, opts.Samtools); err != nil {
			return
		}
		r = proc.Reader()
		log.Printf("coverage: reading coverage information from samtools on %s", opts.BamPath)
	}

	scanner := mpileup.NewScanner(r, mpileup.ScannerOpts{SkipMalformed: !opts.Strict})
	stats, err := Consume(acc, scanner, opts.Strict)
	if closeFunc != nil {
		if e := closeFunc(); e != nil && err == nil {
			err = e
		}
	}
	if proc != nil {
		if err != nil {
			// Stop samtools; its exit status no longer matters.
			cancel()
			_ = proc.Wait()
		} else {
			err = proc.Wait()
		}
	}
	if err != nil {
		return nil, err
	}
	log.Printf("coverage: %d pileup records, %d malformed; %d of %d contigs covered",
		stats.NumRecords, stats.NumMalformed, acc.NumAllocated(), acc.NumContigs())

	if outPrefix != "" {
		if err = WriteOutputs(ctx, acc, outPrefix, formats, opts.Parallelism); err != nil {
			return nil, err
		}
	}
	return acc, nil
}
