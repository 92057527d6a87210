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
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/pileupcov/pileup/coverage"
)

var (
	bamPath           = flag.String("bam", coverage.DefaultOpts.BamPath, "Input BAM path; piled up with samtools mpileup unless -pileup is set")
	pileupPath        = flag.String("pileup", coverage.DefaultOpts.PileupPath, "Precomputed samtools mpileup output, optionally compressed; '-' reads stdin")
	contigsPath       = flag.String("contigs", coverage.DefaultOpts.ContigsPath, "Contig list: .fai, FASTA, BAM, or name<TAB>length table. Defaults to the -bam header")
	skipBaseProfiling = flag.Bool("skip-base-profiling", coverage.DefaultOpts.SkipBaseProfiling, "Only record depth; don't count A/T/G/C/N per position")
	formats           = flag.String("format", coverage.DefaultOpts.Formats, "Comma-separated output formats; 'tsv', 'tsv-bgz', 'npy', 'rio', and 'stats' supported")
	parallelism       = flag.Int("parallelism", coverage.DefaultOpts.Parallelism, "Maximum number of contigs written simultaneously; 0 = runtime.NumCPU()")
	strict            = flag.Bool("strict", coverage.DefaultOpts.Strict, "Fail on malformed pileup lines instead of skipping them")
	samtoolsPath      = flag.String("samtools", coverage.DefaultOpts.Samtools.Path, "samtools executable")
	minBaseQual       = flag.Int("min-base-qual", coverage.DefaultOpts.Samtools.MinBaseQual, "Passed to samtools mpileup -Q")
	mpileupArgs       = flag.String("mpileup-args", "", "Extra space-separated arguments for samtools mpileup")
)

func bioCoverageUsage() {
	fmt.Printf("Usage: %s [OPTIONS] outprefix\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = bioCoverageUsage
	shutdown := grail.Init()
	defer shutdown()

	positionalArgs := flag.Args()
	if len(positionalArgs) != 1 {
		log.Fatalf("Expected exactly one positional argument (outprefix); please check flag syntax: '%s'", strings.Join(positionalArgs, " "))
	}
	if *bamPath == "" && *pileupPath == "" {
		log.Fatalf("One of -bam or -pileup is required")
	}
	ctx := vcontext.Background()
	opts := coverage.Opts{
		BamPath:           *bamPath,
		PileupPath:        *pileupPath,
		ContigsPath:       *contigsPath,
		SkipBaseProfiling: *skipBaseProfiling,
		Formats:           *formats,
		Parallelism:       *parallelism,
		Strict:            *strict,
		Samtools:          coverage.DefaultOpts.Samtools,
	}
	opts.Samtools.Path = *samtoolsPath
	opts.Samtools.MinBaseQual = *minBaseQual
	opts.Samtools.ExtraArgs = strings.Fields(*mpileupArgs)
	if _, err := coverage.Run(ctx, &opts, positionalArgs[0]); err != nil {
		log.Panicf("%v", err)
	}
	log.Debug.Printf("exiting")
}
