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

/*
bio-coverage builds per-position coverage profiles from samtools mpileup
output: the read depth at every position of every contig and, unless
-skip-base-profiling is given, the number of A, T, G, C and N bases observed
there.

The pileup is either produced by running "samtools mpileup" on a BAM, or read
from a file written earlier.  Contig names and lengths come from the BAM
header or from -contigs.  Records for unknown contigs or positions beyond the
contig end are ignored, and contigs that never appear in the pileup are left
out of the output.

Sample usage:
bio-coverage \
    -bam my.bam \
    -format tsv-bgz,npy,stats \
    output-prefix

bio-coverage \
    -pileup my.mpileup.gz \
    -contigs ref.fa.fai \
    output-prefix
*/
package main
