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
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/pileupcov/pileup"
	"github.com/grailbio/pileupcov/pileup/mpileup"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
	"v.io/x/lib/gosh"
	"v.io/x/lib/lookpath"
)

func hasSamtools(t *testing.T, sh *gosh.Shell) bool {
	if _, err := lookpath.Look(sh.Vars, "samtools"); err != nil {
		t.Skipf("samtools not found on the machine. Skipping the test")
		return false
	}
	return true
}

func TestMpileupArgs(t *testing.T) {
	opts := mpileup.DefaultSamtoolsOpts
	expect.EQ(t, mpileup.MpileupArgs("x.bam", opts), []string{"mpileup", "-Q", "0", "x.bam"})
	opts.MinBaseQual = 13
	opts.ExtraArgs = []string{"-A", "-B"}
	expect.EQ(t, mpileup.MpileupArgs("y.bam", opts), []string{"mpileup", "-Q", "13", "-A", "-B", "y.bam"})
}

func TestLookSamtoolsMissing(t *testing.T) {
	_, err := mpileup.LookSamtools("samtools-does-not-exist-on-this-machine")
	require.Error(t, err)
	expect.True(t, errors.Is(errors.NotExist, err), "%v", err)
}

func TestStartMpileup(t *testing.T) {
	sh := gosh.NewShell(t)
	defer sh.Cleanup()
	if !hasSamtools(t, sh) {
		return
	}
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)

	// samtools mpileup reads SAM as well as BAM.
	samPath := filepath.Join(tmpdir, "tiny.sam")
	const sam = "@SQ\tSN:chrA\tLN:10\n" +
		"r1\t0\tchrA\t1\t60\t5M\t*\t0\t0\tACGTA\tIIIII\n" +
		"r2\t0\tchrA\t3\t60\t4M\t*\t0\t0\tGTAC\tIIII\n"
	assert.NoError(t, ioutil.WriteFile(samPath, []byte(sam), 0644))

	proc, err := mpileup.StartMpileup(context.Background(), samPath, mpileup.DefaultSamtoolsOpts)
	assert.NoError(t, err)
	s := mpileup.NewScanner(proc.Reader(), mpileup.ScannerOpts{})
	depth := make([]int, 10)
	var gCounts mpileup.Counts
	for s.Scan() {
		rec := s.Record()
		expect.EQ(t, rec.Contig, "chrA")
		depth[rec.Pos] = rec.Depth
		if rec.Pos == 2 {
			gCounts, err = mpileup.Decode(rec.Column)
			assert.NoError(t, err)
		}
	}
	assert.NoError(t, s.Err())
	assert.NoError(t, proc.Wait())
	expect.EQ(t, depth, []int{1, 1, 2, 2, 2, 1, 0, 0, 0, 0})
	expect.EQ(t, gCounts[pileup.BaseG], uint32(2))
}
