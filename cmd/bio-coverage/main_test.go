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
	"bytes"
	"io/ioutil"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func run(t *testing.T, bin string, args ...string) {
	cmd := exec.Command(bin, args...)
	stderr := bytes.NewBuffer(nil)
	cmd.Stderr = stderr
	assert.NoError(t, cmd.Run(), "Command '%s %s' failed: %s", bin, args, stderr.String())
}

func TestBioCoverage(t *testing.T) {
	executable := testutil.GoExecutable(t, "//go/src/github.com/grailbio/pileupcov/cmd/bio-coverage/bio-coverage")

	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)

	faiPath := filepath.Join(tmpdir, "ref.fa.fai")
	assert.NoError(t, ioutil.WriteFile(faiPath, []byte("chr1\t4\t6\t60\t61\nchr2\t2\t17\t60\t61\n"), 0644))
	pileupPath := filepath.Join(tmpdir, "in.mpileup")
	assert.NoError(t, ioutil.WriteFile(pileupPath, []byte(
		"chr1\t2\tA\t3\t.,^]G\tIII\n"+
			"chr1\t4\tC\t2\tC-1Ac\tII\n"), 0644))

	outPrefix := filepath.Join(tmpdir, "out")
	run(t, executable, "-pileup", pileupPath, "-contigs", faiPath, "-format=tsv,stats", outPrefix)
	got, err := ioutil.ReadFile(outPrefix + ".coverage.tsv")
	assert.NoError(t, err)
	expect.EQ(t, string(got), "#CONTIG\tPOS\tDEPTH\tA\tT\tG\tC\tN\n"+
		"chr1\t1\t0\t0\t0\t0\t0\t0\n"+
		"chr1\t2\t3\t0\t0\t1\t0\t0\n"+
		"chr1\t3\t0\t0\t0\t0\t0\t0\n"+
		"chr1\t4\t2\t0\t0\t0\t2\t0\n")

	outPrefix = filepath.Join(tmpdir, "depth")
	run(t, executable, "-pileup", pileupPath, "-contigs", faiPath, "-skip-base-profiling", "-format=tsv", outPrefix)
	got, err = ioutil.ReadFile(outPrefix + ".coverage.tsv")
	assert.NoError(t, err)
	expect.EQ(t, string(got), "#CONTIG\tPOS\tDEPTH\n"+
		"chr1\t1\t0\n"+
		"chr1\t2\t3\n"+
		"chr1\t3\t0\n"+
		"chr1\t4\t2\n")
}
