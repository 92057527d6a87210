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
package mpileup

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"v.io/x/lib/envvar"
	"v.io/x/lib/lookpath"
)

// SamtoolsOpts configures the samtools mpileup subprocess.
type SamtoolsOpts struct {
	// Path is the samtools executable; a bare name is looked up in $PATH.
	Path string
	// MinBaseQual is passed as "mpileup -Q".
	MinBaseQual int
	// ExtraArgs are appended to the mpileup arguments, before the BAM path.
	ExtraArgs []string
}

// DefaultSamtoolsOpts matches a plain "samtools mpileup -Q 0" invocation.
var DefaultSamtoolsOpts = SamtoolsOpts{
	Path:        "samtools",
	MinBaseQual: 0,
}

// LookSamtools returns the absolute path of the samtools executable, or a
// NotExist error if it isn't installed.
func LookSamtools(path string) (string, error) {
	if path == "" {
		path = DefaultSamtoolsOpts.Path
	}
	abs, err := lookpath.Look(envvar.SliceToMap(os.Environ()), path)
	if err != nil {
		return "", errors.E(errors.NotExist, err, "samtools executable not found:", path)
	}
	return abs, nil
}

// MpileupArgs returns the samtools arguments used to pile up bamPath.
func MpileupArgs(bamPath string, opts SamtoolsOpts) []string {
	args := []string{"mpileup", "-Q", strconv.Itoa(opts.MinBaseQual)}
	args = append(args, opts.ExtraArgs...)
	return append(args, bamPath)
}

// MpileupProcess is a running "samtools mpileup" subprocess.
type MpileupProcess struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
}

// StartMpileup launches "samtools mpileup" on bamPath.  The caller must drain
// Reader() and then call Wait.  stderr is discarded.
func StartMpileup(ctx context.Context, bamPath string, opts SamtoolsOpts) (*MpileupProcess, error) {
	path, err := LookSamtools(opts.Path)
	if err != nil {
		return nil, err
	}
	args := MpileupArgs(bamPath, opts)
	cmd := exec.CommandContext(ctx, path, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.E(err, "samtools mpileup: stdout pipe")
	}
	if err = cmd.Start(); err != nil {
		return nil, errors.E(err, "samtools mpileup: start", path)
	}
	log.Debug.Printf("mpileup: started %s %v (pid %d)", path, args, cmd.Process.Pid)
	return &MpileupProcess{cmd: cmd, stdout: stdout}, nil
}

// Reader returns the subprocess's stdout.
func (p *MpileupProcess) Reader() io.Reader { return p.stdout }

// Wait waits for the subprocess to exit.  It returns an error if samtools
// exited with a nonzero status or was killed by context cancelation.
func (p *MpileupProcess) Wait() error {
	if err := p.cmd.Wait(); err != nil {
		return errors.E(err, "samtools mpileup")
	}
	return nil
}
