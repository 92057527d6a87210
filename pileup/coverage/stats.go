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
	"sort"
	"strconv"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/base/tsv"
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes the depth profile of one contig.
type Stats struct {
	Contig string
	Len    int
	// MeanDepth and StdDevDepth are taken over every position, covered or not.
	MeanDepth   float64
	StdDevDepth float64
	// MeanDepthQ2Q3 is the mean depth of the positions between the first and
	// third quartile of the sorted depths.
	MeanDepthQ2Q3 float64
	MedianDepth   float64
	MaxDepth      int
	// CoveredBases is the number of positions with nonzero depth.
	CoveredBases int
}

// CoveredFraction returns CoveredBases / Len.
func (s *Stats) CoveredFraction() float64 {
	if s.Len == 0 {
		return 0
	}
	return float64(s.CoveredBases) / float64(s.Len)
}

// ComputeStats summarizes p.
func ComputeStats(p *Profile) Stats {
	n := p.Len()
	s := Stats{Contig: p.Name, Len: n}
	if n == 0 {
		return s
	}
	depths := make([]float64, n)
	for i, d := range p.Depth {
		depths[i] = float64(d)
		if d != 0 {
			s.CoveredBases++
		}
		if int(d) > s.MaxDepth {
			s.MaxDepth = int(d)
		}
	}
	s.MeanDepth, s.StdDevDepth = stat.MeanStdDev(depths, nil)
	if n == 1 {
		// The sample standard deviation of a single value is NaN.
		s.StdDevDepth = 0
	}
	sort.Float64s(depths)
	s.MedianDepth = stat.Quantile(0.5, stat.Empirical, depths, nil)
	s.MeanDepthQ2Q3 = stat.Mean(depths[n/4:n-n/4], nil)
	return s
}

// ComputeAllStats summarizes every profile, using up to parallelism
// goroutines.  Results are in the same order as profiles.
func ComputeAllStats(profiles []*Profile, parallelism int) ([]Stats, error) {
	stats := make([]Stats, len(profiles))
	nJob := clampParallelism(parallelism, len(profiles))
	err := traverse.Each(nJob, func(jobIdx int) error {
		startIdx := (jobIdx * len(profiles)) / nJob
		endIdx := ((jobIdx + 1) * len(profiles)) / nJob
		for i := startIdx; i < endIdx; i++ {
			stats[i] = ComputeStats(profiles[i])
		}
		return nil
	})
	return stats, err
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

// WriteStatsTSV writes one summary line per contig to w.
func WriteStatsTSV(w *tsv.Writer, stats []Stats) error {
	w.WriteString("#CONTIG\tLENGTH\tMEAN_DEPTH\tSTDDEV_DEPTH\tMEAN_DEPTH_Q2Q3\tMEDIAN_DEPTH\tMAX_DEPTH\tCOVERED_BASES\tCOVERED_FRACTION")
	if err := w.EndLine(); err != nil {
		return err
	}
	for i := range stats {
		s := &stats[i]
		w.WriteString(s.Contig)
		w.WriteInt64(int64(s.Len))
		w.WriteString(formatFloat(s.MeanDepth))
		w.WriteString(formatFloat(s.StdDevDepth))
		w.WriteString(formatFloat(s.MeanDepthQ2Q3))
		w.WriteString(formatFloat(s.MedianDepth))
		w.WriteInt64(int64(s.MaxDepth))
		w.WriteInt64(int64(s.CoveredBases))
		w.WriteString(formatFloat(s.CoveredFraction()))
		if err := w.EndLine(); err != nil {
			return err
		}
	}
	return w.Flush()
}

func writeStats(ctx context.Context, path string, profiles []*Profile, parallelism int) (err error) {
	stats, err := ComputeAllStats(profiles, parallelism)
	if err != nil {
		return
	}
	var dst file.File
	if dst, err = file.Create(ctx, path); err != nil {
		return
	}
	defer file.CloseAndReport(ctx, dst, &err)
	if err = WriteStatsTSV(tsv.NewWriter(dst.Writer(ctx)), stats); err != nil {
		return
	}
	log.Printf("coverage: wrote stats for %d contigs to %s", len(stats), path)
	return
}
