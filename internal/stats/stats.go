// Package stats accumulates per-directory and per-loop latency
// observations into HDR histograms and summarizes them into the compact
// shape the Poll Loop emits as a periodic CollectStats log record.
package stats

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// maxLatencyMillis bounds the histogram's value range: five minutes is
// far beyond any plausible single-repository operation, chosen purely as
// a safety ceiling on the histogram's memory footprint.
const maxLatencyMillis = 5 * 60 * 1000

// significantFigures is the precision HdrHistogram preserves across its
// full value range.
const significantFigures = 3

// Percentile is one point of a summarized latency distribution.
type Percentile struct {
	Pct float64 `json:"pct"`
	Val float64 `json:"val"`
}

// Histo is the JSON shape a histogram is reported as in a CollectStats
// record.
type Histo struct {
	Mean        float64      `json:"mean"`
	Count       int64        `json:"count"`
	Min         float64      `json:"min"`
	Max         float64      `json:"max"`
	Percentiles []Percentile `json:"percentiles"`
}

// reportedPercentiles are the quantile points included in every summary.
var reportedPercentiles = []float64{50, 90, 99, 99.9}

// Collector owns the pair of histograms the Poll Loop feeds every tick:
// one recording each directory's per-repository latency, the other
// recording the whole tick's wall-clock time.
type Collector struct {
	start    time.Time
	perDir   *hdrhistogram.Histogram
	loop     *hdrhistogram.Histogram
	interval time.Duration
}

// NewCollector starts a collector whose publish interval (the cadence at
// which Due reports true) is publishInterval, 600 seconds by default per
// spec §4.5 step 5.
func NewCollector(publishInterval time.Duration) *Collector {
	return &Collector{
		start:    time.Now(),
		perDir:   hdrhistogram.New(1, maxLatencyMillis, significantFigures),
		loop:     hdrhistogram.New(1, maxLatencyMillis, significantFigures),
		interval: publishInterval,
	}
}

// RecordDir records one repository's observed latency.
func (c *Collector) RecordDir(d time.Duration) {
	_ = c.perDir.RecordValue(d.Milliseconds())
}

// RecordLoop records one full tick's wall-clock latency.
func (c *Collector) RecordLoop(d time.Duration) {
	_ = c.loop.RecordValue(d.Milliseconds())
}

// Due reports whether at least the publish interval has elapsed since the
// collector was created or last Reset.
func (c *Collector) Due() bool {
	return time.Since(c.start) >= c.interval
}

// Snapshot summarizes both histograms without resetting them.
func (c *Collector) Snapshot() (perDir, loop Histo) {
	return summarize(c.perDir), summarize(c.loop)
}

// Reset clears both histograms and restarts the publish-interval clock,
// called immediately after a CollectStats record is emitted.
func (c *Collector) Reset() {
	c.perDir.Reset()
	c.loop.Reset()
	c.start = time.Now()
}

func summarize(h *hdrhistogram.Histogram) Histo {
	out := Histo{
		Mean:  h.Mean(),
		Count: h.TotalCount(),
		Min:   float64(h.Min()),
		Max:   float64(h.Max()),
	}
	for _, p := range reportedPercentiles {
		out.Percentiles = append(out.Percentiles, Percentile{Pct: p, Val: float64(h.ValueAtPercentile(p))})
	}
	return out
}
