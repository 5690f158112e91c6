package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// JobStats provides the collector access to job registry state.
type JobStats interface {
	Counts() map[string]int
}

// ResultStats reports whether an exportable result exists.
type ResultStats interface {
	HasResult() bool
}

// Collector implements prometheus.Collector to read live gauges at scrape time.
type Collector struct {
	jobs    JobStats
	results ResultStats

	jobsByStatus    *prometheus.Desc
	resultAvailable *prometheus.Desc
}

// NewCollector creates a collector that reads live state at scrape time.
// Either argument may be nil; the matching gauges then report 0.
func NewCollector(jobs JobStats, results ResultStats) *Collector {
	return &Collector{
		jobs:    jobs,
		results: results,
		jobsByStatus: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "jobs"),
			"Jobs currently tracked, by status.",
			[]string{"status"}, nil,
		),
		resultAvailable: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "result_available"),
			"1 if a completed meeting result is available for export.",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.jobsByStatus
	ch <- c.resultAvailable
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.jobs != nil {
		for status, n := range c.jobs.Counts() {
			ch <- prometheus.MustNewConstMetric(c.jobsByStatus, prometheus.GaugeValue, float64(n), status)
		}
	}

	available := 0.0
	if c.results != nil && c.results.HasResult() {
		available = 1
	}
	ch <- prometheus.MustNewConstMetric(c.resultAvailable, prometheus.GaugeValue, available)
}
