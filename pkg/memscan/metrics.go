// Copyright 2026 The memscan Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package memscan

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metric descriptor indices. The first five mirror shared buffer
// fields; the result counts come from the result store and the log counts
// from the logger.
const (
	scanStatusDesc = iota
	scanProgressDesc
	regionsDoneDesc
	foundCountDesc
	heartbeatDesc
	totalCountDesc
	ramCountDesc
	diskCountDesc
	logWarnDesc
	logErrorDesc
)

var metricDescriptors = map[int]*prometheus.Desc{
	scanStatusDesc: prometheus.NewDesc(
		"memscan_scan_status",
		"Current ScanStatus of the in-flight search or refine, if any.",
		nil, nil,
	),
	scanProgressDesc: prometheus.NewDesc(
		"memscan_scan_progress_permille",
		"Progress of the in-flight operation, in parts per thousand.",
		nil, nil,
	),
	regionsDoneDesc: prometheus.NewDesc(
		"memscan_regions_done",
		"Number of memory regions the in-flight operation has finished scanning.",
		nil, nil,
	),
	foundCountDesc: prometheus.NewDesc(
		"memscan_found_count",
		"Number of matches the in-flight operation has found so far.",
		nil, nil,
	),
	heartbeatDesc: prometheus.NewDesc(
		"memscan_heartbeat_total",
		"Monotonically increasing liveness counter bumped by the active scan loop.",
		nil, nil,
	),
	totalCountDesc: prometheus.NewDesc(
		"memscan_result_total",
		"Total number of results currently held by the result store.",
		nil, nil,
	),
	ramCountDesc: prometheus.NewDesc(
		"memscan_result_ram_total",
		"Number of results currently held in the RAM tier of the result store.",
		nil, nil,
	),
	diskCountDesc: prometheus.NewDesc(
		"memscan_result_disk_total",
		"Number of results currently spilled to the disk tier of the result store.",
		nil, nil,
	),
	logWarnDesc: prometheus.NewDesc(
		"memscan_log_warn_total",
		"Number of warnings logged by this process, e.g. skipped per-region reader failures.",
		nil, nil,
	),
	logErrorDesc: prometheus.NewDesc(
		"memscan_log_error_total",
		"Number of errors logged by this process.",
		nil, nil,
	),
}

// resultCounts is the minimal view of the result store a Collector needs;
// *resultstore.Store satisfies it.
type resultCounts interface {
	TotalCount() int
	RAMCount() int
	DiskCount() int
}

// Collector adapts a running Engine's shared buffer and result store into a
// prometheus.Collector, in the same descriptor-table shape pkg/avx uses for
// its own gauges.
type Collector struct {
	buf     *SharedBuffer
	results resultCounts
}

// NewCollector returns a Collector that reads buf and results on every
// scrape. Either may be nil; nil inputs simply contribute no samples for
// the metrics they would have fed.
func NewCollector(buf *SharedBuffer, results resultCounts) prometheus.Collector {
	return &Collector{buf: buf, results: results}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range metricDescriptors {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.buf != nil {
		ch <- prometheus.MustNewConstMetric(metricDescriptors[scanStatusDesc], prometheus.GaugeValue, float64(c.buf.Status()))
		ch <- prometheus.MustNewConstMetric(metricDescriptors[scanProgressDesc], prometheus.GaugeValue, float64(c.buf.Progress()))
		ch <- prometheus.MustNewConstMetric(metricDescriptors[regionsDoneDesc], prometheus.GaugeValue, float64(c.buf.RegionsDone()))
		ch <- prometheus.MustNewConstMetric(metricDescriptors[foundCountDesc], prometheus.GaugeValue, float64(c.buf.FoundCount()))
		ch <- prometheus.MustNewConstMetric(metricDescriptors[heartbeatDesc], prometheus.CounterValue, float64(c.buf.Heartbeat()))
	}
	if c.results != nil {
		ch <- prometheus.MustNewConstMetric(metricDescriptors[totalCountDesc], prometheus.GaugeValue, float64(c.results.TotalCount()))
		ch <- prometheus.MustNewConstMetric(metricDescriptors[ramCountDesc], prometheus.GaugeValue, float64(c.results.RAMCount()))
		ch <- prometheus.MustNewConstMetric(metricDescriptors[diskCountDesc], prometheus.GaugeValue, float64(c.results.DiskCount()))
	}
	warn, errs := LogCounts()
	ch <- prometheus.MustNewConstMetric(metricDescriptors[logWarnDesc], prometheus.CounterValue, float64(warn))
	ch <- prometheus.MustNewConstMetric(metricDescriptors[logErrorDesc], prometheus.CounterValue, float64(errs))
}
