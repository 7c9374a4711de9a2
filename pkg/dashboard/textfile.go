/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package dashboard

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/carverauto/netinventory/pkg/models"
)

const namespace = "netinventory"

type reportCollectors struct {
	registry   *prometheus.Registry
	buckets    *prometheus.GaugeVec
	reachable  *prometheus.GaugeVec
	avgLatency *prometheus.GaugeVec
	downStreak *prometheus.GaugeVec
	generated  prometheus.Gauge
}

func newReportCollectors() *reportCollectors {
	c := &reportCollectors{
		registry: prometheus.NewRegistry(),
		buckets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "availability",
			Name:      "devices",
			Help:      "Number of monitored devices per availability bucket.",
		}, []string{"bucket"}),
		reachable: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "availability",
			Name:      "reachable_percent",
			Help:      "Percentage of probe packets answered in the last burst.",
		}, []string{"address", "hostname"}),
		avgLatency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "availability",
			Name:      "avg_latency_milliseconds",
			Help:      "Average round trip time of the last burst.",
		}, []string{"address", "hostname"}),
		downStreak: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "availability",
			Name:      "down_streak",
			Help:      "Consecutive probe cycles the device has been down.",
		}, []string{"address", "hostname"}),
		generated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "availability",
			Name:      "report_generated_timestamp_seconds",
			Help:      "Unix time the report was generated.",
		}),
	}

	c.registry.MustRegister(c.buckets, c.reachable, c.avgLatency, c.downStreak, c.generated)

	return c
}

func (c *reportCollectors) observe(report *models.AvailabilityReport) {
	c.buckets.WithLabelValues(string(models.BucketUp)).Set(float64(report.Counts.Up))
	c.buckets.WithLabelValues(string(models.BucketLatent)).Set(float64(report.Counts.Latent))
	c.buckets.WithLabelValues(string(models.BucketDropping)).Set(float64(report.Counts.Dropping))
	c.buckets.WithLabelValues(string(models.BucketDown)).Set(float64(report.Counts.Down))

	for i := range report.Devices {
		d := &report.Devices[i]

		c.reachable.WithLabelValues(d.ManagementAddress, d.Hostname).Set(d.ReachablePct)
		c.downStreak.WithLabelValues(d.ManagementAddress, d.Hostname).Set(float64(d.DownStreak))

		if d.AvgLatency != nil {
			c.avgLatency.WithLabelValues(d.ManagementAddress, d.Hostname).Set(*d.AvgLatency)
		}
	}

	c.generated.Set(float64(report.GeneratedAt.Unix()))
}

// WriteTextfile writes report as Prometheus text exposition to path, for the
// node exporter textfile collector.
func WriteTextfile(path string, report *models.AvailabilityReport) error {
	c := newReportCollectors()
	c.observe(report)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write textfile %s: %w", path, err)
	}

	return nil
}
