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

package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/carverauto/netinventory/pkg/models"
)

const meterName = "github.com/carverauto/netinventory/pipeline"

// Metrics holds the pipeline instruments.
type Metrics struct {
	serversImported metric.Int64Counter
	devicesFetched  metric.Int64Counter
	rowsAffected    metric.Int64Counter
	probeCycles     metric.Int64Counter
	probeResults    metric.Int64Counter
	probeDuration   metric.Float64Histogram
	reportDevices   metric.Int64Gauge
}

// NewMetrics registers the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)

	var (
		m   Metrics
		err error
	)

	if m.serversImported, err = meter.Int64Counter("netinventory.import.servers",
		metric.WithDescription("Servers imported, by kind and outcome")); err != nil {
		return nil, err
	}

	if m.devicesFetched, err = meter.Int64Counter("netinventory.import.devices",
		metric.WithDescription("Normalized devices fetched from sources")); err != nil {
		return nil, err
	}

	if m.rowsAffected, err = meter.Int64Counter("netinventory.import.rows_affected",
		metric.WithDescription("Inventory rows inserted or changed")); err != nil {
		return nil, err
	}

	if m.probeCycles, err = meter.Int64Counter("netinventory.probe.cycles",
		metric.WithDescription("Probe cycles, by outcome")); err != nil {
		return nil, err
	}

	if m.probeResults, err = meter.Int64Counter("netinventory.probe.results",
		metric.WithDescription("Probe samples, by classification")); err != nil {
		return nil, err
	}

	if m.probeDuration, err = meter.Float64Histogram("netinventory.probe.duration",
		metric.WithDescription("Probe burst duration"), metric.WithUnit("s")); err != nil {
		return nil, err
	}

	if m.reportDevices, err = meter.Int64Gauge("netinventory.report.devices",
		metric.WithDescription("Devices per availability bucket in the last report")); err != nil {
		return nil, err
	}

	return &m, nil
}

// NewNoopMetrics returns instruments that record nothing.
func NewNoopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider())
	return m
}

func outcome(err error) attribute.KeyValue {
	if err != nil {
		return attribute.String("outcome", "failure")
	}

	return attribute.String("outcome", "success")
}

// RecordServerImport counts one server's import.
func (m *Metrics) RecordServerImport(ctx context.Context, kind models.SourceKind, fetched int, affected int64, err error) {
	kindAttr := attribute.String("kind", string(kind))

	m.serversImported.Add(ctx, 1, metric.WithAttributes(kindAttr, outcome(err)))
	m.devicesFetched.Add(ctx, int64(fetched), metric.WithAttributes(kindAttr))
	m.rowsAffected.Add(ctx, affected, metric.WithAttributes(kindAttr))
}

// RecordProbeCycle counts one probe cycle and its classified samples.
func (m *Metrics) RecordProbeCycle(ctx context.Context, up, down, rejected int, elapsed time.Duration, err error) {
	m.probeCycles.Add(ctx, 1, metric.WithAttributes(outcome(err)))

	if err != nil {
		return
	}

	m.probeResults.Add(ctx, int64(up), metric.WithAttributes(attribute.String("result", "up")))
	m.probeResults.Add(ctx, int64(down), metric.WithAttributes(attribute.String("result", "down")))
	m.probeResults.Add(ctx, int64(rejected), metric.WithAttributes(attribute.String("result", "rejected")))
	m.probeDuration.Record(ctx, elapsed.Seconds())
}

// RecordReport sets the bucket gauges from the last report.
func (m *Metrics) RecordReport(ctx context.Context, counts models.BucketCounts) {
	for bucket, n := range map[models.Bucket]int{
		models.BucketUp:       counts.Up,
		models.BucketLatent:   counts.Latent,
		models.BucketDropping: counts.Dropping,
		models.BucketDown:     counts.Down,
	} {
		m.reportDevices.Record(ctx, int64(n), metric.WithAttributes(attribute.String("bucket", string(bucket))))
	}
}
