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

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/netinventory/pkg/events"
	"github.com/carverauto/netinventory/pkg/logger"
	"github.com/carverauto/netinventory/pkg/models"
	"github.com/carverauto/netinventory/pkg/probe"
	"github.com/carverauto/netinventory/pkg/store"
	"github.com/carverauto/netinventory/pkg/telemetry"
)

// CycleResult describes one probe cycle.
type CycleResult struct {
	RunID     string
	At        time.Time
	Probed    int
	Missing   []string
	Reduction probe.Reduction
	WentDown  []string
}

// Monitor probes every monitored device and merges the burst into the store.
type Monitor struct {
	store   store.Store
	prober  probe.Prober
	metrics *telemetry.Metrics
	events  events.Publisher
	logger  logger.Logger
	now     func() time.Time
}

// MonitorOption customizes a Monitor.
type MonitorOption func(*Monitor)

// WithProbeMetrics records cycle outcomes on m.
func WithProbeMetrics(m *telemetry.Metrics) MonitorOption {
	return func(mon *Monitor) { mon.metrics = m }
}

// WithProbeEvents publishes a summary event after each cycle.
func WithProbeEvents(p events.Publisher) MonitorOption {
	return func(mon *Monitor) { mon.events = p }
}

// NewMonitor returns a monitor probing with prober.
func NewMonitor(s store.Store, prober probe.Prober, log logger.Logger, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		store:   s,
		prober:  prober,
		metrics: telemetry.NewNoopMetrics(),
		events:  events.NoopPublisher{},
		logger:  log,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// RunCycle runs one burst. A prober failure leaves the stored state
// untouched. Rejected samples are logged and counted but never merged.
func (m *Monitor) RunCycle(ctx context.Context) (*CycleResult, error) {
	started := m.now()

	addrs, err := m.store.MonitoredAddresses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list monitored addresses: %w", err)
	}

	if len(addrs) == 0 {
		return nil, probe.ErrEmptyMonitorList
	}

	samples, err := m.prober.Probe(ctx, addrs)
	if err != nil {
		m.metrics.RecordProbeCycle(ctx, 0, 0, 0, m.now().Sub(started), err)

		return nil, err
	}

	res := &CycleResult{
		RunID:  uuid.NewString(),
		At:     m.now(),
		Probed: len(addrs),
	}

	samples, res.Missing = m.restrict(addrs, samples)
	res.Reduction = probe.Reduce(samples, res.At)

	for _, rej := range res.Reduction.Rejected {
		m.logger.Warn().
			Str("address", rej.Sample.Address).
			Str("reason", rej.Reason).
			Msg("Rejected probe sample")
	}

	if len(res.Reduction.Down) > 0 {
		res.WentDown, err = m.wentDown(ctx, res.Reduction.Down)
		if err != nil {
			return nil, err
		}
	}

	if err := m.store.ApplyProbeResults(ctx, res.Reduction.Down, res.Reduction.Up); err != nil {
		m.metrics.RecordProbeCycle(ctx, 0, 0, 0, m.now().Sub(started), err)

		return nil, fmt.Errorf("apply probe results: %w", err)
	}

	elapsed := m.now().Sub(started)
	m.metrics.RecordProbeCycle(ctx, len(res.Reduction.Up), len(res.Reduction.Down), len(res.Reduction.Rejected), elapsed, nil)

	m.publish(ctx, res)

	m.logger.Info().
		Str("run_id", res.RunID).
		Int("probed", res.Probed).
		Int("up", len(res.Reduction.Up)).
		Int("down", len(res.Reduction.Down)).
		Int("rejected", len(res.Reduction.Rejected)).
		Int("missing", len(res.Missing)).
		Int("went_down", len(res.WentDown)).
		Dur("elapsed", elapsed).
		Msg("Probe cycle finished")

	return res, nil
}

// restrict drops samples for addresses that were not asked for and lists the
// requested addresses the prober did not report on.
func (m *Monitor) restrict(addrs []string, samples map[string]models.ProbeSample) (map[string]models.ProbeSample, []string) {
	out := make(map[string]models.ProbeSample, len(addrs))

	var missing []string

	for _, addr := range addrs {
		s, ok := samples[addr]
		if !ok {
			missing = append(missing, addr)
			continue
		}

		out[addr] = s
	}

	if extra := len(samples) - len(out); extra > 0 {
		m.logger.Warn().Int("samples", extra).Msg("Ignoring probe samples for unrequested addresses")
	}

	if len(missing) > 0 {
		m.logger.Warn().Strs("addresses", missing).Msg("Prober returned no sample")
	}

	return out, missing
}

// wentDown lists the down addresses that were not already down before this burst.
func (m *Monitor) wentDown(ctx context.Context, down []models.DownResult) ([]string, error) {
	rows, err := m.store.AvailabilityRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read availability state: %w", err)
	}

	streaks := make(map[string]int, len(rows))
	for i := range rows {
		streaks[rows[i].ManagementAddress] = rows[i].DownStreak
	}

	var out []string

	for _, d := range down {
		if streaks[d.Address] == 0 {
			out = append(out, d.Address)
		}
	}

	return out, nil
}

func (m *Monitor) publish(ctx context.Context, res *CycleResult) {
	ev := &events.ProbeEvent{
		RunID:    res.RunID,
		At:       res.At,
		Probed:   res.Probed,
		Up:       len(res.Reduction.Up),
		Down:     len(res.Reduction.Down),
		Rejected: len(res.Reduction.Rejected),
		WentDown: res.WentDown,
	}

	if err := m.events.PublishProbe(context.WithoutCancel(ctx), ev); err != nil {
		m.logger.Warn().Err(err).Str("run_id", res.RunID).Msg("Failed to publish probe event")
	}
}
