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

// Package pipeline drives the inventory import, the probe cycle and the
// availability dashboard over a shared store.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/carverauto/netinventory/pkg/events"
	"github.com/carverauto/netinventory/pkg/logger"
	"github.com/carverauto/netinventory/pkg/probe"
	"github.com/carverauto/netinventory/pkg/sources"
	"github.com/carverauto/netinventory/pkg/sources/apic"
	"github.com/carverauto/netinventory/pkg/sources/dnac"
	"github.com/carverauto/netinventory/pkg/sources/prime"
	"github.com/carverauto/netinventory/pkg/sources/snmp"
	"github.com/carverauto/netinventory/pkg/sources/wlc"
	"github.com/carverauto/netinventory/pkg/store"
	"github.com/carverauto/netinventory/pkg/telemetry"
)

// DefaultSources registers every source kind.
func DefaultSources(cfg *SourcesConfig, log logger.Logger) sources.Registry {
	return sources.NewRegistry(
		dnac.New(log),
		apic.New(log),
		prime.New(log),
		wlc.NewWithDialer(log, wlc.SSHDialer{KnownHostsFile: cfg.KnownHostsFile}),
		snmp.New(log),
	)
}

// Pipeline owns the store and exporters shared by its three stages.
type Pipeline struct {
	Importer *Importer
	Monitor  *Monitor
	Reporter *Reporter

	store    store.Store
	events   events.Publisher
	provider *sdkmetric.MeterProvider
	logger   logger.Logger
}

// New opens the store and connects the event and metric exporters.
func New(ctx context.Context, cfg *Config, log logger.Logger) (*Pipeline, error) {
	prober, err := probe.NewProber(cfg.Probe, log)
	if err != nil {
		return nil, err
	}

	s, err := OpenStore(ctx, &cfg.Store, log)
	if err != nil {
		return nil, err
	}

	pub, err := events.New(ctx, &cfg.Events, log)
	if err != nil {
		_ = s.Close()

		return nil, err
	}

	provider, err := telemetry.NewMeterProvider(ctx, &cfg.Metrics)
	if err != nil {
		pub.Close()
		_ = s.Close()

		return nil, err
	}

	metrics, err := telemetry.NewMetrics(provider)
	if err != nil {
		_ = provider.Shutdown(ctx)
		pub.Close()
		_ = s.Close()

		return nil, err
	}

	p, err := assemble(cfg, s, prober, DefaultSources(&cfg.Sources, log), pub, metrics, provider, log)
	if err != nil {
		_ = provider.Shutdown(ctx)
		pub.Close()
		_ = s.Close()

		return nil, err
	}

	return p, nil
}

func assemble(
	cfg *Config,
	s store.Store,
	prober probe.Prober,
	registry sources.Registry,
	pub events.Publisher,
	metrics *telemetry.Metrics,
	provider *sdkmetric.MeterProvider,
	log logger.Logger,
) (*Pipeline, error) {
	reporter, err := NewReporter(s, &cfg.Dashboard, metrics, log)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		Importer: NewImporter(registry, &cfg.Sources, s, log,
			WithConcurrency(cfg.ImportConcurrency),
			WithImportMetrics(metrics),
			WithImportEvents(pub)),
		Monitor: NewMonitor(s, prober, log,
			WithProbeMetrics(metrics),
			WithProbeEvents(pub)),
		Reporter: reporter,
		store:    s,
		events:   pub,
		provider: provider,
		logger:   log,
	}, nil
}

// RunAll imports every kind, runs one probe cycle and publishes the dashboard.
// An empty monitor list skips the probe and still publishes.
func (p *Pipeline) RunAll(ctx context.Context) error {
	summary, err := p.Importer.Run(ctx)
	if err != nil {
		return err
	}

	if failed := summary.Failed(); failed > 0 {
		p.logger.Warn().Int("failed", failed).Int("servers", len(summary.Results)).Msg("Some sources failed to import")
	}

	if _, err := p.Monitor.RunCycle(ctx); err != nil {
		if !errors.Is(err, probe.ErrEmptyMonitorList) {
			return fmt.Errorf("probe cycle: %w", err)
		}

		p.logger.Warn().Msg("No monitored devices; skipping probe")
	}

	if _, err := p.Reporter.Publish(ctx); err != nil {
		return fmt.Errorf("publish dashboard: %w", err)
	}

	return nil
}

// Close flushes metrics, drains the event connection and closes the store.
func (p *Pipeline) Close(ctx context.Context) error {
	var errs []error

	if p.provider != nil {
		if err := p.provider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics shutdown: %w", err))
		}
	}

	p.events.Close()

	if err := p.store.Close(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
