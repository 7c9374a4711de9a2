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

	"github.com/carverauto/netinventory/pkg/availability"
	"github.com/carverauto/netinventory/pkg/dashboard"
	"github.com/carverauto/netinventory/pkg/logger"
	"github.com/carverauto/netinventory/pkg/models"
	"github.com/carverauto/netinventory/pkg/store"
	"github.com/carverauto/netinventory/pkg/telemetry"
)

// Reporter builds availability reports and publishes the dashboard.
type Reporter struct {
	store    store.Store
	cfg      dashboard.Config
	renderer *dashboard.Renderer
	metrics  *telemetry.Metrics
	logger   logger.Logger
	now      func() time.Time
}

// NewReporter parses the dashboard template for cfg.
func NewReporter(s store.Store, cfg *dashboard.Config, metrics *telemetry.Metrics, log logger.Logger) (*Reporter, error) {
	renderer, err := dashboard.NewRenderer(cfg)
	if err != nil {
		return nil, err
	}

	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}

	return &Reporter{
		store:    s,
		cfg:      *cfg,
		renderer: renderer,
		metrics:  metrics,
		logger:   log,
		now:      time.Now,
	}, nil
}

// Report reads the joined availability state and classifies it against thresholdMs.
func (r *Reporter) Report(ctx context.Context, thresholdMs float64) (*models.AvailabilityReport, error) {
	rows, err := r.store.AvailabilityRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read availability rows: %w", err)
	}

	report := availability.BuildReport(rows, thresholdMs, r.now())

	return &report, nil
}

// Publish writes the dashboard page, and the textfile when configured, for
// the current state.
func (r *Reporter) Publish(ctx context.Context) (*models.AvailabilityReport, error) {
	report, err := r.Report(ctx, r.cfg.Threshold())
	if err != nil {
		return nil, err
	}

	if err := r.renderer.WriteFile(r.cfg.Path, report); err != nil {
		return nil, fmt.Errorf("write dashboard: %w", err)
	}

	if r.cfg.TextfilePath != "" {
		if err := dashboard.WriteTextfile(r.cfg.TextfilePath, report); err != nil {
			return nil, err
		}
	}

	r.metrics.RecordReport(ctx, report.Counts)

	r.logger.Info().
		Str("path", r.cfg.Path).
		Int("devices", len(report.Devices)).
		Int("up", report.Counts.Up).
		Int("latent", report.Counts.Latent).
		Int("dropping", report.Counts.Dropping).
		Int("down", report.Counts.Down).
		Msg("Availability dashboard published")

	return report, nil
}
