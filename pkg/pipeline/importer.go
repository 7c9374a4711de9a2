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
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/carverauto/netinventory/pkg/events"
	"github.com/carverauto/netinventory/pkg/inventory"
	"github.com/carverauto/netinventory/pkg/logger"
	"github.com/carverauto/netinventory/pkg/models"
	"github.com/carverauto/netinventory/pkg/sources"
	"github.com/carverauto/netinventory/pkg/telemetry"
)

// ErrImportAborted marks a run stopped by a store failure.
var ErrImportAborted = errors.New("import aborted")

// ServerResult is the outcome of one server's import.
type ServerResult struct {
	Kind     models.SourceKind
	Source   string
	Host     string
	Fetched  int
	Affected int64
	Err      error
}

// ImportSummary reports every server an import run touched, in configuration order.
type ImportSummary struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Results  []ServerResult
}

// Failed counts servers whose import did not complete.
func (s *ImportSummary) Failed() int {
	n := 0

	for i := range s.Results {
		if s.Results[i].Err != nil {
			n++
		}
	}

	return n
}

// Affected totals the rows the store reported changed.
func (s *ImportSummary) Affected() int64 {
	var n int64

	for i := range s.Results {
		n += s.Results[i].Affected
	}

	return n
}

// ServerLister returns the configured servers of a kind.
type ServerLister interface {
	ForKind(kind models.SourceKind) []models.ServerDescriptor
}

// Importer pulls every configured server's inventory into the store.
type Importer struct {
	registry    sources.Registry
	servers     ServerLister
	upserter    *inventory.Upserter
	metrics     *telemetry.Metrics
	events      events.Publisher
	logger      logger.Logger
	concurrency int
	now         func() time.Time

	// writeMu serializes batches into the store.
	writeMu sync.Mutex
}

// ImporterOption customizes an Importer.
type ImporterOption func(*Importer)

// WithConcurrency bounds how many servers are fetched at once.
func WithConcurrency(n int) ImporterOption {
	return func(i *Importer) {
		if n > 0 {
			i.concurrency = n
		}
	}
}

// WithImportMetrics records per-server outcomes on m.
func WithImportMetrics(m *telemetry.Metrics) ImporterOption {
	return func(i *Importer) { i.metrics = m }
}

// WithImportEvents publishes a summary event after each run.
func WithImportEvents(p events.Publisher) ImporterOption {
	return func(i *Importer) { i.events = p }
}

// NewImporter wires the registry and server list to writer.
func NewImporter(registry sources.Registry, servers ServerLister, writer inventory.Writer, log logger.Logger, opts ...ImporterOption) *Importer {
	i := &Importer{
		registry:    registry,
		servers:     servers,
		upserter:    inventory.NewUpserter(writer, log),
		metrics:     telemetry.NewNoopMetrics(),
		events:      events.NoopPublisher{},
		logger:      log,
		concurrency: defaultImportConcurrency,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

type importJob struct {
	kind   models.SourceKind
	source sources.Source
	server models.ServerDescriptor
}

// Run imports the requested kinds, or every registered kind when none are
// given. A failing server is recorded and skipped. A store failure stops the
// run and is returned wrapped in ErrImportAborted together with the partial
// summary.
func (i *Importer) Run(ctx context.Context, kinds ...models.SourceKind) (*ImportSummary, error) {
	jobs, err := i.plan(kinds)
	if err != nil {
		return nil, err
	}

	summary := &ImportSummary{
		RunID:   uuid.NewString(),
		Started: i.now(),
		Results: make([]ServerResult, len(jobs)),
	}

	log := i.logger.With().Str("run_id", summary.RunID).Logger()
	log.Info().Int("servers", len(jobs)).Msg("Starting inventory import")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.concurrency)

	for idx := range jobs {
		job := jobs[idx]
		result := &summary.Results[idx]

		g.Go(func() error {
			return i.importServer(gctx, job, result)
		})
	}

	runErr := g.Wait()
	summary.Finished = i.now()

	for idx := range summary.Results {
		r := &summary.Results[idx]
		if r.Err == nil {
			continue
		}

		log.Error().
			Err(r.Err).
			Str("kind", string(r.Kind)).
			Str("source", r.Source).
			Str("host", r.Host).
			Msg("Source import failed")
	}

	if runErr != nil {
		runErr = fmt.Errorf("%w: %w", ErrImportAborted, runErr)
	}

	i.publish(ctx, summary, runErr)

	log.Info().
		Int("servers", len(summary.Results)).
		Int("failed", summary.Failed()).
		Int64("rows_affected", summary.Affected()).
		Dur("elapsed", summary.Finished.Sub(summary.Started)).
		Bool("aborted", runErr != nil).
		Msg("Inventory import finished")

	return summary, runErr
}

func (i *Importer) plan(kinds []models.SourceKind) ([]importJob, error) {
	if len(kinds) == 0 {
		kinds = i.registry.Kinds()
	}

	var jobs []importJob

	for _, kind := range kinds {
		src, err := i.registry.Get(kind)
		if err != nil {
			return nil, err
		}

		for _, server := range i.servers.ForKind(kind) {
			jobs = append(jobs, importJob{kind: kind, source: src, server: server})
		}
	}

	return jobs, nil
}

// importServer fetches one server and upserts its batch. Only a store error
// is returned; fetch failures land in result.
func (i *Importer) importServer(ctx context.Context, job importJob, result *ServerResult) error {
	*result = ServerResult{Kind: job.kind, Source: job.server.Label(), Host: job.server.Host}

	if err := ctx.Err(); err != nil {
		result.Err = sources.Wrap(job.kind, job.server, err)

		return nil
	}

	records, err := job.source.Fetch(ctx, job.server)
	if err != nil {
		result.Err = sources.Wrap(job.kind, job.server, err)
		i.metrics.RecordServerImport(ctx, job.kind, 0, 0, result.Err)

		return nil
	}

	result.Fetched = len(records)

	i.writeMu.Lock()
	affected, err := i.upserter.Upsert(ctx, records)
	i.writeMu.Unlock()

	if err != nil {
		result.Err = err
		i.metrics.RecordServerImport(ctx, job.kind, result.Fetched, 0, err)

		return fmt.Errorf("%s source %q: %w", job.kind, result.Source, err)
	}

	result.Affected = affected
	i.metrics.RecordServerImport(ctx, job.kind, result.Fetched, affected, nil)

	i.logger.Info().
		Str("kind", string(job.kind)).
		Str("source", result.Source).
		Str("host", result.Host).
		Int("fetched", result.Fetched).
		Int64("rows_affected", affected).
		Msg("Source imported")

	return nil
}

func (i *Importer) publish(ctx context.Context, summary *ImportSummary, runErr error) {
	ev := &events.ImportEvent{
		RunID:    summary.RunID,
		Started:  summary.Started,
		Finished: summary.Finished,
		Servers:  make([]events.ServerResult, 0, len(summary.Results)),
		Failed:   summary.Failed(),
		Affected: summary.Affected(),
		Aborted:  runErr != nil,
	}

	if runErr != nil {
		ev.AbortText = runErr.Error()
	}

	for idx := range summary.Results {
		r := &summary.Results[idx]

		sr := events.ServerResult{
			Kind:     string(r.Kind),
			Source:   r.Source,
			Host:     r.Host,
			Fetched:  r.Fetched,
			Affected: r.Affected,
		}

		if r.Err != nil {
			sr.Error = r.Err.Error()
		}

		ev.Servers = append(ev.Servers, sr)
	}

	if err := i.events.PublishImport(context.WithoutCancel(ctx), ev); err != nil {
		i.logger.Warn().Err(err).Str("run_id", summary.RunID).Msg("Failed to publish import event")
	}
}
