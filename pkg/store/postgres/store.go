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

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carverauto/netinventory/pkg/logger"
	"github.com/carverauto/netinventory/pkg/models"
	"github.com/carverauto/netinventory/pkg/store"
)

// Unchanged rows are filtered by the WHERE clause so they report zero rows affected.
const upsertDeviceSQL = `
INSERT INTO inventory (
	mgmt_ip_address, hostname, device_type, device_group, source,
	serial_number, software_version, location, do_ping
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (mgmt_ip_address) DO UPDATE SET
	hostname         = EXCLUDED.hostname,
	device_type      = EXCLUDED.device_type,
	device_group     = EXCLUDED.device_group,
	source           = EXCLUDED.source,
	serial_number    = COALESCE(EXCLUDED.serial_number, inventory.serial_number),
	software_version = COALESCE(EXCLUDED.software_version, inventory.software_version),
	location         = COALESCE(EXCLUDED.location, inventory.location),
	do_ping          = EXCLUDED.do_ping,
	updated_at       = now()
WHERE (inventory.hostname, inventory.device_type, inventory.device_group, inventory.source,
       inventory.serial_number, inventory.software_version, inventory.location, inventory.do_ping)
   IS DISTINCT FROM
      (EXCLUDED.hostname, EXCLUDED.device_type, EXCLUDED.device_group, EXCLUDED.source,
       COALESCE(EXCLUDED.serial_number, inventory.serial_number),
       COALESCE(EXCLUDED.software_version, inventory.software_version),
       COALESCE(EXCLUDED.location, inventory.location),
       EXCLUDED.do_ping)`

const markDownSQL = `
INSERT INTO pingresults (
	mgmt_ip_address, reachable_pct, avg_latency, min_latency, max_latency, down_count
) VALUES ($1, 0, NULL, NULL, NULL, 1)
ON CONFLICT (mgmt_ip_address) DO UPDATE SET
	reachable_pct = 0,
	avg_latency   = NULL,
	min_latency   = NULL,
	max_latency   = NULL,
	down_count    = pingresults.down_count + 1,
	updated_at    = now()`

const markUpSQL = `
INSERT INTO pingresults (
	mgmt_ip_address, reachable_pct, avg_latency, min_latency, max_latency, datetime_lastup, down_count
) VALUES ($1, $2, $3, $4, $5, $6, 0)
ON CONFLICT (mgmt_ip_address) DO UPDATE SET
	reachable_pct   = EXCLUDED.reachable_pct,
	avg_latency     = EXCLUDED.avg_latency,
	min_latency     = EXCLUDED.min_latency,
	max_latency     = EXCLUDED.max_latency,
	datetime_lastup = EXCLUDED.datetime_lastup,
	down_count      = 0,
	updated_at      = now()`

const monitoredSQL = `
SELECT mgmt_ip_address FROM inventory
WHERE do_ping AND mgmt_ip_address <> '0.0.0.0'
ORDER BY mgmt_ip_address`

const availabilitySQL = `
SELECT COALESCE(i.hostname, ''), p.mgmt_ip_address, p.reachable_pct,
       p.avg_latency, p.min_latency, p.max_latency, p.datetime_lastup, p.down_count
FROM pingresults p
LEFT JOIN inventory i ON i.mgmt_ip_address = p.mgmt_ip_address
ORDER BY p.reachable_pct ASC, p.down_count DESC, p.avg_latency DESC NULLS LAST`

// Store implements store.Store on a pgx pool.
type Store struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

var _ store.Store = (*Store)(nil)

// New connects, migrates and returns a ready store.
func New(ctx context.Context, cfg *Config, log logger.Logger) (*Store, error) {
	pool, err := NewPool(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrStore, err)
	}

	if err := RunMigrations(ctx, pool, log); err != nil {
		pool.Close()

		return nil, fmt.Errorf("%w: %w", store.ErrStore, err)
	}

	return &Store{pool: pool, logger: log}, nil
}

// UpsertDevices writes the batch inside one transaction.
func (s *Store) UpsertDevices(ctx context.Context, records []models.DeviceRecord) (int64, error) {
	batch := deviceBatch(records)

	var affected int64

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		n, err := sendBatchExecAll(ctx, batch, tx.SendBatch, "upsert devices")
		affected = n

		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", store.ErrStore, err)
	}

	return affected, nil
}

// MonitoredAddresses lists probe targets.
func (s *Store) MonitoredAddresses(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, monitoredSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: query monitored addresses: %w", store.ErrStore, err)
	}

	addrs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%w: scan monitored addresses: %w", store.ErrStore, err)
	}

	return addrs, nil
}

// ApplyProbeResults merges both partitions in one transaction.
func (s *Store) ApplyProbeResults(ctx context.Context, down []models.DownResult, up []models.UpResult) error {
	batch := probeBatch(down, up)

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := sendBatchExecAll(ctx, batch, tx.SendBatch, "apply probe results")

		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrStore, err)
	}

	return nil
}

// AvailabilityRows reads pingresults joined with inventory, worst first.
func (s *Store) AvailabilityRows(ctx context.Context) ([]models.AvailabilityRow, error) {
	rows, err := s.pool.Query(ctx, availabilitySQL)
	if err != nil {
		return nil, fmt.Errorf("%w: query availability: %w", store.ErrStore, err)
	}

	out, err := pgx.CollectRows(rows, scanAvailabilityRow)
	if err != nil {
		return nil, fmt.Errorf("%w: scan availability: %w", store.ErrStore, err)
	}

	return out, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()

	return nil
}

func scanAvailabilityRow(row pgx.CollectableRow) (models.AvailabilityRow, error) {
	var (
		r      models.AvailabilityRow
		lastUp *time.Time
	)

	err := row.Scan(
		&r.Hostname,
		&r.ManagementAddress,
		&r.ReachablePct,
		&r.AvgLatency,
		&r.MinLatency,
		&r.MaxLatency,
		&lastUp,
		&r.DownStreak,
	)
	r.LastUp = lastUp

	return r, err
}

func deviceBatch(records []models.DeviceRecord) *pgx.Batch {
	batch := &pgx.Batch{}

	for i := range records {
		batch.Queue(upsertDeviceSQL, deviceArgs(&records[i])...)
	}

	return batch
}

func deviceArgs(r *models.DeviceRecord) []interface{} {
	return []interface{}{
		r.ManagementAddress,
		r.Hostname,
		r.DeviceType,
		r.DeviceFamily,
		r.SourceLabel,
		r.SerialNumber,
		r.SoftwareVersion,
		r.Location,
		r.MonitorEnabled,
	}
}

func probeBatch(down []models.DownResult, up []models.UpResult) *pgx.Batch {
	batch := &pgx.Batch{}

	for _, d := range down {
		batch.Queue(markDownSQL, d.Address)
	}

	for i := range up {
		u := &up[i]
		batch.Queue(markUpSQL, u.Address, u.ReachablePct, u.Avg, u.Min, u.Max, u.At.UTC())
	}

	return batch
}
