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

package mysql

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/carverauto/netinventory/pkg/logger"
	"github.com/carverauto/netinventory/pkg/models"
	"github.com/carverauto/netinventory/pkg/store"
)

const createBatchSize = 500

// Store implements store.Store on gorm.
type Store struct {
	db     *gorm.DB
	logger logger.Logger
}

var _ store.Store = (*Store)(nil)

// New opens the database and migrates both tables.
func New(ctx context.Context, cfg *Config, log logger.Logger) (*Store, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: mysql open: %w", store.ErrStore, err)
	}

	s := &Store{db: db, logger: log}

	if err := db.WithContext(ctx).AutoMigrate(&inventoryRow{}, &pingResultRow{}); err != nil {
		_ = s.Close()

		return nil, fmt.Errorf("%w: mysql migrate: %w", store.ErrStore, err)
	}

	log.Info().Str("database", cfg.Database).Msg("Connected to MySQL")

	return s, nil
}

// NewWithDB wraps an already opened gorm handle.
func NewWithDB(db *gorm.DB, log logger.Logger) *Store {
	return &Store{db: db, logger: log}
}

// inventoryUpsert keeps stored extension values when the incoming one is NULL.
// MySQL reports 1 per inserted row, 2 per changed row and 0 per unchanged row.
func inventoryUpsert() clause.OnConflict {
	return clause.OnConflict{
		DoUpdates: clause.Assignments(map[string]interface{}{
			"hostname":         gorm.Expr("VALUES(hostname)"),
			"device_type":      gorm.Expr("VALUES(device_type)"),
			"device_group":     gorm.Expr("VALUES(device_group)"),
			"source":           gorm.Expr("VALUES(source)"),
			"do_ping":          gorm.Expr("VALUES(do_ping)"),
			"serial_number":    gorm.Expr("COALESCE(VALUES(serial_number), serial_number)"),
			"software_version": gorm.Expr("COALESCE(VALUES(software_version), software_version)"),
			"location":         gorm.Expr("COALESCE(VALUES(location), location)"),
		}),
	}
}

func markDownUpsert() clause.OnConflict {
	return clause.OnConflict{
		DoUpdates: clause.Assignments(map[string]interface{}{
			"reachable_pct": 0,
			"avg_latency":   gorm.Expr("NULL"),
			"min_latency":   gorm.Expr("NULL"),
			"max_latency":   gorm.Expr("NULL"),
			"down_count":    gorm.Expr("down_count + 1"),
		}),
	}
}

func markUpUpsert() clause.OnConflict {
	return clause.OnConflict{
		DoUpdates: clause.Assignments(map[string]interface{}{
			"reachable_pct":   gorm.Expr("VALUES(reachable_pct)"),
			"avg_latency":     gorm.Expr("VALUES(avg_latency)"),
			"min_latency":     gorm.Expr("VALUES(min_latency)"),
			"max_latency":     gorm.Expr("VALUES(max_latency)"),
			"datetime_lastup": gorm.Expr("VALUES(datetime_lastup)"),
			"down_count":      0,
		}),
	}
}

// chunks splits n items into [start, end) windows of at most createBatchSize.
func chunks(n int) [][2]int {
	var out [][2]int

	for start := 0; start < n; start += createBatchSize {
		out = append(out, [2]int{start, min(start+createBatchSize, n)})
	}

	return out
}

func upsertDevices(tx *gorm.DB, records []models.DeviceRecord) (int64, error) {
	var affected int64

	for _, c := range chunks(len(records)) {
		res := upsertDeviceChunk(tx, records[c[0]:c[1]])
		if res.Error != nil {
			return 0, res.Error
		}

		affected += res.RowsAffected
	}

	return affected, nil
}

func upsertDeviceChunk(tx *gorm.DB, records []models.DeviceRecord) *gorm.DB {
	rows := make([]inventoryRow, 0, len(records))
	for i := range records {
		rows = append(rows, toInventoryRow(&records[i]))
	}

	return tx.Clauses(inventoryUpsert()).Create(&rows)
}

func markDown(tx *gorm.DB, down []models.DownResult) error {
	for _, c := range chunks(len(down)) {
		if err := markDownChunk(tx, down[c[0]:c[1]]).Error; err != nil {
			return err
		}
	}

	return nil
}

func markDownChunk(tx *gorm.DB, down []models.DownResult) *gorm.DB {
	rows := make([]pingResultRow, 0, len(down))
	for _, d := range down {
		rows = append(rows, pingResultRow{MgmtIPAddress: d.Address, DownCount: 1})
	}

	return tx.Clauses(markDownUpsert()).Create(&rows)
}

func markUp(tx *gorm.DB, up []models.UpResult) error {
	for _, c := range chunks(len(up)) {
		if err := markUpChunk(tx, up[c[0]:c[1]]).Error; err != nil {
			return err
		}
	}

	return nil
}

func markUpChunk(tx *gorm.DB, up []models.UpResult) *gorm.DB {
	rows := make([]pingResultRow, 0, len(up))

	for i := range up {
		at := up[i].At.UTC()
		rows = append(rows, pingResultRow{
			MgmtIPAddress:  up[i].Address,
			ReachablePct:   up[i].ReachablePct,
			AvgLatency:     up[i].Avg,
			MinLatency:     up[i].Min,
			MaxLatency:     up[i].Max,
			DatetimeLastup: &at,
		})
	}

	return tx.Clauses(markUpUpsert()).Create(&rows)
}

func availabilityQuery(db *gorm.DB) *gorm.DB {
	return db.Table("pingresults AS p").
		Select("COALESCE(i.hostname, '') AS hostname, p.mgmt_ip_address, p.reachable_pct, " +
			"p.avg_latency, p.min_latency, p.max_latency, p.datetime_lastup, p.down_count").
		Joins("LEFT JOIN inventory AS i ON i.mgmt_ip_address = p.mgmt_ip_address").
		Order("p.reachable_pct ASC, p.down_count DESC, p.avg_latency IS NULL, p.avg_latency DESC")
}

// UpsertDevices writes the batch inside one transaction.
func (s *Store) UpsertDevices(ctx context.Context, records []models.DeviceRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	var affected int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := upsertDevices(tx, records)
		affected = n

		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%w: upsert devices: %w", store.ErrStore, err)
	}

	return affected, nil
}

// MonitoredAddresses lists probe targets.
func (s *Store) MonitoredAddresses(ctx context.Context) ([]string, error) {
	var addrs []string

	err := s.db.WithContext(ctx).
		Model(&inventoryRow{}).
		Where("do_ping = ? AND mgmt_ip_address <> ?", true, models.NullAddress).
		Order("mgmt_ip_address").
		Pluck("mgmt_ip_address", &addrs).Error
	if err != nil {
		return nil, fmt.Errorf("%w: query monitored addresses: %w", store.ErrStore, err)
	}

	return addrs, nil
}

// ApplyProbeResults merges both partitions in one transaction.
func (s *Store) ApplyProbeResults(ctx context.Context, down []models.DownResult, up []models.UpResult) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := markDown(tx, down); err != nil {
			return fmt.Errorf("mark down: %w", err)
		}

		if err := markUp(tx, up); err != nil {
			return fmt.Errorf("mark up: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrStore, err)
	}

	return nil
}

// AvailabilityRows reads pingresults joined with inventory, worst first.
func (s *Store) AvailabilityRows(ctx context.Context) ([]models.AvailabilityRow, error) {
	var scanned []availabilityScan

	if err := availabilityQuery(s.db.WithContext(ctx)).Scan(&scanned).Error; err != nil {
		return nil, fmt.Errorf("%w: query availability: %w", store.ErrStore, err)
	}

	rows := make([]models.AvailabilityRow, 0, len(scanned))
	for i := range scanned {
		rows = append(rows, scanned[i].toModel())
	}

	return rows, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}
