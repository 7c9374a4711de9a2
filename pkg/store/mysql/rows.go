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
	"time"

	"github.com/carverauto/netinventory/pkg/models"
)

// inventoryRow maps the inventory table. Neither DoPing nor the counters
// carry gorm defaults, since gorm would then skip their zero values on insert.
type inventoryRow struct {
	MgmtIPAddress   string    `gorm:"column:mgmt_ip_address;type:varchar(45);primaryKey"`
	Hostname        string    `gorm:"column:hostname;type:varchar(255);not null"`
	DeviceType      string    `gorm:"column:device_type;type:varchar(120);not null"`
	DeviceGroup     string    `gorm:"column:device_group;type:varchar(120);not null"`
	Source          string    `gorm:"column:source;type:varchar(255);not null"`
	SerialNumber    *string   `gorm:"column:serial_number;type:varchar(64)"`
	SoftwareVersion *string   `gorm:"column:software_version;type:varchar(64)"`
	Location        *string   `gorm:"column:location;type:varchar(255)"`
	DoPing          bool      `gorm:"column:do_ping;not null;index"`
	CreatedAt       time.Time `gorm:"column:created_at"`
}

func (inventoryRow) TableName() string { return "inventory" }

// pingResultRow maps the pingresults table.
type pingResultRow struct {
	MgmtIPAddress  string     `gorm:"column:mgmt_ip_address;type:varchar(45);primaryKey"`
	ReachablePct   float64    `gorm:"column:reachable_pct;not null"`
	AvgLatency     *float64   `gorm:"column:avg_latency"`
	MinLatency     *float64   `gorm:"column:min_latency"`
	MaxLatency     *float64   `gorm:"column:max_latency"`
	DatetimeLastup *time.Time `gorm:"column:datetime_lastup"`
	DownCount      int        `gorm:"column:down_count;not null"`
}

func (pingResultRow) TableName() string { return "pingresults" }

// availabilityScan receives the pingresults/inventory join.
type availabilityScan struct {
	Hostname       string
	MgmtIPAddress  string
	ReachablePct   float64
	AvgLatency     *float64
	MinLatency     *float64
	MaxLatency     *float64
	DatetimeLastup *time.Time
	DownCount      int
}

func toInventoryRow(r *models.DeviceRecord) inventoryRow {
	return inventoryRow{
		MgmtIPAddress:   r.ManagementAddress,
		Hostname:        r.Hostname,
		DeviceType:      r.DeviceType,
		DeviceGroup:     r.DeviceFamily,
		Source:          r.SourceLabel,
		SerialNumber:    r.SerialNumber,
		SoftwareVersion: r.SoftwareVersion,
		Location:        r.Location,
		DoPing:          r.MonitorEnabled,
	}
}

func (a *availabilityScan) toModel() models.AvailabilityRow {
	return models.AvailabilityRow{
		Hostname: a.Hostname,
		AvailabilityState: models.AvailabilityState{
			ManagementAddress: a.MgmtIPAddress,
			ReachablePct:      a.ReachablePct,
			AvgLatency:        a.AvgLatency,
			MinLatency:        a.MinLatency,
			MaxLatency:        a.MaxLatency,
			LastUp:            a.DatetimeLastup,
			DownStreak:        a.DownCount,
		},
	}
}
