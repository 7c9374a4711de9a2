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

//go:generate mockgen -destination=mock_store.go -package=store github.com/carverauto/netinventory/pkg/store Store

// Package store defines persistence for the inventory and pingresults tables.
package store

import (
	"context"
	"errors"

	"github.com/carverauto/netinventory/pkg/models"
)

var (
	// ErrStore wraps every failure of a backing store. It aborts the run.
	ErrStore = errors.New("store error")
	// ErrClosed is returned by a store used after Close.
	ErrClosed = errors.New("store closed")
	// ErrUnknownDriver is returned for an unsupported store driver name.
	ErrUnknownDriver = errors.New("unknown store driver")
)

// Store persists the inventory and the per-device availability state.
// Each write method is atomic: it either applies the whole batch or nothing.
type Store interface {
	// UpsertDevices inserts or updates records keyed by management address.
	// Extension fields that are nil leave the stored value untouched.
	UpsertDevices(ctx context.Context, records []models.DeviceRecord) (int64, error)
	// MonitoredAddresses lists addresses with monitoring enabled, excluding the null address.
	MonitoredAddresses(ctx context.Context) ([]string, error)
	// ApplyProbeResults merges one burst into the availability state.
	ApplyProbeResults(ctx context.Context, down []models.DownResult, up []models.UpResult) error
	// AvailabilityRows returns the availability state joined with inventory hostnames.
	AvailabilityRows(ctx context.Context) ([]models.AvailabilityRow, error)
	Close() error
}
