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

package store

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/carverauto/netinventory/pkg/availability"
	"github.com/carverauto/netinventory/pkg/models"
)

// MemoryStore keeps both tables in process. It backs dry runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	devices map[string]models.DeviceRecord
	states  map[string]models.AvailabilityState
	closed  bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		devices: make(map[string]models.DeviceRecord),
		states:  make(map[string]models.AvailabilityState),
	}
}

// UpsertDevices counts one affected row per inserted or changed device.
func (m *MemoryStore) UpsertDevices(_ context.Context, records []models.DeviceRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, fmt.Errorf("%w: %w", ErrStore, ErrClosed)
	}

	for i := range records {
		if records[i].ManagementAddress == "" {
			return 0, fmt.Errorf("%w: record %d has no management address", ErrStore, i)
		}
	}

	next := maps.Clone(m.devices)

	var affected int64

	for i := range records {
		rec := records[i]

		if prev, ok := next[rec.ManagementAddress]; ok {
			rec.Extensions = prev.Extensions.Merge(rec.Extensions)
			if equalDevice(&prev, &rec) {
				continue
			}
		}

		next[rec.ManagementAddress] = rec
		affected++
	}

	m.devices = next

	return affected, nil
}

// MonitoredAddresses returns addresses in sorted order.
func (m *MemoryStore) MonitoredAddresses(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("%w: %w", ErrStore, ErrClosed)
	}

	addrs := make([]string, 0, len(m.devices))

	for addr, rec := range m.devices {
		if rec.MonitorEnabled && addr != models.NullAddress {
			addrs = append(addrs, addr)
		}
	}

	sort.Strings(addrs)

	return addrs, nil
}

// ApplyProbeResults merges into a copy and swaps it in.
func (m *MemoryStore) ApplyProbeResults(_ context.Context, down []models.DownResult, up []models.UpResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("%w: %w", ErrStore, ErrClosed)
	}

	next := maps.Clone(m.states)
	availability.Apply(next, down, up)
	m.states = next

	return nil
}

// AvailabilityRows returns rows sorted by address.
func (m *MemoryStore) AvailabilityRows(_ context.Context) ([]models.AvailabilityRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("%w: %w", ErrStore, ErrClosed)
	}

	rows := make([]models.AvailabilityRow, 0, len(m.states))

	for addr, state := range m.states {
		rows = append(rows, models.AvailabilityRow{
			Hostname:          m.devices[addr].Hostname,
			AvailabilityState: state,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].ManagementAddress < rows[j].ManagementAddress
	})

	return rows, nil
}

// Device returns the stored record for addr.
func (m *MemoryStore) Device(addr string) (models.DeviceRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.devices[addr]

	return rec, ok
}

// DeviceCount returns the number of inventory rows.
func (m *MemoryStore) DeviceCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.devices)
}

// State returns the availability state for addr.
func (m *MemoryStore) State(addr string) (models.AvailabilityState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.states[addr]

	return s, ok
}

// Close marks the store unusable.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true

	return nil
}

func equalDevice(a, b *models.DeviceRecord) bool {
	return a.Hostname == b.Hostname &&
		a.DeviceType == b.DeviceType &&
		a.DeviceFamily == b.DeviceFamily &&
		a.SourceLabel == b.SourceLabel &&
		a.MonitorEnabled == b.MonitorEnabled &&
		models.Deref(a.SerialNumber) == models.Deref(b.SerialNumber) &&
		models.Deref(a.SoftwareVersion) == models.Deref(b.SoftwareVersion) &&
		models.Deref(a.Location) == models.Deref(b.Location)
}
