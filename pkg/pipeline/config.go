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
	"errors"
	"fmt"

	"github.com/carverauto/netinventory/pkg/dashboard"
	"github.com/carverauto/netinventory/pkg/events"
	"github.com/carverauto/netinventory/pkg/logger"
	"github.com/carverauto/netinventory/pkg/models"
	"github.com/carverauto/netinventory/pkg/probe"
	"github.com/carverauto/netinventory/pkg/sources/snmp"
	"github.com/carverauto/netinventory/pkg/store"
	"github.com/carverauto/netinventory/pkg/store/mysql"
	"github.com/carverauto/netinventory/pkg/store/postgres"
	"github.com/carverauto/netinventory/pkg/telemetry"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMemory   = "memory"

	defaultImportConcurrency = 1
	defaultDashboardPath     = "/var/www/html/availability.html"
)

var (
	errMissingStoreDriver  = errors.New("store.driver is required")
	errMissingStoreSection = errors.New("driver section is required")
	errMissingServerHost   = errors.New("server host is required")
	errNoSources           = errors.New("at least one source server must be configured")
	errNegativeThreshold   = errors.New("latency threshold must not be negative")
)

// StoreConfig selects and configures the backing store.
type StoreConfig struct {
	Driver   string           `json:"driver" yaml:"driver"`
	Postgres *postgres.Config `json:"postgres,omitempty" yaml:"postgres,omitempty"`
	MySQL    *mysql.Config    `json:"mysql,omitempty" yaml:"mysql,omitempty"`
}

// SourcesConfig lists the management servers of each kind.
type SourcesConfig struct {
	DNAC  []models.ServerDescriptor `json:"dnac,omitempty" yaml:"dnac,omitempty"`
	APIC  []models.ServerDescriptor `json:"apic,omitempty" yaml:"apic,omitempty"`
	Prime []models.ServerDescriptor `json:"prime,omitempty" yaml:"prime,omitempty"`
	WLC   []models.ServerDescriptor `json:"wlc,omitempty" yaml:"wlc,omitempty"`
	SNMP  []models.ServerDescriptor `json:"snmp,omitempty" yaml:"snmp,omitempty"`

	// KnownHostsFile verifies controller SSH host keys for servers with verify_tls set.
	KnownHostsFile string `json:"known_hosts_file,omitempty" yaml:"known_hosts_file,omitempty"`
}

// ForKind returns the servers configured for kind.
func (s *SourcesConfig) ForKind(kind models.SourceKind) []models.ServerDescriptor {
	switch kind {
	case models.SourceDNAC:
		return s.DNAC
	case models.SourceAPIC:
		return s.APIC
	case models.SourcePrime:
		return s.Prime
	case models.SourceWLC:
		return s.WLC
	case models.SourceSNMP:
		return s.SNMP
	}

	return nil
}

// Config is the whole netinventory configuration document.
type Config struct {
	Log               *logger.Config   `json:"log,omitempty" yaml:"log,omitempty"`
	Store             StoreConfig      `json:"store" yaml:"store"`
	Sources           SourcesConfig    `json:"sources" yaml:"sources"`
	Probe             probe.Config     `json:"probe" yaml:"probe"`
	Dashboard         dashboard.Config `json:"dashboard" yaml:"dashboard"`
	Events            events.Config    `json:"events" yaml:"events"`
	Metrics           telemetry.Config `json:"metrics" yaml:"metrics"`
	ImportConcurrency int              `json:"import_concurrency" yaml:"import_concurrency"`
}

// Validate fills defaults and rejects unusable documents.
func (c *Config) Validate() error {
	if c.Store.Driver == "" {
		return errMissingStoreDriver
	}

	switch c.Store.Driver {
	case DriverPostgres:
		if c.Store.Postgres == nil {
			return fmt.Errorf("store.postgres: %w", errMissingStoreSection)
		}
	case DriverMySQL:
		if c.Store.MySQL == nil {
			return fmt.Errorf("store.mysql: %w", errMissingStoreSection)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("%w: %q", store.ErrUnknownDriver, c.Store.Driver)
	}

	if c.ImportConcurrency <= 0 {
		c.ImportConcurrency = defaultImportConcurrency
	}

	if c.Dashboard.LatencyThresholdMs < 0 {
		return errNegativeThreshold
	}

	total := 0

	for _, kind := range models.AllSourceKinds() {
		for i, server := range c.Sources.ForKind(kind) {
			if server.Host == "" && len(server.Targets) == 0 {
				return fmt.Errorf("sources.%s[%d]: %w", kind, i, errMissingServerHost)
			}

			if kind == models.SourceSNMP {
				if _, err := snmp.ParseVersion(server.Version); err != nil {
					return fmt.Errorf("sources.%s[%d]: %w", kind, i, err)
				}
			}

			total++
		}
	}

	if total == 0 {
		return errNoSources
	}

	if c.Dashboard.Path == "" {
		c.Dashboard.Path = defaultDashboardPath
	}

	return nil
}
