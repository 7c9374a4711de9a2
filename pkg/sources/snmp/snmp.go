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

// Package snmp builds inventory records for seed hosts from their SNMP system group.
package snmp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/carverauto/netinventory/pkg/inventory"
	"github.com/carverauto/netinventory/pkg/logger"
	"github.com/carverauto/netinventory/pkg/models"
	"github.com/carverauto/netinventory/pkg/sources"
)

const (
	oidSysDescr    = ".1.3.6.1.2.1.1.1.0"
	oidSysObjectID = ".1.3.6.1.2.1.1.2.0"
	oidSysName     = ".1.3.6.1.2.1.1.5.0"
	oidSysLocation = ".1.3.6.1.2.1.1.6.0"

	defaultPort      = 161
	defaultCommunity = "public"
	defaultTimeout   = 5 * time.Second
	defaultRetries   = 1

	// DeviceType classifies every device learned over SNMP.
	DeviceType = "SNMP Device"
)

var (
	errSNMPError        = errors.New("snmp error status")
	errNoSNMPData       = errors.New("no SNMP data returned")
	errAllTargetsFailed = errors.New("no target answered")

	// ErrUnsupportedVersion marks a descriptor whose version is not v1 or v2c.
	ErrUnsupportedVersion = errors.New("unsupported SNMP version")
)

// SysInfo is the system group of one agent.
type SysInfo struct {
	Name     string
	Descr    string
	ObjectID string
	Location string
}

// QueryFunc reads the system group of target.
type QueryFunc func(ctx context.Context, server models.ServerDescriptor, target string) (*SysInfo, error)

// Source polls each target of a descriptor. Targets default to the descriptor host.
type Source struct {
	log   logger.Logger
	query QueryFunc
}

// New returns an SNMP source using gosnmp.
func New(log logger.Logger) *Source {
	return NewWithQuery(log, QuerySysInfo)
}

// NewWithQuery returns an SNMP source using query.
func NewWithQuery(log logger.Logger, query QueryFunc) *Source {
	return &Source{log: log, query: query}
}

// Kind implements sources.Source.
func (*Source) Kind() models.SourceKind {
	return models.SourceSNMP
}

// Fetch implements sources.Source. Unreachable targets are logged and
// skipped. The fetch fails only when every target fails.
func (s *Source) Fetch(ctx context.Context, server models.ServerDescriptor) ([]models.DeviceRecord, error) {
	if _, err := ParseVersion(server.Version); err != nil {
		return nil, sources.Wrap(models.SourceSNMP, server, err)
	}

	targets := server.Targets
	if len(targets) == 0 {
		targets = []string{server.Host}
	}

	fields := make([]inventory.Fields, 0, len(targets))

	var lastErr error

	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return nil, sources.Wrap(models.SourceSNMP, server, err)
		}

		info, err := s.query(ctx, server, target)
		if err != nil {
			lastErr = err

			s.log.Warn().Err(err).
				Str("source", server.Label()).
				Str("target", target).
				Msg("SNMP target did not answer")

			continue
		}

		fields = append(fields, toFields(target, info))
	}

	if len(fields) == 0 {
		return nil, sources.Wrap(models.SourceSNMP, server,
			fmt.Errorf("%w: %w: %d targets, last error: %w",
				sources.ErrSourceUnreachable, errAllTargetsFailed, len(targets), lastErr))
	}

	records, err := sources.NormalizeBatch(s.log, models.SourceSNMP, server, fields)
	if err != nil {
		return nil, sources.Wrap(models.SourceSNMP, server, err)
	}

	return records, nil
}

func toFields(target string, info *SysInfo) inventory.Fields {
	family := info.ObjectID
	if tokens := strings.Fields(info.Descr); len(tokens) > 0 {
		family = tokens[0]
	}

	return inventory.Fields{
		Hostname: info.Name,
		Address:  target,
		Type:     DeviceType,
		Family:   family,
		Extensions: models.Extensions{
			Location: models.StringPtr(strings.TrimSpace(info.Location)),
		},
	}
}

// QuerySysInfo gets sysName, sysDescr, sysObjectID and sysLocation from target.
func QuerySysInfo(ctx context.Context, server models.ServerDescriptor, target string) (*SysInfo, error) {
	client, err := newClient(ctx, server, target)
	if err != nil {
		return nil, err
	}

	if err := client.Connect(); err != nil {
		return nil, sources.Unreachable(err)
	}
	defer func() { _ = client.Conn.Close() }()

	result, err := client.Get([]string{oidSysName, oidSysDescr, oidSysObjectID, oidSysLocation})
	if err != nil {
		return nil, sources.Unreachable(err)
	}

	if result.Error != gosnmp.NoError {
		return nil, fmt.Errorf("%w: %s", errSNMPError, result.Error)
	}

	return sysInfoFrom(result.Variables)
}

func newClient(ctx context.Context, server models.ServerDescriptor, target string) (*gosnmp.GoSNMP, error) {
	community := server.Community
	if community == "" {
		community = defaultCommunity
	}

	port := server.Port
	if port == 0 {
		port = defaultPort
	}

	client := &gosnmp.GoSNMP{
		Context:   ctx,
		Target:    target,
		Port:      uint16(port), //nolint:gosec // ports fit
		Community: community,
		Timeout:   server.Timeout.Or(defaultTimeout),
		Retries:   defaultRetries,
		MaxOids:   gosnmp.MaxOids,
	}

	version, err := ParseVersion(server.Version)
	if err != nil {
		return nil, err
	}

	client.Version = version

	return client, nil
}

// ParseVersion maps a descriptor version to gosnmp. Empty means v2c.
func ParseVersion(v string) (gosnmp.SnmpVersion, error) {
	switch v {
	case "", "2c", "v2c":
		return gosnmp.Version2c, nil
	case "1", "v1":
		return gosnmp.Version1, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedVersion, v)
	}
}

func sysInfoFrom(variables []gosnmp.SnmpPDU) (*SysInfo, error) {
	info := &SysInfo{}
	found := false

	for _, v := range variables {
		if v.Type == gosnmp.NoSuchObject || v.Type == gosnmp.NoSuchInstance {
			continue
		}

		found = true

		switch v.Name {
		case oidSysName:
			info.Name = octetString(v)
		case oidSysDescr:
			info.Descr = octetString(v)
		case oidSysLocation:
			info.Location = octetString(v)
		case oidSysObjectID:
			if v.Type == gosnmp.ObjectIdentifier {
				info.ObjectID, _ = v.Value.(string)
			}
		}
	}

	if !found {
		return nil, errNoSNMPData
	}

	return info, nil
}

func octetString(v gosnmp.SnmpPDU) string {
	if v.Type != gosnmp.OctetString {
		return ""
	}

	b, _ := v.Value.([]byte)

	return strings.TrimSpace(string(b))
}
