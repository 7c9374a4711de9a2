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

// Package inventory maps source records into canonical devices and writes them to the store.
package inventory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/carverauto/netinventory/pkg/models"
)

var (
	// ErrMissingAddress is returned for a record without a management address.
	ErrMissingAddress = errors.New("record has no management address")
	// ErrUnknownSourceKind is returned when no status rule exists for a kind.
	ErrUnknownSourceKind = errors.New("unknown source kind")
	// ErrInvalidRecord is returned by the upserter for rows the store must never see.
	ErrInvalidRecord = errors.New("invalid device record")
)

// Fields is the source-neutral view of one raw record after a source
// has pulled its fields out of the wire format.
type Fields struct {
	Hostname   string
	Address    string
	Type       string
	Family     string
	Status     string
	Extensions models.Extensions
}

// StatusRule maps a source's administrative status to the monitor flag.
// Exactly one token is truthy; Always ignores the token entirely.
type StatusRule struct {
	Truthy string
	Always bool
}

// Monitor reports whether status enables liveness probing.
func (r StatusRule) Monitor(status string) bool {
	if r.Always {
		return true
	}

	return status == r.Truthy
}

// statusRules documents the administrative status vocabulary of each source kind.
//
//	dnac   collectionStatus  "Managed"
//	apic   state             "in-service"
//	prime  adminStatus       "MANAGED"
//	wlc    (none)            always monitored
//	snmp   (none)            always monitored
var statusRules = map[models.SourceKind]StatusRule{
	models.SourceDNAC:  {Truthy: "Managed"},
	models.SourceAPIC:  {Truthy: "in-service"},
	models.SourcePrime: {Truthy: "MANAGED"},
	models.SourceWLC:   {Always: true},
	models.SourceSNMP:  {Always: true},
}

// StatusRuleFor returns the status rule of kind.
func StatusRuleFor(kind models.SourceKind) (StatusRule, error) {
	rule, ok := statusRules[kind]
	if !ok {
		return StatusRule{}, fmt.Errorf("%w: %q", ErrUnknownSourceKind, kind)
	}

	return rule, nil
}

// Normalizer maps Fields of one source into DeviceRecords.
type Normalizer struct {
	kind  models.SourceKind
	label string
	rule  StatusRule
}

// NewNormalizer builds a normalizer for the source identified by kind and label.
func NewNormalizer(kind models.SourceKind, label string) (*Normalizer, error) {
	rule, err := StatusRuleFor(kind)
	if err != nil {
		return nil, err
	}

	return &Normalizer{kind: kind, label: label, rule: rule}, nil
}

// Normalize maps one record. ok is false when the record is dropped
// because it carries the null address.
func (n *Normalizer) Normalize(f Fields) (rec models.DeviceRecord, ok bool, err error) {
	addr := strings.TrimSpace(f.Address)
	if addr == "" {
		return models.DeviceRecord{}, false, fmt.Errorf("%w: hostname %q", ErrMissingAddress, f.Hostname)
	}

	if addr == models.NullAddress {
		return models.DeviceRecord{}, false, nil
	}

	hostname := strings.TrimSpace(f.Hostname)
	if hostname == "" {
		hostname = addr
	}

	return models.DeviceRecord{
		Hostname:          hostname,
		ManagementAddress: addr,
		DeviceType:        orUnknown(f.Type),
		DeviceFamily:      orUnknown(f.Family),
		SourceLabel:       n.label,
		MonitorEnabled:    n.rule.Monitor(f.Status),
		Extensions:        f.Extensions,
	}, true, nil
}

// NormalizeAll maps a batch in order. Records that fail are skipped and
// their errors returned alongside the records that succeeded.
func (n *Normalizer) NormalizeAll(fields []Fields) ([]models.DeviceRecord, []error) {
	records := make([]models.DeviceRecord, 0, len(fields))

	var errs []error

	for i := range fields {
		rec, ok, err := n.Normalize(fields[i])
		if err != nil {
			errs = append(errs, fmt.Errorf("%s record %d: %w", n.kind, i, err))
			continue
		}

		if ok {
			records = append(records, rec)
		}
	}

	return records, errs
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.Unknown
	}

	return s
}
