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

package inventory

import (
	"testing"

	"github.com/carverauto/netinventory/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDropsNullAddress(t *testing.T) {
	n, err := NewNormalizer(models.SourceAPIC, "apic1.example.net")
	require.NoError(t, err)

	records, errs := n.NormalizeAll([]Fields{
		{Hostname: "r1", Address: "10.0.0.1", Status: "in-service"},
		{Hostname: "r2", Address: "0.0.0.0", Status: "in-service"},
	})

	require.Empty(t, errs)
	require.Len(t, records, 1)
	assert.Equal(t, "r1", records[0].Hostname)
	assert.Equal(t, "10.0.0.1", records[0].ManagementAddress)
	assert.True(t, records[0].MonitorEnabled)
	assert.Equal(t, "apic1.example.net", records[0].SourceLabel)
}

func TestNormalizeDefaults(t *testing.T) {
	n, err := NewNormalizer(models.SourceDNAC, "dnac")
	require.NoError(t, err)

	rec, ok, err := n.Normalize(Fields{Address: " 10.1.1.1 "})
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "10.1.1.1", rec.ManagementAddress)
	assert.Equal(t, "10.1.1.1", rec.Hostname)
	assert.Equal(t, models.Unknown, rec.DeviceType)
	assert.Equal(t, models.Unknown, rec.DeviceFamily)
	assert.False(t, rec.MonitorEnabled)
	assert.Nil(t, rec.SerialNumber)
}

func TestNormalizeMissingAddressFailsRecordOnly(t *testing.T) {
	n, err := NewNormalizer(models.SourcePrime, "prime")
	require.NoError(t, err)

	records, errs := n.NormalizeAll([]Fields{
		{Hostname: "noaddr"},
		{Hostname: "sw1", Address: "10.2.0.1", Status: "MANAGED"},
	})

	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrMissingAddress)
	require.Len(t, records, 1)
	assert.Equal(t, "sw1", records[0].Hostname)
}

func TestStatusRules(t *testing.T) {
	tests := []struct {
		kind   models.SourceKind
		status string
		want   bool
	}{
		{models.SourceDNAC, "Managed", true},
		{models.SourceDNAC, "MANAGED", false},
		{models.SourceDNAC, "Partial Collection Failure", false},
		{models.SourceAPIC, "in-service", true},
		{models.SourceAPIC, "out-of-service", false},
		{models.SourcePrime, "MANAGED", true},
		{models.SourcePrime, "Managed", false},
		{models.SourceWLC, "", true},
		{models.SourceSNMP, "whatever", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+tt.status, func(t *testing.T) {
			rule, err := StatusRuleFor(tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rule.Monitor(tt.status))
		})
	}
}

func TestNewNormalizerUnknownKind(t *testing.T) {
	_, err := NewNormalizer("netbox", "x")
	assert.ErrorIs(t, err, ErrUnknownSourceKind)
}
