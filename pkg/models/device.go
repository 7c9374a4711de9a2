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

// Package models holds the data types shared across the inventory and availability pipeline.
package models

const (
	// NullAddress is never stored or probed.
	NullAddress = "0.0.0.0"
	// Unknown fills type and family when a source omits them.
	Unknown = "Unknown"
	// WirelessAPType classifies every access point learned from a wireless controller.
	WirelessAPType = "Wireless AP"
)

// SourceKind names a family of management systems that share one fetch protocol.
type SourceKind string

const (
	SourceDNAC  SourceKind = "dnac"
	SourceAPIC  SourceKind = "apic"
	SourcePrime SourceKind = "prime"
	SourceWLC   SourceKind = "wlc"
	SourceSNMP  SourceKind = "snmp"
)

// AllSourceKinds lists the kinds in import order.
func AllSourceKinds() []SourceKind {
	return []SourceKind{SourceDNAC, SourceAPIC, SourcePrime, SourceWLC, SourceSNMP}
}

// Valid reports whether k is a known source kind.
func (k SourceKind) Valid() bool {
	for _, known := range AllSourceKinds() {
		if k == known {
			return true
		}
	}

	return false
}

// Extensions carries fields only richer sources know about. A nil pointer
// means the source did not report the field, so stored values survive.
type Extensions struct {
	SerialNumber    *string `json:"serial_number,omitempty"`
	SoftwareVersion *string `json:"software_version,omitempty"`
	Location        *string `json:"location,omitempty"`
}

// Merge returns e with every field set in newer overriding it.
func (e Extensions) Merge(newer Extensions) Extensions {
	if newer.SerialNumber != nil {
		e.SerialNumber = newer.SerialNumber
	}

	if newer.SoftwareVersion != nil {
		e.SoftwareVersion = newer.SoftwareVersion
	}

	if newer.Location != nil {
		e.Location = newer.Location
	}

	return e
}

// DeviceRecord is the canonical inventory entity. ManagementAddress is its identity.
type DeviceRecord struct {
	Hostname          string `json:"hostname"`
	ManagementAddress string `json:"management_address"`
	DeviceType        string `json:"device_type"`
	DeviceFamily      string `json:"device_family"`
	SourceLabel       string `json:"source_label"`
	MonitorEnabled    bool   `json:"monitor_enabled"`
	Extensions
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
