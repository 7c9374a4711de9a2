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

package wlc

import "strings"

// AccessPoint is a data plane record joined with its name map entry.
type AccessPoint struct {
	RadioMAC string
	Address  string
	Serial   string
	Model    string
	Version  string
	Location string
	Name     string
	EthMAC   string
}

// Correlate inner-joins data and names on the radio MAC. Every matching
// pair is emitted in data order. Records without a partner, or without a
// MAC, are dropped.
func Correlate(data []CapwapData, names []NameMapEntry) []AccessPoint {
	byMAC := make(map[string][]NameMapEntry, len(names))
	for _, n := range names {
		key := macKey(n.WtpMAC)
		if key == "" {
			continue
		}

		byMAC[key] = append(byMAC[key], n)
	}

	var aps []AccessPoint

	for i := range data {
		d := &data[i]

		key := macKey(d.WtpMAC)
		if key == "" {
			continue
		}

		for _, n := range byMAC[key] {
			aps = append(aps, AccessPoint{
				RadioMAC: d.WtpMAC,
				Address:  d.IPAddr,
				Serial:   d.Serial,
				Model:    d.Model,
				Version:  d.SwVer.String(),
				Location: d.Location,
				Name:     n.WtpName,
				EthMAC:   n.EthMAC,
			})
		}
	}

	return aps
}

func macKey(mac string) string {
	return strings.ToLower(strings.TrimSpace(mac))
}
