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

package models

import "time"

// AvailabilityState is the rolling reachability record of one device.
type AvailabilityState struct {
	ManagementAddress string     `json:"management_address"`
	ReachablePct      float64    `json:"reachable_pct"`
	AvgLatency        *float64   `json:"avg_latency,omitempty"`
	MinLatency        *float64   `json:"min_latency,omitempty"`
	MaxLatency        *float64   `json:"max_latency,omitempty"`
	LastUp            *time.Time `json:"last_up,omitempty"`
	DownStreak        int        `json:"down_streak"`
}

// AvailabilityRow is an AvailabilityState joined with its inventory hostname.
// Hostname is empty when the inventory row no longer exists.
type AvailabilityRow struct {
	Hostname string `json:"hostname"`
	AvailabilityState
}

// ProbeSample is one address's statistics from a probe burst. Latencies are
// in milliseconds and absent when every packet was lost.
type ProbeSample struct {
	Address string   `json:"address"`
	LossPct float64  `json:"loss_pct"`
	Avg     *float64 `json:"avg,omitempty"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
}

// DownResult marks an address that lost every packet of a burst.
// Its reachability is 0, its latencies are nil and its streak grows by one.
type DownResult struct {
	Address string `json:"address"`
}

// UpResult marks an address that answered at least one packet of a burst.
type UpResult struct {
	Address      string    `json:"address"`
	ReachablePct float64   `json:"reachable_pct"`
	Avg          *float64  `json:"avg,omitempty"`
	Min          *float64  `json:"min,omitempty"`
	Max          *float64  `json:"max,omitempty"`
	At           time.Time `json:"at"`
}

// RejectedSample is a probe sample that violated the prober contract.
type RejectedSample struct {
	Sample ProbeSample `json:"sample"`
	Reason string      `json:"reason"`
}

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 {
	return &v
}
