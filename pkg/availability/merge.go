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

// Package availability folds probe bursts into rolling per-device state
// and derives dashboard buckets from it.
package availability

import "github.com/carverauto/netinventory/pkg/models"

// MergeDown applies a fully-down burst. prev is nil for an address seen
// for the first time.
func MergeDown(prev *models.AvailabilityState, r models.DownResult) models.AvailabilityState {
	next := models.AvailabilityState{ManagementAddress: r.Address}
	if prev != nil {
		next.LastUp = prev.LastUp
		next.DownStreak = prev.DownStreak
	}

	next.ReachablePct = 0
	next.DownStreak++

	return next
}

// MergeUp applies a burst where at least one packet came back.
// Reachability is taken from this burst alone.
func MergeUp(_ *models.AvailabilityState, r models.UpResult) models.AvailabilityState {
	at := r.At

	return models.AvailabilityState{
		ManagementAddress: r.Address,
		ReachablePct:      r.ReachablePct,
		AvgLatency:        r.Avg,
		MinLatency:        r.Min,
		MaxLatency:        r.Max,
		LastUp:            &at,
		DownStreak:        0,
	}
}

// Apply merges both partitions of one burst into states in place.
// The partitions are disjoint, so order does not matter.
func Apply(states map[string]models.AvailabilityState, down []models.DownResult, up []models.UpResult) {
	for _, r := range down {
		states[r.Address] = MergeDown(lookup(states, r.Address), r)
	}

	for _, r := range up {
		states[r.Address] = MergeUp(lookup(states, r.Address), r)
	}
}

func lookup(states map[string]models.AvailabilityState, addr string) *models.AvailabilityState {
	if s, ok := states[addr]; ok {
		return &s
	}

	return nil
}
