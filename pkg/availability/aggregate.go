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

package availability

import (
	"cmp"
	"slices"
	"time"

	"github.com/carverauto/netinventory/pkg/models"
)

// Classify buckets one device. Rules are evaluated in order and the first
// match wins, so lossy devices are dropping even when they are also slow.
func Classify(s *models.AvailabilityState, thresholdMs float64) models.Bucket {
	switch {
	case s.ReachablePct <= 0:
		return models.BucketDown
	case s.ReachablePct < 100:
		return models.BucketDropping
	case s.AvgLatency != nil && *s.AvgLatency > thresholdMs:
		return models.BucketLatent
	default:
		return models.BucketUp
	}
}

// Compare orders worst devices first: reachability ascending, streak
// descending, average latency descending with missing latency last.
func Compare(a, b *models.AvailabilityState) int {
	if c := cmp.Compare(a.ReachablePct, b.ReachablePct); c != 0 {
		return c
	}

	if c := cmp.Compare(b.DownStreak, a.DownStreak); c != 0 {
		return c
	}

	switch {
	case a.AvgLatency == nil && b.AvgLatency == nil:
		return 0
	case a.AvgLatency == nil:
		return 1
	case b.AvgLatency == nil:
		return -1
	default:
		return cmp.Compare(*b.AvgLatency, *a.AvgLatency)
	}
}

// Sort orders rows in place with Compare. Equal rows keep their input order.
func Sort(rows []models.AvailabilityRow) {
	slices.SortStableFunc(rows, func(a, b models.AvailabilityRow) int {
		return Compare(&a.AvailabilityState, &b.AvailabilityState)
	})
}

// BuildReport orders and buckets rows against a latency threshold in milliseconds.
func BuildReport(rows []models.AvailabilityRow, thresholdMs float64, now time.Time) models.AvailabilityReport {
	ordered := slices.Clone(rows)
	Sort(ordered)

	report := models.AvailabilityReport{
		Devices:     make([]models.DeviceStatus, 0, len(ordered)),
		ThresholdMs: thresholdMs,
		GeneratedAt: now,
	}

	for i := range ordered {
		bucket := Classify(&ordered[i].AvailabilityState, thresholdMs)

		switch bucket {
		case models.BucketDown:
			report.Counts.Down++
		case models.BucketDropping:
			report.Counts.Dropping++
		case models.BucketLatent:
			report.Counts.Latent++
		case models.BucketUp:
			report.Counts.Up++
		}

		report.Devices = append(report.Devices, models.DeviceStatus{
			AvailabilityRow: ordered[i],
			Bucket:          bucket,
		})
	}

	return report
}
