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

// Bucket is the dashboard classification of a device.
type Bucket string

const (
	BucketDown     Bucket = "down"
	BucketDropping Bucket = "dropping"
	BucketLatent   Bucket = "latent"
	BucketUp       Bucket = "up"
)

// BucketCounts totals the devices per bucket.
type BucketCounts struct {
	Up       int `json:"up"`
	Latent   int `json:"latent"`
	Dropping int `json:"dropping"`
	Down     int `json:"down"`
}

// Total is the number of devices counted.
func (c BucketCounts) Total() int {
	return c.Up + c.Latent + c.Dropping + c.Down
}

// DeviceStatus is one ordered entry of an availability report.
type DeviceStatus struct {
	AvailabilityRow
	Bucket Bucket `json:"bucket"`
}

// AvailabilityReport is what the presentation layer renders.
type AvailabilityReport struct {
	Counts      BucketCounts   `json:"counts"`
	Devices     []DeviceStatus `json:"devices"`
	ThresholdMs float64        `json:"threshold_ms"`
	GeneratedAt time.Time      `json:"generated_at"`
}
