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

//go:generate mockgen -destination=mock_prober.go -package=probe github.com/carverauto/netinventory/pkg/probe Prober

// Package probe runs liveness bursts and splits their results into up and down partitions.
package probe

import (
	"context"
	"errors"

	"github.com/carverauto/netinventory/pkg/models"
)

var (
	// ErrEmptyMonitorList is returned when a cycle starts with nothing to probe.
	ErrEmptyMonitorList = errors.New("no monitored devices to probe")
	// ErrInvalidSample marks a sample that violates the prober contract.
	ErrInvalidSample = errors.New("invalid probe sample")
	// ErrProbeExecution is returned when the probe utility cannot run to completion.
	ErrProbeExecution = errors.New("probe execution failed")
)

// Prober sends one burst to every address and returns per-address statistics.
// Addresses the prober could not report on are absent from the result.
type Prober interface {
	Probe(ctx context.Context, addresses []string) (map[string]models.ProbeSample, error)
}
