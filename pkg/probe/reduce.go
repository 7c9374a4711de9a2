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

package probe

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/carverauto/netinventory/pkg/models"
)

// Reduction is one burst split into disjoint partitions.
type Reduction struct {
	Down     []models.DownResult
	Up       []models.UpResult
	Rejected []models.RejectedSample
}

// Reduce partitions a burst. Every sample lands in exactly one of Down, Up
// or Rejected. Output is sorted by address.
func Reduce(samples map[string]models.ProbeSample, now time.Time) Reduction {
	addrs := make([]string, 0, len(samples))
	for addr := range samples {
		addrs = append(addrs, addr)
	}

	sort.Strings(addrs)

	var r Reduction

	for _, addr := range addrs {
		s := samples[addr]
		s.Address = addr

		if err := Validate(&s); err != nil {
			r.Rejected = append(r.Rejected, models.RejectedSample{Sample: s, Reason: err.Error()})
			continue
		}

		if s.LossPct == 100 {
			r.Down = append(r.Down, models.DownResult{Address: addr})
			continue
		}

		r.Up = append(r.Up, models.UpResult{
			Address:      addr,
			ReachablePct: 100 - s.LossPct,
			Avg:          s.Avg,
			Min:          s.Min,
			Max:          s.Max,
			At:           now,
		})
	}

	return r
}

// Validate checks a sample against the prober contract.
func Validate(s *models.ProbeSample) error {
	switch {
	case s.Address == "":
		return fmt.Errorf("%w: empty address", ErrInvalidSample)
	case math.IsNaN(s.LossPct) || s.LossPct < 0 || s.LossPct > 100:
		return fmt.Errorf("%w: loss %v outside [0,100]", ErrInvalidSample, s.LossPct)
	case s.LossPct == 100 && (s.Avg != nil || s.Min != nil || s.Max != nil):
		return fmt.Errorf("%w: fully lost burst carries latency", ErrInvalidSample)
	}

	return nil
}
