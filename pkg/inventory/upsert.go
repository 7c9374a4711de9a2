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
	"context"
	"fmt"

	"github.com/carverauto/netinventory/pkg/logger"
	"github.com/carverauto/netinventory/pkg/models"
)

// Writer persists device batches. It must apply a batch atomically and
// report the number of rows affected.
type Writer interface {
	UpsertDevices(ctx context.Context, records []models.DeviceRecord) (int64, error)
}

// Upserter writes canonical records keyed by management address.
type Upserter struct {
	writer Writer
	logger logger.Logger
}

// NewUpserter wraps w.
func NewUpserter(w Writer, log logger.Logger) *Upserter {
	return &Upserter{writer: w, logger: log}
}

// Upsert submits records as one batch. Duplicate addresses inside the batch
// collapse into one row: scalar fields follow the last occurrence and
// extension fields follow the last occurrence that reported them.
func (u *Upserter) Upsert(ctx context.Context, records []models.DeviceRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	batch, err := Dedupe(records)
	if err != nil {
		return 0, err
	}

	affected, err := u.writer.UpsertDevices(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("upsert %d devices: %w", len(batch), err)
	}

	u.logger.Info().
		Int("records", len(batch)).
		Int64("rows_affected", affected).
		Msg("Inventory batch upserted")

	return affected, nil
}

// Dedupe validates records and folds duplicates by address, keeping the
// position of the first occurrence.
func Dedupe(records []models.DeviceRecord) ([]models.DeviceRecord, error) {
	index := make(map[string]int, len(records))
	out := make([]models.DeviceRecord, 0, len(records))

	for i := range records {
		rec := records[i]

		switch rec.ManagementAddress {
		case "":
			return nil, fmt.Errorf("%w: record %d: %w", ErrInvalidRecord, i, ErrMissingAddress)
		case models.NullAddress:
			return nil, fmt.Errorf("%w: record %d carries the null address", ErrInvalidRecord, i)
		}

		pos, seen := index[rec.ManagementAddress]
		if !seen {
			index[rec.ManagementAddress] = len(out)
			out = append(out, rec)

			continue
		}

		rec.Extensions = out[pos].Extensions.Merge(rec.Extensions)
		out[pos] = rec
	}

	return out, nil
}
