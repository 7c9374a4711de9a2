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

// Package sources fetches device inventories from management systems.
package sources

import (
	"context"
	"fmt"
	"sort"

	"github.com/carverauto/netinventory/pkg/inventory"
	"github.com/carverauto/netinventory/pkg/logger"
	"github.com/carverauto/netinventory/pkg/models"
)

// Source fetches the inventory of one management server of its kind and
// returns it normalized.
type Source interface {
	Kind() models.SourceKind
	Fetch(ctx context.Context, server models.ServerDescriptor) ([]models.DeviceRecord, error)
}

// Registry maps each kind to the Source that serves it.
type Registry map[models.SourceKind]Source

// NewRegistry indexes srcs by kind. A later source replaces an earlier one of the same kind.
func NewRegistry(srcs ...Source) Registry {
	r := make(Registry, len(srcs))
	for _, s := range srcs {
		r[s.Kind()] = s
	}

	return r
}

// Get returns the source registered for kind.
func (r Registry) Get(kind models.SourceKind) (Source, error) {
	s, ok := r[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", inventory.ErrUnknownSourceKind, kind)
	}

	return s, nil
}

// Kinds lists the registered kinds in import order.
func (r Registry) Kinds() []models.SourceKind {
	order := make(map[models.SourceKind]int)
	for i, k := range models.AllSourceKinds() {
		order[k] = i
	}

	kinds := make([]models.SourceKind, 0, len(r))
	for k := range r {
		kinds = append(kinds, k)
	}

	sort.Slice(kinds, func(i, j int) bool { return order[kinds[i]] < order[kinds[j]] })

	return kinds
}

// NormalizeBatch runs the normalizer of kind over one server's extracted
// fields. An empty batch is ErrEmptyInventory. Records without an address
// are logged and skipped.
func NormalizeBatch(
	log logger.Logger, kind models.SourceKind, server models.ServerDescriptor, fields []inventory.Fields,
) ([]models.DeviceRecord, error) {
	if len(fields) == 0 {
		return nil, ErrEmptyInventory
	}

	n, err := inventory.NewNormalizer(kind, server.Label())
	if err != nil {
		return nil, err
	}

	records, errs := n.NormalizeAll(fields)
	for _, e := range errs {
		log.Warn().Err(e).
			Str("kind", string(kind)).
			Str("source", server.Label()).
			Str("host", server.Host).
			Msg("Skipping record")
	}

	log.Debug().
		Str("kind", string(kind)).
		Str("source", server.Label()).
		Int("raw", len(fields)).
		Int("normalized", len(records)).
		Msg("Normalized source batch")

	return records, nil
}
