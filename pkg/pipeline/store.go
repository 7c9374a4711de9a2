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

package pipeline

import (
	"context"
	"fmt"

	"github.com/carverauto/netinventory/pkg/logger"
	"github.com/carverauto/netinventory/pkg/store"
	"github.com/carverauto/netinventory/pkg/store/mysql"
	"github.com/carverauto/netinventory/pkg/store/postgres"
)

// OpenStore connects the store selected by cfg.Driver.
func OpenStore(ctx context.Context, cfg *StoreConfig, log logger.Logger) (store.Store, error) {
	switch cfg.Driver {
	case DriverPostgres:
		s, err := postgres.New(ctx, cfg.Postgres, log)
		if err != nil {
			return nil, err
		}

		return s, nil
	case DriverMySQL:
		s, err := mysql.New(ctx, cfg.MySQL, log)
		if err != nil {
			return nil, err
		}

		return s, nil
	case DriverMemory:
		log.Warn().Msg("Using the in-memory store; nothing will be persisted")

		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", store.ErrUnknownDriver, cfg.Driver)
	}
}
