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
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/netinventory/pkg/inventory"
	"github.com/carverauto/netinventory/pkg/logger"
	"github.com/carverauto/netinventory/pkg/models"
	"github.com/carverauto/netinventory/pkg/sources"
	"github.com/carverauto/netinventory/pkg/store"
)

func testServers() *SourcesConfig {
	return &SourcesConfig{
		DNAC: []models.ServerDescriptor{{Alias: "dnac-a", Host: "a"}, {Alias: "dnac-b", Host: "b"}},
		APIC: []models.ServerDescriptor{{Host: "apic-1"}},
	}
}

func testRegistry() sources.Registry {
	return sources.NewRegistry(
		&fakeSource{
			kind: models.SourceDNAC,
			results: map[string]fetchResult{
				"a": {records: []models.DeviceRecord{device("core-1", "10.0.0.1", true), device("core-2", "10.0.0.2", true)}},
				"b": {err: fmt.Errorf("%w: 401 Unauthorized", sources.ErrSourceAuth)},
			},
		},
		&fakeSource{
			kind: models.SourceAPIC,
			results: map[string]fetchResult{
				"apic-1": {records: []models.DeviceRecord{device(`"fabric"-1--leaf101`, "10.2.0.101", true)}},
			},
		},
	)
}

func TestImporterContinuesPastSourceFailure(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	pub := &recordingPublisher{}

	imp := NewImporter(testRegistry(), testServers(), mem, logger.NewTestLogger(), WithImportEvents(pub))

	summary, err := imp.Run(ctx)
	require.NoError(t, err)
	require.Len(t, summary.Results, 3)

	assert.Equal(t, models.SourceDNAC, summary.Results[0].Kind)
	assert.Equal(t, "dnac-a", summary.Results[0].Source)
	assert.Equal(t, 2, summary.Results[0].Fetched)
	assert.Equal(t, int64(2), summary.Results[0].Affected)

	failed := summary.Results[1]
	require.ErrorIs(t, failed.Err, sources.ErrSourceAuth)

	var srcErr *sources.Error
	require.ErrorAs(t, failed.Err, &srcErr)
	assert.Equal(t, "b", srcErr.Host)
	assert.Equal(t, "dnac-b", srcErr.Source)

	assert.Equal(t, models.SourceAPIC, summary.Results[2].Kind)
	assert.Equal(t, "apic-1", summary.Results[2].Source)

	assert.Equal(t, 1, summary.Failed())
	assert.Equal(t, int64(3), summary.Affected())
	assert.Equal(t, 3, mem.DeviceCount())
	assert.NotEmpty(t, summary.RunID)

	require.Len(t, pub.imports, 1)
	ev := pub.imports[0]
	assert.Equal(t, summary.RunID, ev.RunID)
	assert.Equal(t, 1, ev.Failed)
	assert.False(t, ev.Aborted)
	require.Len(t, ev.Servers, 3)
	assert.Contains(t, ev.Servers[1].Error, "authentication")

	again, err := imp.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Affected())
	assert.Equal(t, 3, mem.DeviceCount())
}

func TestImporterKindFilter(t *testing.T) {
	mem := store.NewMemoryStore()
	imp := NewImporter(testRegistry(), testServers(), mem, logger.NewTestLogger())

	summary, err := imp.Run(context.Background(), models.SourceAPIC)
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, models.SourceAPIC, summary.Results[0].Kind)

	_, ok := mem.Device("10.2.0.101")
	assert.True(t, ok)
	assert.Equal(t, 1, mem.DeviceCount())
}

func TestImporterUnknownKind(t *testing.T) {
	imp := NewImporter(testRegistry(), testServers(), store.NewMemoryStore(), logger.NewTestLogger())

	_, err := imp.Run(context.Background(), models.SourceWLC)
	require.ErrorIs(t, err, inventory.ErrUnknownSourceKind)
}

func TestImporterStoreFailureAborts(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := store.NewMockStore(ctrl)
	pub := &recordingPublisher{}

	mockStore.EXPECT().
		UpsertDevices(gomock.Any(), gomock.Len(2)).
		Return(int64(0), fmt.Errorf("%w: duplicate key", store.ErrStore)).
		Times(1)

	servers := &SourcesConfig{DNAC: []models.ServerDescriptor{{Host: "a"}, {Host: "c"}}}
	registry := sources.NewRegistry(&fakeSource{
		kind: models.SourceDNAC,
		results: map[string]fetchResult{
			"a": {records: []models.DeviceRecord{device("core-1", "10.0.0.1", true), device("core-2", "10.0.0.2", true)}},
			"c": {records: []models.DeviceRecord{device("core-3", "10.0.0.3", true)}},
		},
	})

	imp := NewImporter(registry, servers, mockStore, logger.NewTestLogger(), WithImportEvents(pub))

	summary, err := imp.Run(context.Background())
	require.ErrorIs(t, err, ErrImportAborted)
	require.ErrorIs(t, err, store.ErrStore)
	require.NotNil(t, summary)
	require.Len(t, summary.Results, 2)

	require.ErrorIs(t, summary.Results[0].Err, store.ErrStore)
	require.ErrorIs(t, summary.Results[1].Err, context.Canceled)

	require.Len(t, pub.imports, 1)
	assert.True(t, pub.imports[0].Aborted)
	assert.NotEmpty(t, pub.imports[0].AbortText)
}

func TestImporterConcurrentFetch(t *testing.T) {
	results := make(map[string]fetchResult)
	servers := &SourcesConfig{}

	for i := 0; i < 6; i++ {
		host := fmt.Sprintf("dnac-%d", i)
		servers.DNAC = append(servers.DNAC, models.ServerDescriptor{Host: host})
		results[host] = fetchResult{records: []models.DeviceRecord{
			device(host+"-sw1", fmt.Sprintf("10.%d.0.1", i), true),
			device(host+"-sw2", fmt.Sprintf("10.%d.0.2", i), true),
		}}
	}

	mem := store.NewMemoryStore()
	imp := NewImporter(sources.NewRegistry(&fakeSource{kind: models.SourceDNAC, results: results}),
		servers, mem, logger.NewTestLogger(), WithConcurrency(4))

	summary, err := imp.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Failed())
	assert.Equal(t, int64(12), summary.Affected())
	assert.Equal(t, 12, mem.DeviceCount())

	for i, r := range summary.Results {
		assert.Equal(t, fmt.Sprintf("dnac-%d", i), r.Host)
	}
}

func TestImporterEmptyInventoryIsSourceFailure(t *testing.T) {
	registry := sources.NewRegistry(&fakeSource{
		kind:    models.SourcePrime,
		results: map[string]fetchResult{"pi": {err: sources.ErrEmptyInventory}},
	})
	servers := &SourcesConfig{Prime: []models.ServerDescriptor{{Host: "pi"}}}

	summary, err := NewImporter(registry, servers, store.NewMemoryStore(), logger.NewTestLogger()).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	assert.True(t, errors.Is(summary.Results[0].Err, sources.ErrEmptyInventory))
}
