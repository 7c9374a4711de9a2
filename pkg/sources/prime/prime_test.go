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

package prime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netinventory/pkg/logger"
	"github.com/carverauto/netinventory/pkg/models"
	"github.com/carverauto/netinventory/pkg/sources"
)

func primeServer(t *testing.T, devices []DevicesDTO) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, devicesPath, r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get(".full"))

		user, pass, ok := r.BasicAuth()
		if !ok || user != "devnetuser" || pass != "DevNet123!" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		first, err := strconv.Atoi(r.URL.Query().Get(".firstResult"))
		require.NoError(t, err)

		limit, err := strconv.Atoi(r.URL.Query().Get(".maxResults"))
		require.NoError(t, err)

		var resp devicesResponse

		resp.QueryResponse.Count = len(devices)
		resp.QueryResponse.First = first

		end := min(first+limit, len(devices))
		resp.QueryResponse.Last = end - 1

		for _, d := range devices[min(first, len(devices)):end] {
			resp.QueryResponse.Entity = append(resp.QueryResponse.Entity, struct {
				DevicesDTO DevicesDTO `json:"devicesDTO"`
			}{DevicesDTO: d})
		}

		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func testDevices(n int) []DevicesDTO {
	devices := make([]DevicesDTO, 0, n)
	for i := 0; i < n; i++ {
		devices = append(devices, DevicesDTO{
			DeviceName:      fmt.Sprintf("rtr%d", i),
			IPAddress:       fmt.Sprintf("192.0.2.%d", i+1),
			DeviceType:      "Cisco 4451-X Integrated Services Router",
			ProductFamily:   "Routers",
			AdminStatus:     "MANAGED",
			SoftwareVersion: "16.12.4",
			Location:        "HQ",
		})
	}

	return devices
}

func TestFetch(t *testing.T) {
	devices := testDevices(5)
	devices[4].AdminStatus = "UNMANAGED"

	srv := primeServer(t, devices)
	defer srv.Close()

	src := New(logger.NewTestLogger())
	src.pageSize = 2

	records, err := src.Fetch(context.Background(),
		models.ServerDescriptor{Alias: "pi", Host: srv.URL, Username: "devnetuser", Password: "DevNet123!"})
	require.NoError(t, err)
	require.Len(t, records, 5)

	assert.Equal(t, "rtr0", records[0].Hostname)
	assert.Equal(t, "Routers", records[0].DeviceFamily)
	assert.Equal(t, "HQ", models.Deref(records[0].Location))
	assert.Equal(t, "16.12.4", models.Deref(records[0].SoftwareVersion))
	assert.Nil(t, records[0].SerialNumber)
	assert.Equal(t, "pi", records[0].SourceLabel)
	assert.True(t, records[0].MonitorEnabled)
	assert.False(t, records[4].MonitorEnabled)
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name     string
		devices  []DevicesDTO
		password string
		wantErr  error
	}{
		{name: "empty inventory", password: "DevNet123!", wantErr: sources.ErrEmptyInventory},
		{name: "bad password", devices: testDevices(1), password: "nope", wantErr: sources.ErrSourceAuth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := primeServer(t, tt.devices)
			defer srv.Close()

			_, err := New(logger.NewTestLogger()).Fetch(context.Background(),
				models.ServerDescriptor{Host: srv.URL, Username: "devnetuser", Password: tt.password})
			require.ErrorIs(t, err, tt.wantErr)

			var se *sources.Error
			require.ErrorAs(t, err, &se)
			assert.Equal(t, models.SourcePrime, se.Kind)
		})
	}
}
