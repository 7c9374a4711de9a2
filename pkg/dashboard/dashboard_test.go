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

package dashboard

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/carverauto/netinventory/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func device(host, addr string, bucket models.Bucket, pct float64, avg *float64, streak int, lastUp *time.Time) models.DeviceStatus {
	return models.DeviceStatus{
		AvailabilityRow: models.AvailabilityRow{
			Hostname: host,
			AvailabilityState: models.AvailabilityState{
				ManagementAddress: addr,
				ReachablePct:      pct,
				AvgLatency:        avg,
				MaxLatency:        avg,
				DownStreak:        streak,
				LastUp:            lastUp,
			},
		},
		Bucket: bucket,
	}
}

func sampleReport() *models.AvailabilityReport {
	lastUp := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)

	return &models.AvailabilityReport{
		Counts: models.BucketCounts{Up: 1, Latent: 1, Dropping: 1, Down: 2},
		Devices: []models.DeviceStatus{
			device("core-1", "10.0.0.1", models.BucketDown, 0, nil, 3, &lastUp),
			device("", "10.0.0.9", models.BucketDown, 0, nil, 1, nil),
			device("edge-1", "10.0.0.2", models.BucketDropping, 60, models.Float64Ptr(4), 0, nil),
			device("wan-1", "10.0.0.3", models.BucketLatent, 100, models.Float64Ptr(250.5), 0, nil),
			device("<acc-1>", "10.0.0.4", models.BucketUp, 100, models.Float64Ptr(2), 0, nil),
		},
		ThresholdMs: 100,
		GeneratedAt: time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC),
	}
}

func TestRenderCells(t *testing.T) {
	r, err := NewRenderer(&Config{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, sampleReport()))

	html := buf.String()

	assert.Contains(t, html, `content="300"`)
	assert.Contains(t, html, "<h1>Availability Dashboard</h1>")
	assert.Contains(t, html, "Last generated: 09:30:00 05-04-2026")
	assert.Contains(t, html, `<td class="down">2</td>`)
	assert.Contains(t, html, `<td class="down">core-1<br>10.0.0.1<br>0% / Downcount 3 / Downsince 2026-05-04 03:02:01</td>`)
	assert.Contains(t, html, `<td class="down">10.0.0.9<br>10.0.0.9<br>0% / Downcount 1 / Downsince never</td>`)
	assert.Contains(t, html, `<td class="dropped">edge-1<br>10.0.0.2<br>60% / avg 4 ms / max 4 ms</td>`)
	assert.Contains(t, html, `<td class="latent">wan-1<br>10.0.0.3<br>100% / avg 250.5 ms / max 250.5 ms</td>`)
	assert.Contains(t, html, "&lt;acc-1&gt;")
	assert.NotContains(t, html, "<acc-1>")
}

func TestRenderRowChunking(t *testing.T) {
	tests := []struct {
		name    string
		perRow  int
		devices int
		rows    int
	}{
		{name: "default width", perRow: 0, devices: 25, rows: 3},
		{name: "exact multiple", perRow: 5, devices: 10, rows: 2},
		{name: "empty report", perRow: 4, devices: 0, rows: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRenderer(&Config{CellsPerRow: tt.perRow, Title: "Lab"})
			require.NoError(t, err)

			report := &models.AvailabilityReport{GeneratedAt: time.Now()}
			for i := 0; i < tt.devices; i++ {
				report.Devices = append(report.Devices, device("h", "10.1.1.1", models.BucketUp, 100, nil, 0, nil))
			}

			var buf bytes.Buffer
			require.NoError(t, r.Render(&buf, report))

			// the stats table holds two rows
			assert.Equal(t, tt.rows+2, strings.Count(buf.String(), "<tr>"))
			assert.Contains(t, buf.String(), "<title>Lab</title>")
		})
	}
}

func TestWriteFileCreatesParents(t *testing.T) {
	r, err := NewRenderer(&Config{RefreshInterval: models.Duration(time.Minute)})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "www", "html", "index.html")
	require.NoError(t, r.WriteFile(path, sampleReport()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `content="60"`)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "textfile", "netinventory.prom")
	require.NoError(t, WriteTextfile(path, sampleReport()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, `netinventory_availability_devices{bucket="down"} 2`)
	assert.Contains(t, out, `netinventory_availability_devices{bucket="up"} 1`)
	assert.Contains(t, out, `netinventory_availability_down_streak{address="10.0.0.1",hostname="core-1"} 3`)
	assert.Contains(t, out, `netinventory_availability_avg_latency_milliseconds{address="10.0.0.3",hostname="wan-1"} 250.5`)
	assert.NotContains(t, out, `avg_latency_milliseconds{address="10.0.0.1"`)
}

func TestThresholdDefault(t *testing.T) {
	assert.InDelta(t, DefaultThresholdMs, (&Config{}).Threshold(), 0)
	assert.InDelta(t, 42.0, (&Config{LatencyThresholdMs: 42}).Threshold(), 0)
}
