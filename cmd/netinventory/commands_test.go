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

package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netinventory/pkg/models"
	"github.com/carverauto/netinventory/pkg/pipeline"
)

func writeConfig(t *testing.T, dashboardPath string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "optionsconfig.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: warn
store:
  driver: memory
sources:
  snmp:
    - community: public
      targets: [192.0.2.10]
dashboard:
  path: `+dashboardPath+`
`), 0o600))

	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

func TestParseKinds(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []models.SourceKind
		wantErr bool
	}{
		{name: "none", args: nil, want: []models.SourceKind{}},
		{name: "mixed case", args: []string{"DNAC", "wlc"}, want: []models.SourceKind{models.SourceDNAC, models.SourceWLC}},
		{name: "unknown", args: []string{"dnac", "solarwinds"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseKinds(tt.args)
			if tt.wantErr {
				require.ErrorIs(t, err, errUnknownKind)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestImportRejectsUnknownKind(t *testing.T) {
	_, err := execute(t, "import", "solarwinds")
	require.ErrorIs(t, err, errUnknownKind)
}

func TestMissingConfig(t *testing.T) {
	_, err := execute(t, "dashboard", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestDashboardCommand(t *testing.T) {
	html := filepath.Join(t.TempDir(), "www", "availability.html")
	cfgPath := writeConfig(t, html)

	out, err := execute(t, "dashboard", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "up 0, latent 0, dropping 0, down 0")
	assert.FileExists(t, html)
}

func TestProbeCommandWithEmptyInventory(t *testing.T) {
	cfgPath := writeConfig(t, filepath.Join(t.TempDir(), "availability.html"))

	_, err := execute(t, "probe", "--config", cfgPath)
	require.NoError(t, err)
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer

	printSummary(&buf, &pipeline.ImportSummary{Results: []pipeline.ServerResult{
		{Kind: models.SourceDNAC, Source: "dnac-a", Host: "a", Fetched: 10, Affected: 4},
		{Kind: models.SourcePrime, Source: "pi", Host: "pi", Err: errors.New("prime source \"pi\" (pi): source unreachable")},
	}})

	out := buf.String()
	assert.Contains(t, out, "KIND")
	assert.Contains(t, out, "dnac-a")
	assert.Contains(t, out, "source unreachable")
	assert.Contains(t, out, "2 servers, 1 failed, 4 rows affected")
}
