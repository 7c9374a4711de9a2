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

// Package dashboard renders availability reports as an auto-refreshing HTML
// page and as a node-exporter textfile.
package dashboard

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/carverauto/netinventory/pkg/models"
)

//go:embed templates/availability.html.tmpl
var templates embed.FS

const (
	DefaultRefreshInterval = 300 * time.Second
	DefaultCellsPerRow     = 10
	DefaultThresholdMs     = 100
	DefaultTitle           = "Availability Dashboard"

	generatedLayout = "15:04:05 01-02-2006"
)

// Config places the dashboard and its optional textfile.
type Config struct {
	Path               string          `json:"path" yaml:"path"`
	TextfilePath       string          `json:"textfile_path" yaml:"textfile_path"`
	Title              string          `json:"title" yaml:"title"`
	RefreshInterval    models.Duration `json:"refresh_interval" yaml:"refresh_interval"`
	CellsPerRow        int             `json:"cells_per_row" yaml:"cells_per_row"`
	LatencyThresholdMs float64         `json:"latency_threshold_ms" yaml:"latency_threshold_ms"`
}

// Threshold is the latency threshold in milliseconds.
func (c *Config) Threshold() float64 {
	if c.LatencyThresholdMs <= 0 {
		return DefaultThresholdMs
	}

	return c.LatencyThresholdMs
}

type cell struct {
	Class    string
	Hostname string
	Address  string
	Detail   string
}

type page struct {
	Title          string
	RefreshSeconds int
	CellsPerRow    int
	Generated      string
	Counts         models.BucketCounts
	Rows           [][]cell
}

// Renderer turns reports into HTML.
type Renderer struct {
	tmpl        *template.Template
	title       string
	refresh     time.Duration
	cellsPerRow int
}

// NewRenderer parses the embedded template with cfg applied.
func NewRenderer(cfg *Config) (*Renderer, error) {
	tmpl, err := template.ParseFS(templates, "templates/availability.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse dashboard template: %w", err)
	}

	r := &Renderer{
		tmpl:        tmpl,
		title:       cfg.Title,
		refresh:     cfg.RefreshInterval.Or(DefaultRefreshInterval),
		cellsPerRow: cfg.CellsPerRow,
	}

	if r.title == "" {
		r.title = DefaultTitle
	}

	if r.cellsPerRow <= 0 {
		r.cellsPerRow = DefaultCellsPerRow
	}

	return r, nil
}

// Render writes the page for report to w.
func (r *Renderer) Render(w io.Writer, report *models.AvailabilityReport) error {
	p := page{
		Title:          r.title,
		RefreshSeconds: int(r.refresh / time.Second),
		CellsPerRow:    r.cellsPerRow,
		Generated:      report.GeneratedAt.Format(generatedLayout),
		Counts:         report.Counts,
	}

	var row []cell

	for i := range report.Devices {
		row = append(row, toCell(&report.Devices[i]))

		if len(row) == r.cellsPerRow {
			p.Rows = append(p.Rows, row)
			row = nil
		}
	}

	if len(row) > 0 {
		p.Rows = append(p.Rows, row)
	}

	return r.tmpl.Execute(w, p)
}

// WriteFile renders report to path atomically, creating parent directories.
func (r *Renderer) WriteFile(path string, report *models.AvailabilityReport) error {
	var buf bytes.Buffer
	if err := r.Render(&buf, report); err != nil {
		return err
	}

	return writeAtomic(path, buf.Bytes())
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}

	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}

	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

func toCell(d *models.DeviceStatus) cell {
	c := cell{Hostname: d.Hostname, Address: d.ManagementAddress}
	if c.Hostname == "" {
		c.Hostname = d.ManagementAddress
	}

	pct := formatFloat(d.ReachablePct) + "%"

	switch d.Bucket {
	case models.BucketDown:
		c.Class = "down"

		since := "never"
		if d.LastUp != nil {
			since = d.LastUp.Format(time.DateTime)
		}

		c.Detail = fmt.Sprintf("%s / Downcount %d / Downsince %s", pct, d.DownStreak, since)

		return c
	case models.BucketDropping:
		c.Class = "dropped"
	case models.BucketLatent:
		c.Class = "latent"
	default:
		c.Class = "good"
	}

	c.Detail = fmt.Sprintf("%s / avg %s ms / max %s ms", pct, formatLatency(d.AvgLatency), formatLatency(d.MaxLatency))

	return c
}

func formatLatency(v *float64) string {
	if v == nil {
		return "-"
	}

	return formatFloat(*v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
