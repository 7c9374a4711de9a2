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

// Package events publishes pipeline results as CloudEvents on NATS JetStream.
package events

import (
	"context"
	"time"

	"github.com/carverauto/netinventory/pkg/models"
)

const (
	// DefaultStream holds every event the pipeline publishes.
	DefaultStream = "NETINVENTORY"

	SubjectImport = "netinventory.import.completed"
	SubjectProbe  = "netinventory.probe.completed"

	eventSource = "netinventory/pipeline"
	typeImport  = "com.carverauto.netinventory.import.completed"
	typeProbe   = "com.carverauto.netinventory.probe.completed"
)

// Config selects the NATS server and stream. Events are off unless Enabled.
type Config struct {
	Enabled  bool            `json:"enabled" yaml:"enabled"`
	URL      string          `json:"url" yaml:"url"`
	Stream   string          `json:"stream" yaml:"stream"`
	Subjects []string        `json:"subjects" yaml:"subjects"`
	Timeout  models.Duration `json:"timeout" yaml:"timeout"`
}

// CloudEvent is the CloudEvents 1.0 JSON envelope.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	ID              string      `json:"id"`
	Source          string      `json:"source"`
	Type            string      `json:"type"`
	DataContentType string      `json:"datacontenttype"`
	Subject         string      `json:"subject"`
	Time            *time.Time  `json:"time,omitempty"`
	Data            interface{} `json:"data"`
}

// ServerResult is the outcome of one server's import.
type ServerResult struct {
	Kind     string `json:"kind"`
	Source   string `json:"source"`
	Host     string `json:"host"`
	Fetched  int    `json:"fetched"`
	Affected int64  `json:"affected"`
	Error    string `json:"error,omitempty"`
}

// ImportEvent summarizes one import run.
type ImportEvent struct {
	RunID     string         `json:"run_id"`
	Started   time.Time      `json:"started"`
	Finished  time.Time      `json:"finished"`
	Servers   []ServerResult `json:"servers"`
	Failed    int            `json:"failed"`
	Affected  int64          `json:"affected"`
	Aborted   bool           `json:"aborted"`
	AbortText string         `json:"abort_error,omitempty"`
}

// ProbeEvent summarizes one probe cycle.
type ProbeEvent struct {
	RunID    string    `json:"run_id"`
	At       time.Time `json:"at"`
	Probed   int       `json:"probed"`
	Up       int       `json:"up"`
	Down     int       `json:"down"`
	Rejected int       `json:"rejected"`
	WentDown []string  `json:"went_down,omitempty"`
}

// Publisher sends pipeline events.
type Publisher interface {
	PublishImport(ctx context.Context, ev *ImportEvent) error
	PublishProbe(ctx context.Context, ev *ProbeEvent) error
	Close()
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

// PublishImport implements Publisher.
func (NoopPublisher) PublishImport(context.Context, *ImportEvent) error { return nil }

// PublishProbe implements Publisher.
func (NoopPublisher) PublishProbe(context.Context, *ProbeEvent) error { return nil }

// Close implements Publisher.
func (NoopPublisher) Close() {}
