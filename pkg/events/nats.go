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

package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/netinventory/pkg/logger"
)

const defaultTimeout = 10 * time.Second

var errMissingURL = errors.New("events enabled but no NATS url configured")

// NATSPublisher publishes CloudEvents to a JetStream stream.
type NATSPublisher struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	stream  string
	timeout time.Duration
	log     logger.Logger
	now     func() time.Time
}

// New connects according to cfg. A disabled config yields a NoopPublisher.
func New(ctx context.Context, cfg *Config, log logger.Logger) (Publisher, error) {
	if cfg == nil || !cfg.Enabled {
		return NoopPublisher{}, nil
	}

	if cfg.URL == "" {
		return nil, errMissingURL
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name("netinventory"),
		nats.Timeout(cfg.Timeout.Or(defaultTimeout)),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Warn().Err(err).Msg("NATS error")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	p, err := NewNATSPublisher(ctx, nc, cfg, log)
	if err != nil {
		nc.Close()
		return nil, err
	}

	return p, nil
}

// NewNATSPublisher uses an existing connection and makes sure the stream
// exists and captures the pipeline subjects.
func NewNATSPublisher(ctx context.Context, nc *nats.Conn, cfg *Config, log logger.Logger) (*NATSPublisher, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	stream := cfg.Stream
	if stream == "" {
		stream = DefaultStream
	}

	subjects := append([]string(nil), cfg.Subjects...)
	for _, s := range []string{SubjectImport, SubjectProbe} {
		subjects = ensureSubjectList(subjects, s)
	}

	if err := ensureStream(ctx, js, stream, subjects); err != nil {
		return nil, err
	}

	return &NATSPublisher{
		nc:      nc,
		js:      js,
		stream:  stream,
		timeout: cfg.Timeout.Or(defaultTimeout),
		log:     log,
		now:     time.Now,
	}, nil
}

func ensureStream(ctx context.Context, js jetstream.JetStream, name string, subjects []string) error {
	s, err := js.Stream(ctx, name)
	if err != nil && !isStreamMissingErr(err) {
		return fmt.Errorf("failed to look up stream %s: %w", name, err)
	}

	if err == nil {
		existing := s.CachedInfo().Config
		merged := existing.Subjects

		for _, subj := range subjects {
			merged = ensureSubjectList(merged, subj)
		}

		if len(merged) == len(existing.Subjects) {
			return nil
		}

		existing.Subjects = merged
		if _, err := js.UpdateStream(ctx, existing); err != nil {
			return fmt.Errorf("failed to update stream %s: %w", name, err)
		}

		return nil
	}

	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{Name: name, Subjects: subjects}); err != nil {
		return fmt.Errorf("failed to create stream %s: %w", name, err)
	}

	return nil
}

// PublishImport implements Publisher.
func (p *NATSPublisher) PublishImport(ctx context.Context, ev *ImportEvent) error {
	return p.publish(ctx, SubjectImport, typeImport, ev.Finished, ev)
}

// PublishProbe implements Publisher.
func (p *NATSPublisher) PublishProbe(ctx context.Context, ev *ProbeEvent) error {
	return p.publish(ctx, SubjectProbe, typeProbe, ev.At, ev)
}

func (p *NATSPublisher) publish(ctx context.Context, subject, eventType string, at time.Time, data interface{}) error {
	if at.IsZero() {
		at = p.now()
	}

	event := CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          eventSource,
		Type:            eventType,
		DataContentType: "application/json",
		Subject:         subject,
		Time:            &at,
		Data:            data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", subject, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ack, err := p.js.Publish(ctx, subject, payload, jetstream.WithMsgID(event.ID))
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", subject, err)
	}

	p.log.Debug().
		Str("subject", subject).
		Str("id", event.ID).
		Uint64("seq", ack.Sequence).
		Msg("Published event")

	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}

func isStreamMissingErr(err error) bool {
	return errors.Is(err, jetstream.ErrStreamNotFound) ||
		errors.Is(err, nats.ErrStreamNotFound) ||
		errors.Is(err, nats.ErrNoResponders)
}

// ensureSubjectList appends subject unless a pattern in subjects already covers it.
func ensureSubjectList(subjects []string, subject string) []string {
	for _, pattern := range subjects {
		if matchesSubject(pattern, subject) {
			return subjects
		}
	}

	return append(subjects, subject)
}

// matchesSubject reports whether the NATS pattern, with * and > wildcards, matches subject.
func matchesSubject(pattern, subject string) bool {
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")

	for i, tok := range pt {
		if tok == ">" {
			return len(st) > i
		}

		if i >= len(st) {
			return false
		}

		if tok != "*" && tok != st[i] {
			return false
		}
	}

	return len(pt) == len(st)
}
