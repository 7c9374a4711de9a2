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
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netinventory/pkg/logger"
)

func runJetStreamServer(t *testing.T) *server.Server {
	t.Helper()

	srv, err := server.NewServer(&server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
	})
	require.NoError(t, err)

	go srv.Start()

	if !srv.ReadyForConnections(10 * time.Second) {
		srv.Shutdown()
		t.Fatalf("embedded NATS server not ready for connections")
	}

	t.Cleanup(srv.Shutdown)

	return srv
}

func TestNATSPublisher(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	srv := runJetStreamServer(t)

	pub, err := New(ctx, &Config{Enabled: true, URL: srv.ClientURL()}, logger.NewTestLogger())
	require.NoError(t, err)
	defer pub.Close()

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, pub.PublishProbe(ctx, &ProbeEvent{
		RunID: "run-1", At: at, Probed: 3, Up: 2, Down: 1, WentDown: []string{"10.0.0.3"},
	}))
	require.NoError(t, pub.PublishImport(ctx, &ImportEvent{
		RunID: "run-1", Finished: at, Affected: 4,
		Servers: []ServerResult{{Kind: "dnac", Source: "dnac1", Host: "dnac1", Fetched: 4, Affected: 4}},
	}))

	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	cons, err := js.CreateOrUpdateConsumer(ctx, DefaultStream, jetstream.ConsumerConfig{
		FilterSubject: SubjectProbe,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	require.NoError(t, err)

	msg, err := cons.Next(jetstream.FetchMaxWait(5 * time.Second))
	require.NoError(t, err)
	require.NoError(t, msg.Ack())

	var ev struct {
		CloudEvent
		Data ProbeEvent `json:"data"`
	}
	require.NoError(t, json.Unmarshal(msg.Data(), &ev))

	assert.Equal(t, "1.0", ev.SpecVersion)
	assert.Equal(t, SubjectProbe, ev.Subject)
	assert.Equal(t, typeProbe, ev.Type)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, []string{"10.0.0.3"}, ev.Data.WentDown)
	assert.Equal(t, 1, ev.Data.Down)

	info, err := js.Stream(ctx, DefaultStream)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), info.CachedInfo().State.Msgs)
}

func TestEnsureStreamExtendsSubjects(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	srv := runJetStreamServer(t)

	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{Name: "OPS", Subjects: []string{"ops.audit"}})
	require.NoError(t, err)

	_, err = NewNATSPublisher(ctx, nc, &Config{Stream: "OPS"}, logger.NewTestLogger())
	require.NoError(t, err)

	s, err := js.Stream(ctx, "OPS")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ops.audit", SubjectImport, SubjectProbe}, s.CachedInfo().Config.Subjects)
}

func TestNewDisabled(t *testing.T) {
	pub, err := New(context.Background(), &Config{}, logger.NewTestLogger())
	require.NoError(t, err)
	assert.IsType(t, NoopPublisher{}, pub)
	require.NoError(t, pub.PublishImport(context.Background(), &ImportEvent{}))

	_, err = New(context.Background(), &Config{Enabled: true}, logger.NewTestLogger())
	require.ErrorIs(t, err, errMissingURL)
}

func TestMatchesSubject(t *testing.T) {
	tests := []struct {
		pattern  string
		subject  string
		expected bool
	}{
		{"netinventory.import.completed", "netinventory.import.completed", true},
		{"netinventory.*.completed", "netinventory.probe.completed", true},
		{"netinventory.>", "netinventory.probe.completed", true},
		{"netinventory.>", "netinventory", false},
		{"netinventory.*", "netinventory.probe.completed", false},
		{"ops.*", "netinventory.probe", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"~"+tt.subject, func(t *testing.T) {
			assert.Equal(t, tt.expected, matchesSubject(tt.pattern, tt.subject))
		})
	}
}

func TestEnsureSubjectList(t *testing.T) {
	assert.Equal(t, []string{"netinventory.>"}, ensureSubjectList([]string{"netinventory.>"}, SubjectProbe))
	assert.Equal(t, []string{"ops.*", SubjectProbe}, ensureSubjectList([]string{"ops.*"}, SubjectProbe))
}

func TestIsStreamMissingErr(t *testing.T) {
	assert.True(t, isStreamMissingErr(jetstream.ErrStreamNotFound))
	assert.True(t, isStreamMissingErr(nats.ErrNoResponders))
	assert.False(t, isStreamMissingErr(errors.New("other")))
}
