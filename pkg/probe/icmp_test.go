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

package probe

import (
	"context"
	"errors"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"github.com/carverauto/netinventory/pkg/logger"
	"github.com/carverauto/netinventory/pkg/models"
)

type packet struct {
	data []byte
	from net.Addr
}

// echoConn answers echo requests in process according to answer.
type echoConn struct {
	mu       sync.Mutex
	answer   func(ip string, seq int) bool
	replies  chan packet
	deadline time.Time
	network  string
	writes   int
}

func newEchoConn(answer func(ip string, seq int) bool) *echoConn {
	return &echoConn{answer: answer, replies: make(chan packet, 128)}
}

func (c *echoConn) inject(t *testing.T, from net.Addr, id, seq int) {
	t.Helper()

	msg := icmp.Message{Type: ipv4.ICMPTypeEchoReply, Body: &icmp.Echo{ID: id, Seq: seq}}
	wire, err := msg.Marshal(nil)
	require.NoError(t, err)

	c.replies <- packet{data: wire, from: from}
}

func (c *echoConn) WriteTo(b []byte, dst net.Addr) (int, error) {
	msg, err := icmp.ParseMessage(protocolICMP, b)
	if err != nil {
		return 0, err
	}

	echo, ok := msg.Body.(*icmp.Echo)
	if !ok {
		return 0, errors.New("not an echo request")
	}

	c.mu.Lock()
	c.writes++
	c.mu.Unlock()

	if !c.answer(peerIP(dst), echo.Seq) {
		return len(b), nil
	}

	reply := icmp.Message{Type: ipv4.ICMPTypeEchoReply, Body: &icmp.Echo{ID: echo.ID, Seq: echo.Seq, Data: echo.Data}}

	wire, err := reply.Marshal(nil)
	if err != nil {
		return 0, err
	}

	c.replies <- packet{data: wire, from: dst}

	return len(b), nil
}

func (c *echoConn) ReadFrom(b []byte) (int, net.Addr, error) {
	for {
		select {
		case p := <-c.replies:
			return copy(b, p.data), p.from, nil
		case <-time.After(time.Millisecond):
			c.mu.Lock()
			d := c.deadline
			c.mu.Unlock()

			if !d.IsZero() && time.Now().After(d) {
				return 0, nil, os.ErrDeadlineExceeded
			}
		}
	}
}

func (c *echoConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.deadline = t

	return nil
}

func (*echoConn) Close() error { return nil }

func icmpProber(cfg Config, conn *echoConn) *ICMPProber {
	p := NewICMPProber(cfg, logger.NewTestLogger())
	p.listen = func(network, _ string) (packetConn, error) {
		conn.network = network
		return conn, nil
	}

	return p
}

func fastConfig() Config {
	return Config{
		Method:  MethodICMP,
		Count:   3,
		Period:  models.Duration(time.Millisecond),
		Timeout: models.Duration(50 * time.Millisecond),
	}
}

func TestICMPProberProbe(t *testing.T) {
	conn := newEchoConn(func(ip string, seq int) bool {
		switch ip {
		case "10.0.0.1":
			return true
		case "10.0.0.3":
			return seq == 0
		default:
			return false
		}
	})

	p := icmpProber(fastConfig(), conn)

	samples, err := p.Probe(context.Background(), []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "fe80::1", "core-1"})
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.Equal(t, "udp4", conn.network)
	assert.Equal(t, 9, conn.writes)

	up := samples["10.0.0.1"]
	assert.InDelta(t, 0, up.LossPct, 0)
	require.NotNil(t, up.Avg)
	require.NotNil(t, up.Min)
	require.NotNil(t, up.Max)
	assert.LessOrEqual(t, *up.Min, *up.Avg)
	assert.LessOrEqual(t, *up.Avg, *up.Max)

	down := samples["10.0.0.2"]
	assert.InDelta(t, 100, down.LossPct, 0)
	assert.Nil(t, down.Avg)
	require.NoError(t, Validate(&down))

	assert.InDelta(t, 66.67, samples["10.0.0.3"].LossPct, 0.01)
}

func TestICMPProberStopsWhenAllAnswered(t *testing.T) {
	cfg := fastConfig()
	cfg.Timeout = models.Duration(10 * time.Second)

	p := icmpProber(cfg, newEchoConn(func(string, int) bool { return true }))

	start := time.Now()
	samples, err := p.Probe(context.Background(), []string{"10.0.0.1", "10.0.0.2"})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.InDelta(t, 0, samples["10.0.0.2"].LossPct, 0)
}

func TestICMPProberPrivilegedIgnoresForeignReplies(t *testing.T) {
	cfg := fastConfig()
	cfg.Privileged = true

	conn := newEchoConn(func(string, int) bool { return false })
	p := icmpProber(cfg, conn)
	conn.inject(t, &net.IPAddr{IP: net.ParseIP("10.0.0.1")}, (p.id+1)&identifierMask, 0)

	samples, err := p.Probe(context.Background(), []string{"10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, "ip4:icmp", conn.network)
	assert.InDelta(t, 100, samples["10.0.0.1"].LossPct, 0)
}

func TestICMPProberFailures(t *testing.T) {
	t.Run("listen", func(t *testing.T) {
		p := NewICMPProber(fastConfig(), logger.NewTestLogger())
		p.listen = func(string, string) (packetConn, error) {
			return nil, errors.New("socket: operation not permitted")
		}

		_, err := p.Probe(context.Background(), []string{"10.0.0.1"})
		require.ErrorIs(t, err, ErrProbeExecution)
	})

	t.Run("canceled", func(t *testing.T) {
		cfg := fastConfig()
		cfg.Period = models.Duration(time.Minute)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := icmpProber(cfg, newEchoConn(func(string, int) bool { return false })).Probe(ctx, []string{"10.0.0.1"})
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := NewICMPProber(fastConfig(), logger.NewTestLogger()).Probe(context.Background(), nil)
		require.ErrorIs(t, err, ErrEmptyMonitorList)
	})

	t.Run("no ipv4 targets", func(t *testing.T) {
		samples, err := NewICMPProber(fastConfig(), logger.NewTestLogger()).Probe(context.Background(), []string{"::1"})
		require.NoError(t, err)
		assert.Empty(t, samples)
	})
}

func TestNewProber(t *testing.T) {
	tests := []struct {
		method  string
		want    Prober
		wantErr bool
	}{
		{method: "", want: &FpingProber{}},
		{method: MethodFping, want: &FpingProber{}},
		{method: MethodICMP, want: &ICMPProber{}},
		{method: "arping", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			p, err := NewProber(Config{Method: tt.method}, logger.NewTestLogger())
			if tt.wantErr {
				require.ErrorIs(t, err, errUnknownMethod)
				return
			}

			require.NoError(t, err)
			assert.IsType(t, tt.want, p)
		})
	}
}

func TestBurstReply(t *testing.T) {
	at := time.Now()
	b := newBurst(2)
	b.sentAt(echoKey{addr: "10.0.0.1", seq: 0}, at)
	b.sentAt(echoKey{addr: "10.0.0.1", seq: 1}, at)

	assert.False(t, b.reply(echoKey{addr: "10.0.0.9", seq: 0}, at), "unknown reply")
	assert.False(t, b.reply(echoKey{addr: "10.0.0.1", seq: 0}, at.Add(2*time.Millisecond)))
	assert.False(t, b.reply(echoKey{addr: "10.0.0.1", seq: 0}, at), "duplicate reply")
	assert.True(t, b.reply(echoKey{addr: "10.0.0.1", seq: 1}, at.Add(4*time.Millisecond)))

	s := b.sample("10.0.0.1", 2)
	assert.InDelta(t, 0, s.LossPct, 0)
	require.NotNil(t, s.Avg)
	assert.InDelta(t, 3, *s.Avg, 0.001)
}
