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
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"github.com/carverauto/netinventory/pkg/logger"
	"github.com/carverauto/netinventory/pkg/models"
)

const (
	MethodFping = "fping"
	MethodICMP  = "icmp"

	protocolICMP   = 1
	maxPacketSize  = 1500
	identifierMask = 0xffff
)

var errUnknownMethod = errors.New("unknown probe method")

// packetConn is the subset of *icmp.PacketConn the prober uses.
type packetConn interface {
	ReadFrom(b []byte) (int, net.Addr, error)
	WriteTo(b []byte, dst net.Addr) (int, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

type listenFunc func(network, address string) (packetConn, error)

// ICMPProber sends echo requests itself instead of running fping. Without
// Privileged it uses unprivileged datagram ICMP sockets, which on Linux
// require net.ipv4.ping_group_range to cover the process group.
type ICMPProber struct {
	cfg    Config
	logger logger.Logger
	listen listenFunc
	id     int
}

var _ Prober = (*ICMPProber)(nil)

// NewICMPProber applies defaults to cfg.
func NewICMPProber(cfg Config, log logger.Logger) *ICMPProber {
	if cfg.Count <= 0 {
		cfg.Count = defaultCount
	}

	return &ICMPProber{
		cfg:    cfg,
		logger: log,
		listen: listenICMP,
		id:     os.Getpid() & identifierMask,
	}
}

// NewProber builds the prober selected by cfg.Method.
func NewProber(cfg Config, log logger.Logger) (Prober, error) {
	switch cfg.Method {
	case "", MethodFping:
		return NewFpingProber(cfg, log), nil
	case MethodICMP:
		return NewICMPProber(cfg, log), nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownMethod, cfg.Method)
	}
}

func listenICMP(network, address string) (packetConn, error) {
	conn, err := icmp.ListenPacket(network, address)
	if err != nil {
		return nil, err
	}

	return conn, nil
}

type echoKey struct {
	addr string
	seq  int
}

// burst tracks outstanding echo requests and the round trips that came back.
type burst struct {
	mu       sync.Mutex
	sent     map[echoKey]time.Time
	rtts     map[string][]float64
	expected int
	answered int
}

func newBurst(expected int) *burst {
	return &burst{
		sent:     make(map[echoKey]time.Time),
		rtts:     make(map[string][]float64),
		expected: expected,
	}
}

func (b *burst) sentAt(key echoKey, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sent[key] = at
}

// reply records a round trip. It reports whether every request of the
// burst has been answered.
func (b *burst) reply(key echoKey, at time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	sent, ok := b.sent[key]
	if !ok {
		return b.answered == b.expected
	}

	delete(b.sent, key)
	b.answered++
	b.rtts[key.addr] = append(b.rtts[key.addr], float64(at.Sub(sent))/float64(time.Millisecond))

	return b.answered == b.expected
}

func (b *burst) sample(addr string, count int) models.ProbeSample {
	b.mu.Lock()
	defer b.mu.Unlock()

	rtts := b.rtts[addr]
	s := models.ProbeSample{
		Address: addr,
		LossPct: float64(count-len(rtts)) / float64(count) * 100,
	}

	if len(rtts) == 0 {
		return s
	}

	minRTT, maxRTT, sum := rtts[0], rtts[0], 0.0

	for _, v := range rtts {
		minRTT = min(minRTT, v)
		maxRTT = max(maxRTT, v)
		sum += v
	}

	avg := sum / float64(len(rtts))
	s.Min, s.Avg, s.Max = &minRTT, &avg, &maxRTT

	return s
}

// Probe sends Count echo requests to every IPv4 address, Period apart, and
// waits Timeout after the last round for stragglers. Addresses that are not
// IPv4 literals are left out of the result.
func (p *ICMPProber) Probe(ctx context.Context, addresses []string) (map[string]models.ProbeSample, error) {
	if len(addresses) == 0 {
		return nil, ErrEmptyMonitorList
	}

	targets := make([]net.IP, 0, len(addresses))

	for _, addr := range addresses {
		ip := net.ParseIP(addr).To4()
		if ip == nil {
			p.logger.Warn().Str("address", addr).Msg("Skipping non-IPv4 address")
			continue
		}

		targets = append(targets, ip)
	}

	if len(targets) == 0 {
		return map[string]models.ProbeSample{}, nil
	}

	network := "udp4"
	if p.cfg.Privileged {
		network = "ip4:icmp"
	}

	conn, err := p.listen(network, "0.0.0.0")
	if err != nil {
		return nil, fmt.Errorf("%w: listen %s: %w", ErrProbeExecution, network, err)
	}

	defer func() { _ = conn.Close() }()

	b := newBurst(len(targets) * p.cfg.Count)
	readDone := make(chan error, 1)

	go func() { readDone <- p.receive(conn, b) }()

	if err := p.send(ctx, conn, b, targets); err != nil {
		_ = conn.SetReadDeadline(time.Now())
		<-readDone

		return nil, err
	}

	_ = conn.SetReadDeadline(time.Now().Add(p.cfg.Timeout.Or(defaultTimeout)))

	if err := <-readDone; err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProbeExecution, err)
	}

	samples := make(map[string]models.ProbeSample, len(targets))
	for _, ip := range targets {
		addr := ip.String()
		samples[addr] = b.sample(addr, p.cfg.Count)
	}

	p.logger.Debug().
		Int("targets", len(addresses)).
		Int("reported", len(samples)).
		Str("network", network).
		Msg("ICMP burst complete")

	return samples, nil
}

func (p *ICMPProber) send(ctx context.Context, conn packetConn, b *burst, targets []net.IP) error {
	period := p.cfg.Period.Or(defaultPeriod)

	for seq := 0; seq < p.cfg.Count; seq++ {
		for _, ip := range targets {
			msg := icmp.Message{
				Type: ipv4.ICMPTypeEcho,
				Body: &icmp.Echo{ID: p.id, Seq: seq, Data: []byte("netinventory")},
			}

			wire, err := msg.Marshal(nil)
			if err != nil {
				return fmt.Errorf("%w: marshal echo: %w", ErrProbeExecution, err)
			}

			b.sentAt(echoKey{addr: ip.String(), seq: seq}, time.Now())

			if _, err := conn.WriteTo(wire, p.destination(ip)); err != nil {
				p.logger.Debug().Err(err).Str("address", ip.String()).Msg("Echo request not sent")
			}
		}

		if seq == p.cfg.Count-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(period):
		}
	}

	return nil
}

func (p *ICMPProber) destination(ip net.IP) net.Addr {
	if p.cfg.Privileged {
		return &net.IPAddr{IP: ip}
	}

	return &net.UDPAddr{IP: ip}
}

// receive reads replies until the deadline passes or every request is answered.
func (p *ICMPProber) receive(conn packetConn, b *burst) error {
	buf := make([]byte, maxPacketSize)

	for {
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return nil
			}

			return err
		}

		msg, err := icmp.ParseMessage(protocolICMP, buf[:n])
		if err != nil || msg.Type != ipv4.ICMPTypeEchoReply {
			continue
		}

		echo, ok := msg.Body.(*icmp.Echo)
		if !ok {
			continue
		}

		// Raw sockets see every reply on the host. Datagram sockets get
		// their identifier rewritten by the kernel and only see their own.
		if p.cfg.Privileged && echo.ID != p.id {
			continue
		}

		if b.reply(echoKey{addr: peerIP(peer), seq: echo.Seq}, time.Now()) {
			return nil
		}
	}
}

func peerIP(addr net.Addr) string {
	switch a := addr.(type) {
	case *net.UDPAddr:
		return a.IP.String()
	case *net.IPAddr:
		return a.IP.String()
	default:
		return addr.String()
	}
}
