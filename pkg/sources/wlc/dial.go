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

package wlc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/carverauto/netinventory/pkg/models"
	"github.com/carverauto/netinventory/pkg/sources"
)

// DefaultPort is the IANA port for NETCONF over SSH.
const DefaultPort = 830

// Dialer opens a NETCONF session to a controller.
type Dialer interface {
	Dial(ctx context.Context, server models.ServerDescriptor) (*Session, error)
}

// SSHDialer opens NETCONF sessions over the SSH "netconf" subsystem.
// With VerifyTLS set the host key must be in KnownHostsFile.
type SSHDialer struct {
	KnownHostsFile string
}

// Dial implements Dialer.
func (d SSHDialer) Dial(ctx context.Context, server models.ServerDescriptor) (*Session, error) {
	timeout := server.Timeout.Or(sources.DefaultTimeout)
	addr := server.Address(DefaultPort)

	hostKeys, err := d.hostKeyCallback(server)
	if err != nil {
		return nil, err
	}

	conn, err := (&net.Dialer{Timeout: timeout}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, sources.Unreachable(err)
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

	_ = conn.SetDeadline(time.Now().Add(timeout))

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, &ssh.ClientConfig{
		User: server.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(server.Password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = server.Password
				}

				return answers, nil
			}),
		},
		HostKeyCallback: hostKeys,
		Timeout:         timeout,
	})
	if err != nil {
		stop()
		_ = conn.Close()

		return nil, classifyHandshake(err)
	}

	client := ssh.NewClient(sshConn, chans, reqs)

	closeAll := closerFunc(func() error {
		stop()
		return client.Close()
	})

	sess, err := client.NewSession()
	if err != nil {
		_ = closeAll.Close()
		return nil, sources.Unreachable(err)
	}

	stdin, err := sess.StdinPipe()
	if err != nil {
		_ = closeAll.Close()
		return nil, err
	}

	stdout, err := sess.StdoutPipe()
	if err != nil {
		_ = closeAll.Close()
		return nil, err
	}

	if err := sess.RequestSubsystem("netconf"); err != nil {
		_ = closeAll.Close()
		return nil, sources.Unreachable(fmt.Errorf("netconf subsystem: %w", err))
	}

	nc, err := NewSession(stdout, stdin, closeAll)
	if err != nil {
		_ = closeAll.Close()
		return nil, sources.Unreachable(err)
	}

	nc.setDeadline = conn.SetDeadline
	nc.timeout = timeout

	return nc, nil
}

func (d SSHDialer) hostKeyCallback(server models.ServerDescriptor) (ssh.HostKeyCallback, error) {
	if !server.VerifyTLS {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // operator opt-out, controllers ship self-generated keys
	}

	path := d.KnownHostsFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}

		path = filepath.Join(home, ".ssh", "known_hosts")
	}

	cb, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load known hosts %s: %w", path, err)
	}

	return cb, nil
}

// classifyHandshake separates rejected credentials from transport failures.
func classifyHandshake(err error) error {
	var keyErr *knownhosts.KeyError
	if errors.As(err, &keyErr) {
		return fmt.Errorf("%w: host key: %w", sources.ErrSourceAuth, err)
	}

	if strings.Contains(err.Error(), "unable to authenticate") {
		return fmt.Errorf("%w: %w", sources.ErrSourceAuth, err)
	}

	return sources.Unreachable(err)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
