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
	"bufio"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/carverauto/netinventory/pkg/logger"
	"github.com/carverauto/netinventory/pkg/models"
	"github.com/carverauto/netinventory/pkg/sources"
)

const serverHello = `<?xml version="1.0" encoding="UTF-8"?>
<hello xmlns="urn:ietf:params:xml:ns:netconf:base:1.0">
  <capabilities>
    <capability>urn:ietf:params:netconf:base:1.0</capability>
    <capability>urn:ietf:params:netconf:base:1.1</capability>
  </capabilities>
  <session-id>42</session-id>
</hello>`

const apReply = `<?xml version="1.0" encoding="UTF-8"?>
<rpc-reply xmlns="urn:ietf:params:xml:ns:netconf:base:1.0" message-id="1">
  <data>
    <access-point-oper-data xmlns="http://cisco.com/ns/yang/Cisco-IOS-XE-wireless-access-point-oper">
      <capwap-data>
        <wtp-mac>00:11:22:33:44:50</wtp-mac>
        <ip-addr>10.20.0.11</ip-addr>
        <device-detail>
          <static-info>
            <board-data><wtp-serial-num>FGL1</wtp-serial-num></board-data>
            <ap-models><model>C9120AXI-B</model></ap-models>
          </static-info>
          <wtp-version><sw-ver><version>17</version><release>9</release><maint>4</maint></sw-ver></wtp-version>
        </device-detail>
        <ap-location><floor>0</floor><location>Lobby</location></ap-location>
      </capwap-data>
      <capwap-data>
        <wtp-mac>00:11:22:33:44:60</wtp-mac>
        <ip-addr>10.20.0.12</ip-addr>
        <device-detail>
          <static-info>
            <board-data><wtp-serial-num>FGL2</wtp-serial-num></board-data>
            <ap-models><model>C9130AXI-B</model></ap-models>
          </static-info>
        </device-detail>
      </capwap-data>
      <ap-name-mac-map>
        <wtp-name>AP-Lobby</wtp-name>
        <wtp-mac>00:11:22:33:44:50</wtp-mac>
        <eth-mac>00:11:22:33:44:ff</eth-mac>
      </ap-name-mac-map>
      <ap-name-mac-map>
        <wtp-name>AP-Orphan</wtp-name>
        <wtp-mac>00:11:22:33:44:70</wtp-mac>
        <eth-mac>00:11:22:33:44:fe</eth-mac>
      </ap-name-mac-map>
    </access-point-oper-data>
  </data>
</rpc-reply>`

const okReply = `<rpc-reply xmlns="urn:ietf:params:xml:ns:netconf:base:1.0" message-id="2"><ok/></rpc-reply>`

// serveNETCONF plays the controller side of one session: hello, one get, close-session.
// It runs off the test goroutine, so failures are reported with assert only.
func serveNETCONF(t *testing.T, r io.Reader, w io.Writer, getReply string) {
	t.Helper()

	br := bufio.NewReader(r)

	helloSent := make(chan error, 1)

	go func() {
		_, err := io.WriteString(w, serverHello+endOfMessage)
		helloSent <- err
	}()

	clientHello, err := readMessage(br)
	if !assert.NoError(t, err) || !assert.NoError(t, <-helloSent) {
		return
	}

	assert.Contains(t, string(clientHello), baseCapability)

	get, err := readMessage(br)
	if !assert.NoError(t, err) {
		return
	}

	assert.Contains(t, string(get), "<get><filter")
	assert.Contains(t, string(get), `message-id="1"`)

	if _, err = io.WriteString(w, getReply+endOfMessage); !assert.NoError(t, err) {
		return
	}

	closeMsg, err := readMessage(br)
	if err != nil {
		return
	}

	assert.Contains(t, string(closeMsg), "<close-session/>")

	_, _ = io.WriteString(w, okReply+endOfMessage)
}

type pipeDialer struct {
	t     *testing.T
	reply string
}

func (d pipeDialer) Dial(context.Context, models.ServerDescriptor) (*Session, error) {
	clientR, serverW := io.Pipe()
	serverR, clientW := io.Pipe()

	go serveNETCONF(d.t, serverR, serverW, d.reply)

	return NewSession(clientR, clientW, closerFunc(func() error {
		_ = clientW.Close()
		return clientR.Close()
	}))
}

func TestReadMessage(t *testing.T) {
	r := bufio.NewReaderSize(strings.NewReader("<a>x > y</a>"+endOfMessage+"  <b/>"+endOfMessage+"<c>"), 16)

	msg, err := readMessage(r)
	require.NoError(t, err)
	assert.Equal(t, "<a>x > y</a>", string(msg))

	msg, err = readMessage(r)
	require.NoError(t, err)
	assert.Equal(t, "<b/>", string(msg))

	_, err = readMessage(r)
	require.Error(t, err)
}

func TestParseReply(t *testing.T) {
	data, names, err := ParseReply([]byte(apReply))
	require.NoError(t, err)
	require.Len(t, data, 2)
	require.Len(t, names, 2)

	assert.Equal(t, "FGL1", data[0].Serial)
	assert.Equal(t, "C9120AXI-B", data[0].Model)
	assert.Equal(t, "17.9.4", data[0].SwVer.String())
	assert.Equal(t, "Lobby", data[0].Location)
	assert.Empty(t, data[1].SwVer.String())
	assert.Equal(t, "AP-Orphan", names[1].WtpName)
}

func TestParseReplyErrors(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{
			name: "access denied",
			raw: `<rpc-reply xmlns="urn:ietf:params:xml:ns:netconf:base:1.0"><rpc-error>` +
				`<error-type>protocol</error-type><error-tag>access-denied</error-tag>` +
				`<error-severity>error</error-severity><error-message>denied</error-message></rpc-error></rpc-reply>`,
			wantErr: sources.ErrSourceAuth,
		},
		{
			name: "operation failed",
			raw: `<rpc-reply><rpc-error><error-tag>operation-failed</error-tag>` +
				`<error-severity>error</error-severity></rpc-error></rpc-reply>`,
			wantErr: sources.ErrMalformedPayload,
		},
		{
			name:    "not xml",
			raw:     `{"json": true}`,
			wantErr: sources.ErrMalformedPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseReply([]byte(tt.raw))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCorrelate(t *testing.T) {
	data := []CapwapData{
		{WtpMAC: "aa:aa", IPAddr: "10.0.0.1", Model: "m1"},
		{WtpMAC: "bb:bb", IPAddr: "10.0.0.2"},
		{WtpMAC: "CC:CC", IPAddr: "10.0.0.3"},
		{WtpMAC: "", IPAddr: "10.0.0.4"},
	}
	names := []NameMapEntry{
		{WtpMAC: "cc:cc", WtpName: "ap-c"},
		{WtpMAC: "aa:aa", WtpName: "ap-a", EthMAC: "ee:aa"},
		{WtpMAC: "dd:dd", WtpName: "ap-d"},
		{WtpMAC: "aa:aa", WtpName: "ap-a-dup"},
		{WtpMAC: "", WtpName: "no-mac"},
	}

	aps := Correlate(data, names)

	got := make([]string, 0, len(aps))
	for _, ap := range aps {
		got = append(got, ap.Name+"@"+ap.Address)
	}

	assert.Equal(t, []string{"ap-a@10.0.0.1", "ap-a-dup@10.0.0.1", "ap-c@10.0.0.3"}, got)
	assert.Equal(t, "ee:aa", aps[0].EthMAC)
	assert.Equal(t, "m1", aps[0].Model)
	assert.Empty(t, Correlate(data, nil))
	assert.Empty(t, Correlate(nil, names))
}

func TestFetchOverPipe(t *testing.T) {
	src := NewWithDialer(logger.NewTestLogger(), pipeDialer{t: t, reply: apReply})

	records, err := src.Fetch(context.Background(), models.ServerDescriptor{Alias: "WLC-9800", Host: "192.168.1.10"})
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, models.DeviceRecord{
		Hostname:          "AP-Lobby",
		ManagementAddress: "10.20.0.11",
		DeviceType:        models.WirelessAPType,
		DeviceFamily:      "C9120AXI-B",
		SourceLabel:       "WLC-9800",
		MonitorEnabled:    true,
		Extensions: models.Extensions{
			SerialNumber:    models.StringPtr("FGL1"),
			SoftwareVersion: models.StringPtr("17.9.4"),
			Location:        models.StringPtr("Lobby"),
		},
	}, records[0])
}

func TestFetchEmptyController(t *testing.T) {
	reply := `<rpc-reply xmlns="urn:ietf:params:xml:ns:netconf:base:1.0" message-id="1"><data/></rpc-reply>`
	src := NewWithDialer(logger.NewTestLogger(), pipeDialer{t: t, reply: reply})

	_, err := src.Fetch(context.Background(), models.ServerDescriptor{Alias: "wlc", Host: "h"})
	require.ErrorIs(t, err, sources.ErrEmptyInventory)
}

// startSSHServer runs a NETCONF-over-SSH endpoint accepting user/secret.
func startSSHServer(t *testing.T) (host string, port int) {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	cfg := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == "user" && string(pass) == "secret" {
				return nil, nil
			}

			return nil, errDenied
		},
	}
	cfg.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}

			go handleSSH(t, conn, cfg)
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)

	return addr.IP.String(), addr.Port
}

var errDenied = errors.New("permission denied")

func handleSSH(t *testing.T, conn net.Conn, cfg *ssh.ServerConfig) {
	sconn, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		return
	}
	defer func() { _ = sconn.Close() }()

	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			_ = newCh.Reject(ssh.UnknownChannelType, "session only")
			continue
		}

		ch, chReqs, err := newCh.Accept()
		if err != nil {
			return
		}

		go func() {
			for req := range chReqs {
				ok := req.Type == "subsystem" && strings.HasSuffix(string(req.Payload), "netconf")
				_ = req.Reply(ok, nil)

				if ok {
					go func() {
						serveNETCONF(t, ch, ch, apReply)
						_ = ch.Close()
					}()
				}
			}
		}()
	}
}

func TestSSHDialer(t *testing.T) {
	host, port := startSSHServer(t)

	t.Run("fetches access points", func(t *testing.T) {
		src := New(logger.NewTestLogger())

		records, err := src.Fetch(context.Background(), models.ServerDescriptor{
			Alias: "wlc", Host: host, Port: port, Username: "user", Password: "secret",
		})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "AP-Lobby", records[0].Hostname)
	})

	t.Run("bad password is an auth failure", func(t *testing.T) {
		_, err := New(logger.NewTestLogger()).Fetch(context.Background(), models.ServerDescriptor{
			Host: host, Port: port, Username: "user", Password: "wrong",
		})
		require.ErrorIs(t, err, sources.ErrSourceAuth)
	})

	t.Run("closed port is unreachable", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)

		closedPort := ln.Addr().(*net.TCPAddr).Port
		require.NoError(t, ln.Close())

		_, err = New(logger.NewTestLogger()).Fetch(context.Background(), models.ServerDescriptor{
			Host: "127.0.0.1", Port: closedPort, Username: "user", Password: "secret",
		})
		require.ErrorIs(t, err, sources.ErrSourceUnreachable)
	})
}

func TestServerAddress(t *testing.T) {
	assert.Equal(t, "10.0.0.5:"+strconv.Itoa(DefaultPort), models.ServerDescriptor{Host: "10.0.0.5"}.Address(DefaultPort))
}
