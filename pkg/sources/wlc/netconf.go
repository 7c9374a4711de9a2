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
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	// endOfMessage frames every NETCONF 1.0 message.
	endOfMessage = "]]>]]>"

	baseNamespace  = "urn:ietf:params:xml:ns:netconf:base:1.0"
	baseCapability = "urn:ietf:params:netconf:base:1.0"

	maxMessageBytes = 256 << 20
)

var (
	errMessageTooLarge = errors.New("netconf message exceeds size limit")
	errNoBaseCap       = errors.New("server does not announce netconf base:1.0")
)

type hello struct {
	XMLName      xml.Name `xml:"hello"`
	Capabilities []string `xml:"capabilities>capability"`
	SessionID    string   `xml:"session-id"`
}

// Session is a NETCONF 1.0 session over an established transport.
type Session struct {
	r           *bufio.Reader
	w           io.Writer
	closer      io.Closer
	setDeadline func(time.Time) error
	timeout     time.Duration

	messageID    int
	ID           string
	Capabilities []string
}

// NewSession exchanges hello messages over rw. closer, when set, is closed by Close.
func NewSession(r io.Reader, w io.Writer, closer io.Closer) (*Session, error) {
	s := &Session{r: bufio.NewReaderSize(r, 64<<10), w: w, closer: closer}

	if err := s.hello(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Session) hello() error {
	msg := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>`+
		`<hello xmlns=%q><capabilities><capability>%s</capability></capabilities></hello>`,
		baseNamespace, baseCapability)

	if err := s.send(msg); err != nil {
		return err
	}

	raw, err := s.receive()
	if err != nil {
		return err
	}

	var h hello
	if err := xml.Unmarshal(raw, &h); err != nil {
		return fmt.Errorf("failed to parse server hello: %w", err)
	}

	s.ID = h.SessionID
	s.Capabilities = h.Capabilities

	for _, c := range h.Capabilities {
		if strings.TrimSpace(c) == baseCapability {
			return nil
		}
	}

	return errNoBaseCap
}

// Get runs a <get> with filter and returns the raw rpc-reply.
func (s *Session) Get(filter string) ([]byte, error) {
	return s.rpc("<get>" + filter + "</get>")
}

// Close ends the session politely and closes the transport.
func (s *Session) Close() error {
	_, rpcErr := s.rpc("<close-session/>")

	if s.closer == nil {
		return rpcErr
	}

	if err := s.closer.Close(); err != nil {
		return err
	}

	return rpcErr
}

func (s *Session) rpc(operation string) ([]byte, error) {
	s.messageID++

	if s.setDeadline != nil && s.timeout > 0 {
		if err := s.setDeadline(time.Now().Add(s.timeout)); err != nil {
			return nil, err
		}
	}

	msg := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?><rpc message-id="%d" xmlns=%q>%s</rpc>`,
		s.messageID, baseNamespace, operation)

	if err := s.send(msg); err != nil {
		return nil, err
	}

	return s.receive()
}

func (s *Session) send(msg string) error {
	if _, err := io.WriteString(s.w, msg+endOfMessage); err != nil {
		return fmt.Errorf("failed to write netconf message: %w", err)
	}

	return nil
}

// receive reads one framed message and returns it without the delimiter.
func (s *Session) receive() ([]byte, error) {
	return readMessage(s.r)
}

func readMessage(r *bufio.Reader) ([]byte, error) {
	var buf bytes.Buffer

	delim := []byte(endOfMessage)

	for {
		chunk, err := r.ReadSlice('>')
		buf.Write(chunk)

		if bytes.HasSuffix(buf.Bytes(), delim) {
			return bytes.TrimSpace(buf.Bytes()[:buf.Len()-len(delim)]), nil
		}

		if buf.Len() > maxMessageBytes {
			return nil, errMessageTooLarge
		}

		if err != nil && !errors.Is(err, bufio.ErrBufferFull) {
			return nil, fmt.Errorf("failed to read netconf message: %w", err)
		}
	}
}
