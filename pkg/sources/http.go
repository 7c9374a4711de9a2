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

package sources

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/netinventory/pkg/models"
)

//go:generate mockgen -destination=mock_sources.go -package=sources github.com/carverauto/netinventory/pkg/sources HTTPClient,TokenProvider

const (
	// DefaultTimeout bounds connect and response time when a server sets none.
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 64 << 20
	maxErrorSnippet  = 256
)

// HTTPClient defines the interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewHTTPClient builds a client for server honoring its timeout and TLS verification flag.
func NewHTTPClient(server models.ServerDescriptor) *http.Client {
	timeout := server.Timeout.Or(DefaultTimeout)

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: timeout}).DialContext
	transport.TLSHandshakeTimeout = timeout
	transport.ResponseHeaderTimeout = timeout
	transport.TLSClientConfig = &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: !server.VerifyTLS, //nolint:gosec // operator opt-out for self-signed controllers
	}

	return &http.Client{Timeout: timeout, Transport: transport}
}

// BaseURL is https://host[:port]. A host that already carries a scheme is used as is.
func BaseURL(server models.ServerDescriptor) string {
	if strings.Contains(server.Host, "://") {
		return strings.TrimRight(server.Host, "/")
	}

	host := server.Host
	if server.Port != 0 {
		host = net.JoinHostPort(server.Host, strconv.Itoa(server.Port))
	}

	return "https://" + host
}

// DoJSON sends req and decodes a successful JSON body into out. Transport
// errors are ErrSourceUnreachable, 401 and 403 are ErrSourceAuth, other
// non-2xx statuses are ErrSourceUnreachable and decode failures are
// ErrMalformedPayload.
func DoJSON(client HTTPClient, req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return Unreachable(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Unreachable(fmt.Errorf("failed to read response body: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s %s returned %d", ErrSourceAuth, req.Method, req.URL.Path, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: %w: %d from %s: %s",
			ErrSourceUnreachable, ErrUnexpectedStatus, resp.StatusCode, req.URL.Path, snippet(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return Malformed(fmt.Errorf("failed to parse response from %s: %w", req.URL.Path, err))
	}

	return nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorSnippet {
		return s[:maxErrorSnippet] + "..."
	}

	return s
}
