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

// Package dnac reads the network device inventory of DNA Center servers.
package dnac

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/carverauto/netinventory/pkg/inventory"
	"github.com/carverauto/netinventory/pkg/logger"
	"github.com/carverauto/netinventory/pkg/models"
	"github.com/carverauto/netinventory/pkg/sources"
)

const (
	tokenPath  = "/dna/system/api/v1/auth/token"
	devicePath = "/dna/intent/api/v1/network-device"

	// DefaultPageSize is the largest page the device endpoint returns.
	DefaultPageSize = 500

	// DefaultMaxPages bounds one fetch at two million devices.
	DefaultMaxPages = 4000

	// tokens are valid for an hour
	tokenTTL = 45 * time.Minute
)

var (
	errNoToken       = errors.New("token response carried no token")
	errTokenRejected = errors.New("token rejected")
	errPageLimit     = errors.New("device listing exceeded the page limit")
)

type tokenResponse struct {
	Token string `json:"Token"`
}

type deviceResponse struct {
	Response []Device `json:"response"`
}

// Device is the subset of a network-device entry the inventory uses.
type Device struct {
	Hostname            string `json:"hostname"`
	ManagementIPAddress string `json:"managementIpAddress"`
	Type                string `json:"type"`
	Family              string `json:"family"`
	CollectionStatus    string `json:"collectionStatus"`
	SerialNumber        string `json:"serialNumber"`
	SoftwareVersion     string `json:"softwareVersion"`
	SNMPLocation        string `json:"snmpLocation"`
}

type session struct {
	client sources.HTTPClient
	tokens *sources.CachedTokenProvider
}

// Source fetches DNA Center inventories. Sessions, and so tokens, are kept per server.
type Source struct {
	log       logger.Logger
	pageSize  int
	maxPages  int
	newClient func(models.ServerDescriptor) sources.HTTPClient

	mu       sync.Mutex
	sessions map[string]*session
}

// New returns a DNA Center source.
func New(log logger.Logger) *Source {
	return &Source{
		log:       log,
		pageSize:  DefaultPageSize,
		maxPages:  DefaultMaxPages,
		newClient: func(s models.ServerDescriptor) sources.HTTPClient { return sources.NewHTTPClient(s) },
		sessions:  make(map[string]*session),
	}
}

// Kind implements sources.Source.
func (*Source) Kind() models.SourceKind {
	return models.SourceDNAC
}

// Fetch implements sources.Source. A token rejected while paging is refreshed once.
func (s *Source) Fetch(ctx context.Context, server models.ServerDescriptor) ([]models.DeviceRecord, error) {
	sess := s.session(server)

	devices, err := s.fetchWithToken(ctx, server, sess)
	if errors.Is(err, errTokenRejected) {
		s.log.Info().Str("source", server.Label()).Msg("Token rejected, re-authenticating")
		sess.tokens.InvalidateToken()

		devices, err = s.fetchWithToken(ctx, server, sess)
	}

	if err != nil {
		return nil, sources.Wrap(models.SourceDNAC, server, err)
	}

	records, err := sources.NormalizeBatch(s.log, models.SourceDNAC, server, toFields(devices))
	if err != nil {
		return nil, sources.Wrap(models.SourceDNAC, server, err)
	}

	return records, nil
}

func (s *Source) fetchWithToken(ctx context.Context, server models.ServerDescriptor, sess *session) ([]Device, error) {
	token, err := sess.tokens.GetAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	devices, err := s.fetchAll(ctx, server, sess.client, token)
	if errors.Is(err, sources.ErrSourceAuth) {
		return nil, fmt.Errorf("%w: %w", errTokenRejected, err)
	}

	return devices, err
}

func (s *Source) session(server models.ServerDescriptor) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sources.BaseURL(server) + "|" + server.Username
	if sess, ok := s.sessions[key]; ok {
		return sess
	}

	client := s.newClient(server)
	sess := &session{client: client}
	sess.tokens = sources.NewCachedTokenProvider(sources.TokenProviderFunc(func(ctx context.Context) (string, error) {
		return authenticate(ctx, client, server)
	}), tokenTTL)

	s.sessions[key] = sess

	return sess
}

func authenticate(ctx context.Context, client sources.HTTPClient, server models.ServerDescriptor) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sources.BaseURL(server)+tokenPath, http.NoBody)
	if err != nil {
		return "", err
	}

	req.SetBasicAuth(server.Username, server.Password)
	req.Header.Set("Content-Type", "application/json")

	var resp tokenResponse
	if err := sources.DoJSON(client, req, &resp); err != nil {
		return "", err
	}

	if resp.Token == "" {
		return "", sources.Malformed(errNoToken)
	}

	return resp.Token, nil
}

// fetchAll pages through the device list until a short or repeated page.
func (s *Source) fetchAll(
	ctx context.Context, server models.ServerDescriptor, client sources.HTTPClient, token string,
) ([]Device, error) {
	var (
		devices         []Device
		firstOfPrevious string
	)

	// offsets are 1-based
	for n, offset := 0, 1; ; n, offset = n+1, offset+s.pageSize {
		if n == s.maxPages {
			return nil, sources.Malformed(fmt.Errorf("%w: %d pages of %d", errPageLimit, n, s.pageSize))
		}

		page, err := s.fetchPage(ctx, server, client, token, offset)
		if err != nil {
			return nil, err
		}

		// A server that ignores offset keeps answering with the first page.
		if len(page) > 0 && n > 0 && page[0].ManagementIPAddress == firstOfPrevious {
			s.log.Warn().
				Str("source", server.Label()).
				Int("offset", offset).
				Msg("Device page repeated; stopping pagination")

			return devices, nil
		}

		devices = append(devices, page...)

		s.log.Debug().
			Str("source", server.Label()).
			Int("offset", offset).
			Int("page", len(page)).
			Int("total", len(devices)).
			Msg("Fetched device page")

		if len(page) < s.pageSize {
			return devices, nil
		}

		firstOfPrevious = page[0].ManagementIPAddress
	}
}

func (s *Source) fetchPage(
	ctx context.Context, server models.ServerDescriptor, client sources.HTTPClient, token string, offset int,
) ([]Device, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(s.pageSize))

	reqURL := fmt.Sprintf("%s%s?%s", sources.BaseURL(server), devicePath, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("X-Auth-Token", token)

	var resp deviceResponse
	if err := sources.DoJSON(client, req, &resp); err != nil {
		return nil, err
	}

	return resp.Response, nil
}

func toFields(devices []Device) []inventory.Fields {
	fields := make([]inventory.Fields, 0, len(devices))

	for i := range devices {
		d := &devices[i]
		fields = append(fields, inventory.Fields{
			Hostname: d.Hostname,
			Address:  d.ManagementIPAddress,
			Type:     d.Type,
			Family:   d.Family,
			Status:   d.CollectionStatus,
			Extensions: models.Extensions{
				SerialNumber:    models.StringPtr(d.SerialNumber),
				SoftwareVersion: models.StringPtr(d.SoftwareVersion),
				Location:        models.StringPtr(d.SNMPLocation),
			},
		})
	}

	return fields
}
