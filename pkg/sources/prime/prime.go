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

// Package prime reads the device inventory of Prime Infrastructure servers.
package prime

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/carverauto/netinventory/pkg/inventory"
	"github.com/carverauto/netinventory/pkg/logger"
	"github.com/carverauto/netinventory/pkg/models"
	"github.com/carverauto/netinventory/pkg/sources"
)

const (
	devicesPath = "/webacs/api/v4/data/Devices.json"

	// DefaultPageSize is the largest .maxResults the API accepts.
	DefaultPageSize = 1000
)

// DevicesDTO is the subset of a Devices entity the inventory uses.
type DevicesDTO struct {
	DeviceName      string `json:"deviceName"`
	IPAddress       string `json:"ipAddress"`
	DeviceType      string `json:"deviceType"`
	ProductFamily   string `json:"productFamily"`
	AdminStatus     string `json:"adminStatus"`
	SoftwareVersion string `json:"softwareVersion"`
	Location        string `json:"location"`
}

type devicesResponse struct {
	QueryResponse struct {
		Count  int `json:"@count"`
		First  int `json:"@first"`
		Last   int `json:"@last"`
		Entity []struct {
			DevicesDTO DevicesDTO `json:"devicesDTO"`
		} `json:"entity"`
	} `json:"queryResponse"`
}

// Source fetches Prime Infrastructure inventories.
type Source struct {
	log       logger.Logger
	pageSize  int
	newClient func(models.ServerDescriptor) sources.HTTPClient
}

// New returns a Prime Infrastructure source.
func New(log logger.Logger) *Source {
	return &Source{
		log:       log,
		pageSize:  DefaultPageSize,
		newClient: func(s models.ServerDescriptor) sources.HTTPClient { return sources.NewHTTPClient(s) },
	}
}

// Kind implements sources.Source.
func (*Source) Kind() models.SourceKind {
	return models.SourcePrime
}

// Fetch implements sources.Source.
func (s *Source) Fetch(ctx context.Context, server models.ServerDescriptor) ([]models.DeviceRecord, error) {
	devices, err := s.fetchAll(ctx, s.newClient(server), server)
	if err != nil {
		return nil, sources.Wrap(models.SourcePrime, server, err)
	}

	records, err := sources.NormalizeBatch(s.log, models.SourcePrime, server, toFields(devices))
	if err != nil {
		return nil, sources.Wrap(models.SourcePrime, server, err)
	}

	return records, nil
}

// fetchAll follows @first/@last until @count entities have been read.
func (s *Source) fetchAll(ctx context.Context, client sources.HTTPClient, server models.ServerDescriptor) ([]DevicesDTO, error) {
	var devices []DevicesDTO

	for first := 0; ; {
		resp, err := s.fetchPage(ctx, client, server, first)
		if err != nil {
			return nil, err
		}

		qr := &resp.QueryResponse
		if qr.Count == 0 {
			return nil, sources.ErrEmptyInventory
		}

		for i := range qr.Entity {
			devices = append(devices, qr.Entity[i].DevicesDTO)
		}

		s.log.Debug().
			Str("source", server.Label()).
			Int("first", qr.First).
			Int("last", qr.Last).
			Int("count", qr.Count).
			Msg("Fetched device page")

		if len(qr.Entity) == 0 || qr.Last+1 >= qr.Count {
			return devices, nil
		}

		first = qr.Last + 1
	}
}

func (s *Source) fetchPage(
	ctx context.Context, client sources.HTTPClient, server models.ServerDescriptor, first int,
) (*devicesResponse, error) {
	q := url.Values{}
	q.Set(".full", "true")
	q.Set(".firstResult", strconv.Itoa(first))
	q.Set(".maxResults", strconv.Itoa(s.pageSize))

	reqURL := fmt.Sprintf("%s%s?%s", sources.BaseURL(server), devicesPath, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	req.SetBasicAuth(server.Username, server.Password)

	var resp devicesResponse
	if err := sources.DoJSON(client, req, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

func toFields(devices []DevicesDTO) []inventory.Fields {
	fields := make([]inventory.Fields, 0, len(devices))

	for i := range devices {
		d := &devices[i]
		fields = append(fields, inventory.Fields{
			Hostname: d.DeviceName,
			Address:  d.IPAddress,
			Type:     d.DeviceType,
			Family:   d.ProductFamily,
			Status:   d.AdminStatus,
			Extensions: models.Extensions{
				SoftwareVersion: models.StringPtr(d.SoftwareVersion),
				Location:        models.StringPtr(d.Location),
			},
		})
	}

	return fields
}
