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

// Package apic reads the fabric node inventory of ACI APIC controllers.
package apic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/carverauto/netinventory/pkg/inventory"
	"github.com/carverauto/netinventory/pkg/logger"
	"github.com/carverauto/netinventory/pkg/models"
	"github.com/carverauto/netinventory/pkg/sources"
)

const (
	loginPath     = "/api/aaaLogin.json"
	topSystemPath = "/api/class/topSystem.json"
	cookieName    = "APIC-cookie"

	authFailureText = "FAILED local authentication"
)

var (
	errLoginRejected = errors.New("login rejected")
	errNoToken       = errors.New("login response carried no token")
)

type attributes struct {
	Code  string `json:"code"`
	Text  string `json:"text"`
	Token string `json:"token"`
}

type loginRequest struct {
	AAAUser struct {
		Attributes struct {
			Name string `json:"name"`
			Pwd  string `json:"pwd"`
		} `json:"attributes"`
	} `json:"aaaUser"`
}

type loginResponse struct {
	Imdata []struct {
		AAALogin *struct {
			Attributes attributes `json:"attributes"`
		} `json:"aaaLogin"`
		Error *struct {
			Attributes attributes `json:"attributes"`
		} `json:"error"`
	} `json:"imdata"`
}

// TopSystem holds the attributes of one fabric node.
type TopSystem struct {
	Name         string `json:"name"`
	OOBMgmtAddr  string `json:"oobMgmtAddr"`
	Role         string `json:"role"`
	FabricDomain string `json:"fabricDomain"`
	FabricID     string `json:"fabricId"`
	State        string `json:"state"`
	Serial       string `json:"serial"`
	Version      string `json:"version"`
}

type topSystemResponse struct {
	TotalCount string `json:"totalCount"`
	Imdata     []struct {
		TopSystem struct {
			Attributes TopSystem `json:"attributes"`
		} `json:"topSystem"`
	} `json:"imdata"`
}

// Source fetches APIC inventories.
type Source struct {
	log       logger.Logger
	newClient func(models.ServerDescriptor) sources.HTTPClient
}

// New returns an APIC source.
func New(log logger.Logger) *Source {
	return &Source{
		log:       log,
		newClient: func(s models.ServerDescriptor) sources.HTTPClient { return sources.NewHTTPClient(s) },
	}
}

// Kind implements sources.Source.
func (*Source) Kind() models.SourceKind {
	return models.SourceAPIC
}

// Fetch implements sources.Source.
func (s *Source) Fetch(ctx context.Context, server models.ServerDescriptor) ([]models.DeviceRecord, error) {
	client := s.newClient(server)

	token, err := login(ctx, client, server)
	if err != nil {
		return nil, sources.Wrap(models.SourceAPIC, server, err)
	}

	nodes, err := topSystems(ctx, client, server, token)
	if err != nil {
		return nil, sources.Wrap(models.SourceAPIC, server, err)
	}

	records, err := sources.NormalizeBatch(s.log, models.SourceAPIC, server, toFields(nodes))
	if err != nil {
		return nil, sources.Wrap(models.SourceAPIC, server, err)
	}

	return records, nil
}

func login(ctx context.Context, client sources.HTTPClient, server models.ServerDescriptor) (string, error) {
	var body loginRequest
	body.AAAUser.Attributes.Name = server.Username
	body.AAAUser.Attributes.Pwd = server.Password

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sources.BaseURL(server)+loginPath, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")

	var resp loginResponse
	if err := sources.DoJSON(client, req, &resp); err != nil {
		return "", err
	}

	return tokenFrom(&resp)
}

// tokenFrom reads the login token. APIC reports a bad password in the body,
// sometimes with a 200 status.
func tokenFrom(resp *loginResponse) (string, error) {
	if len(resp.Imdata) == 0 {
		return "", sources.Malformed(errNoToken)
	}

	first := resp.Imdata[0]

	if first.Error != nil {
		text := first.Error.Attributes.Text
		if strings.Contains(text, authFailureText) {
			return "", fmt.Errorf("%w: %s", sources.ErrSourceAuth, text)
		}

		return "", fmt.Errorf("%w: %w: %s", sources.ErrSourceUnreachable, errLoginRejected, text)
	}

	if first.AAALogin == nil || first.AAALogin.Attributes.Token == "" {
		return "", sources.Malformed(errNoToken)
	}

	return first.AAALogin.Attributes.Token, nil
}

func topSystems(
	ctx context.Context, client sources.HTTPClient, server models.ServerDescriptor, token string,
) ([]TopSystem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sources.BaseURL(server)+topSystemPath, http.NoBody)
	if err != nil {
		return nil, err
	}

	req.AddCookie(&http.Cookie{Name: cookieName, Value: token})

	var resp topSystemResponse
	if err := sources.DoJSON(client, req, &resp); err != nil {
		return nil, err
	}

	nodes := make([]TopSystem, 0, len(resp.Imdata))
	for _, item := range resp.Imdata {
		nodes = append(nodes, item.TopSystem.Attributes)
	}

	return nodes, nil
}

// Hostname qualifies a node name with its fabric: "<domain>"-<id>--<name>.
func Hostname(node *TopSystem) string {
	return fmt.Sprintf(`"%s"-%s--%s`, orUnknown(node.FabricDomain), orUnknown(node.FabricID), node.Name)
}

func orUnknown(s string) string {
	if s == "" {
		return models.Unknown
	}

	return s
}

func toFields(nodes []TopSystem) []inventory.Fields {
	fields := make([]inventory.Fields, 0, len(nodes))

	for i := range nodes {
		n := &nodes[i]
		fields = append(fields, inventory.Fields{
			Hostname: Hostname(n),
			Address:  n.OOBMgmtAddr,
			Type:     n.Role,
			Status:   n.State,
			Extensions: models.Extensions{
				SerialNumber:    models.StringPtr(n.Serial),
				SoftwareVersion: models.StringPtr(n.Version),
			},
		})
	}

	return fields
}
