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

// Package wlc reads access points from IOS-XE wireless controllers over NETCONF.
package wlc

import (
	"context"

	"github.com/carverauto/netinventory/pkg/inventory"
	"github.com/carverauto/netinventory/pkg/logger"
	"github.com/carverauto/netinventory/pkg/models"
	"github.com/carverauto/netinventory/pkg/sources"
)

// Source fetches access point inventories from wireless controllers.
type Source struct {
	log    logger.Logger
	dialer Dialer
}

// New returns a controller source dialing over SSH.
func New(log logger.Logger) *Source {
	return NewWithDialer(log, SSHDialer{})
}

// NewWithDialer returns a controller source using dialer.
func NewWithDialer(log logger.Logger, dialer Dialer) *Source {
	return &Source{log: log, dialer: dialer}
}

// Kind implements sources.Source.
func (*Source) Kind() models.SourceKind {
	return models.SourceWLC
}

// Fetch implements sources.Source.
func (s *Source) Fetch(ctx context.Context, server models.ServerDescriptor) ([]models.DeviceRecord, error) {
	aps, err := s.accessPoints(ctx, server)
	if err != nil {
		return nil, sources.Wrap(models.SourceWLC, server, err)
	}

	records, err := sources.NormalizeBatch(s.log, models.SourceWLC, server, toFields(aps))
	if err != nil {
		return nil, sources.Wrap(models.SourceWLC, server, err)
	}

	return records, nil
}

func (s *Source) accessPoints(ctx context.Context, server models.ServerDescriptor) ([]AccessPoint, error) {
	sess, err := s.dialer.Dial(ctx, server)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := sess.Close(); err != nil {
			s.log.Debug().Err(err).Str("source", server.Label()).Msg("NETCONF close-session failed")
		}
	}()

	raw, err := sess.Get(apFilter)
	if err != nil {
		return nil, sources.Unreachable(err)
	}

	data, names, err := ParseReply(raw)
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, sources.ErrEmptyInventory
	}

	aps := Correlate(data, names)

	s.log.Info().
		Str("source", server.Label()).
		Str("session", sess.ID).
		Int("capwap", len(data)).
		Int("names", len(names)).
		Int("joined", len(aps)).
		Msg("Correlated access points")

	return aps, nil
}

func toFields(aps []AccessPoint) []inventory.Fields {
	fields := make([]inventory.Fields, 0, len(aps))

	for i := range aps {
		ap := &aps[i]
		fields = append(fields, inventory.Fields{
			Hostname: ap.Name,
			Address:  ap.Address,
			Type:     models.WirelessAPType,
			Family:   ap.Model,
			Extensions: models.Extensions{
				SerialNumber:    models.StringPtr(ap.Serial),
				SoftwareVersion: models.StringPtr(ap.Version),
				Location:        models.StringPtr(ap.Location),
			},
		})
	}

	return fields
}
