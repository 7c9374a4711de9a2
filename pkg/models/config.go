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

package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

var errInvalidDuration = errors.New("invalid duration")

// Duration accepts either a Go duration string or a number of nanoseconds.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		return d.parse(value)
	default:
		return errInvalidDuration
	}
}

// MarshalJSON renders the duration as a Go duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return errInvalidDuration
	}

	if node.Tag == "!!int" || node.Tag == "!!float" {
		n, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return fmt.Errorf("%w: %w", errInvalidDuration, err)
		}

		*d = Duration(time.Duration(n))

		return nil
	}

	return d.parse(node.Value)
}

func (d *Duration) parse(value string) error {
	dur, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}

	*d = Duration(dur)

	return nil
}

// Or returns d, or fallback when d is zero.
func (d Duration) Or(fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}

	return time.Duration(d)
}

// ServerDescriptor identifies one management server of a source kind.
type ServerDescriptor struct {
	Alias     string   `json:"alias,omitempty" yaml:"alias,omitempty"`
	Host      string   `json:"host" yaml:"host"`
	Port      int      `json:"port,omitempty" yaml:"port,omitempty"`
	Username  string   `json:"username,omitempty" yaml:"username,omitempty"`
	Password  string   `json:"password,omitempty" yaml:"password,omitempty"`
	VerifyTLS bool     `json:"verify_tls" yaml:"verify_tls"`
	Timeout   Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// SNMP only.
	Community string   `json:"community,omitempty" yaml:"community,omitempty"`
	Version   string   `json:"version,omitempty" yaml:"version,omitempty"`
	Targets   []string `json:"targets,omitempty" yaml:"targets,omitempty"`
}

// Label is the alias when set, otherwise the host.
func (s ServerDescriptor) Label() string {
	if s.Alias != "" {
		return s.Alias
	}

	return s.Host
}

// Address joins the host with Port, or with defaultPort when Port is unset.
func (s ServerDescriptor) Address(defaultPort int) string {
	port := s.Port
	if port == 0 {
		port = defaultPort
	}

	return net.JoinHostPort(s.Host, strconv.Itoa(port))
}
