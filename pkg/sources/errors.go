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
	"context"
	"errors"
	"fmt"

	"github.com/carverauto/netinventory/pkg/models"
)

var (
	// ErrSourceUnreachable covers connect failures, timeouts and server-side errors.
	ErrSourceUnreachable = errors.New("source unreachable")
	// ErrSourceAuth is a rejected credential. It is kept apart from connectivity failures.
	ErrSourceAuth = errors.New("source authentication failed")
	// ErrMalformedPayload is a response that does not have the expected shape.
	ErrMalformedPayload = errors.New("malformed source payload")
	// ErrEmptyInventory is a well-formed response listing no devices.
	ErrEmptyInventory = errors.New("source reported an empty inventory")
	// ErrUnexpectedStatus is an HTTP status other than success or an auth rejection.
	ErrUnexpectedStatus = errors.New("unexpected status code")
)

// Error is a terminal failure of one server's import.
type Error struct {
	Kind   models.SourceKind
	Source string
	Host   string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s source %q (%s): %v", e.Kind, e.Source, e.Host, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap attaches the server identity to err. Nil stays nil and an existing
// *Error is returned unchanged.
func Wrap(kind models.SourceKind, server models.ServerDescriptor, err error) error {
	if err == nil {
		return nil
	}

	var se *Error
	if errors.As(err, &se) {
		return err
	}

	return &Error{Kind: kind, Source: server.Label(), Host: server.Host, Err: err}
}

// Unreachable classifies a transport error. Cancellation passes through.
func Unreachable(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	return fmt.Errorf("%w: %w", ErrSourceUnreachable, err)
}

// Malformed classifies a decode error.
func Malformed(err error) error {
	return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
}
