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
	"sync"
	"time"
)

// TokenProvider defines the interface for obtaining access tokens.
type TokenProvider interface {
	GetAccessToken(ctx context.Context) (string, error)
}

// TokenProviderFunc adapts a function to TokenProvider.
type TokenProviderFunc func(ctx context.Context) (string, error)

// GetAccessToken implements TokenProvider.
func (f TokenProviderFunc) GetAccessToken(ctx context.Context) (string, error) {
	return f(ctx)
}

// CachedTokenProvider wraps a TokenProvider and caches the access token for ttl.
type CachedTokenProvider struct {
	provider TokenProvider
	ttl      time.Duration
	now      func() time.Time

	mu     sync.RWMutex
	token  string
	expiry time.Time
}

// NewCachedTokenProvider creates a new cached token provider.
func NewCachedTokenProvider(provider TokenProvider, ttl time.Duration) *CachedTokenProvider {
	return &CachedTokenProvider{
		provider: provider,
		ttl:      ttl,
		now:      time.Now,
	}
}

// GetAccessToken returns a cached token if valid, otherwise fetches a new one.
func (c *CachedTokenProvider) GetAccessToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	if c.token != "" && c.now().Before(c.expiry) {
		token := c.token
		c.mu.RUnlock()

		return token, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// another goroutine may have refreshed it
	if c.token != "" && c.now().Before(c.expiry) {
		return c.token, nil
	}

	token, err := c.provider.GetAccessToken(ctx)
	if err != nil {
		return "", err
	}

	c.token = token
	c.expiry = c.now().Add(c.ttl)

	return token, nil
}

// InvalidateToken clears the cached token.
func (c *CachedTokenProvider) InvalidateToken() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = ""
	c.expiry = time.Time{}
}
