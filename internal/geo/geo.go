// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package geo wraps the ipinfo-style geolocation lookup service behind a
// typed client. The wrapper lives at the integration boundary: callers see
// only Info values, never the provider's wire format. Lookups are cached
// LRU-style since the answer for an address effectively never changes
// within a session.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultBaseURL is the lookup provider endpoint.
	DefaultBaseURL = "https://ipinfo.io"

	// DefaultTimeout bounds a single lookup.
	DefaultTimeout = 10 * time.Second

	// DefaultCacheSize bounds the lookup cache.
	DefaultCacheSize = 128

	// maxBodySize bounds the response body.
	maxBodySize = 64 * 1024
)

// Info is a geolocation lookup result.
type Info struct {
	IP      string `json:"ip"`
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`
	Org     string `json:"org"`
}

// Location returns a short "City, CC" display string.
func (i Info) Location() string {
	switch {
	case i.City != "" && i.Country != "":
		return i.City + ", " + i.Country
	case i.Country != "":
		return i.Country
	default:
		return "unknown"
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client performs cached geolocation lookups.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	mu        sync.Mutex
	cache     map[string]Info
	order     []string // LRU order, oldest first
	cacheSize int
}

// NewClient creates a lookup client. The token is optional; without one the
// provider serves a reduced rate-limited tier.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		cache:      make(map[string]Info),
		cacheSize:  DefaultCacheSize,
	}
}

// WithHTTPClient overrides the HTTP client. Used by tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Lookup resolves the geolocation of ip. An empty ip resolves the caller's
// own public address.
func (c *Client) Lookup(ctx context.Context, ip string) (Info, error) {
	key := ip
	if key == "" {
		key = "self"
	}

	if info, ok := c.cached(key); ok {
		return info, nil
	}

	path := "/json"
	if ip != "" {
		path = "/" + ip + "/json"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return Info{}, fmt.Errorf("failed to create lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Info{}, fmt.Errorf("geolocation lookup failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return Info{}, fmt.Errorf("failed to read lookup response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Info{}, fmt.Errorf("geolocation lookup returned HTTP %d", resp.StatusCode)
	}

	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return Info{}, fmt.Errorf("failed to decode lookup response: %w", err)
	}

	c.store(key, info)
	return info, nil
}

// =============================================================================
// CACHE
// =============================================================================

func (c *Client) cached(key string) (Info, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.cache[key]
	if ok {
		c.touch(key)
	}
	return info, ok
}

func (c *Client) store(key string, info Info) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.cache[key]; !exists {
		for len(c.cache) >= c.cacheSize && len(c.order) > 0 {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.cache, oldest)
		}
		c.order = append(c.order, key)
	}
	c.cache[key] = info
}

func (c *Client) touch(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			c.order = append(c.order, key)
			return
		}
	}
}
