// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package geo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Equal(t, "/8.8.8.8/json", r.URL.Path)
		json.NewEncoder(w).Encode(Info{IP: "8.8.8.8", City: "Mountain View", Country: "US"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "").WithHTTPClient(srv.Client())

	info, err := client.Lookup(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, "Mountain View", info.City)
	assert.Equal(t, "Mountain View, US", info.Location())

	// Second lookup is served from cache.
	_, err = client.Lookup(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestLookupSelf(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/json", r.URL.Path)
		json.NewEncoder(w).Encode(Info{IP: "203.0.113.7", Country: "NZ"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "").WithHTTPClient(srv.Client())
	info, err := client.Lookup(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", info.IP)
	assert.Equal(t, "NZ", info.Location())
}

func TestLookupSendsToken(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(Info{})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "tok123").WithHTTPClient(srv.Client())
	_, err := client.Lookup(context.Background(), "1.1.1.1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok123", gotAuth.Load())
}

func TestLookupErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "").WithHTTPClient(srv.Client())
	_, err := client.Lookup(context.Background(), "1.1.1.1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestLocationFallbacks(t *testing.T) {
	assert.Equal(t, "US", Info{Country: "US"}.Location())
	assert.Equal(t, "unknown", Info{}.Location())
}
