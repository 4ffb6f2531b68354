package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"buildpos/internal/cache"
	"buildpos/internal/client"
	"buildpos/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore answers every table get with a fixed version-9 snapshot, so a
// stale-frame resync has something authoritative to land on.
func fakeStore(t *testing.T) *client.Store {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(dto.CollectionEnvelope{
			Version: 9,
			Items:   json.RawMessage(`[{"id":"authoritative"}]`),
		})
	}))
	t.Cleanup(srv.Close)
	return client.NewStore(srv.URL)
}

func TestApplyFrameAcceptsFresh(t *testing.T) {
	c, err := cache.Open(t.TempDir())
	require.NoError(t, err)
	s := NewCatalogSyncer(fakeStore(t), c)

	s.applyFrame(context.Background(), dto.MirrorFrame{
		Products:        json.RawMessage(`[{"id":"p1"}]`),
		Categories:      json.RawMessage(`[]`),
		ProductsVersion: 3,
	})

	frame := s.Snapshot()
	assert.Equal(t, int64(3), frame.ProductsVersion)
	assert.JSONEq(t, `[{"id":"p1"}]`, string(frame.Products))
}

func TestApplyFrameStaleTriggersResync(t *testing.T) {
	c, err := cache.Open(t.TempDir())
	require.NoError(t, err)
	s := NewCatalogSyncer(fakeStore(t), c)

	// Local view is already at version 5.
	s.BroadcastProducts(context.Background(), json.RawMessage(`[{"id":"local"}]`), 5)

	// A version-3 frame is a leftover from before our commit. It must not
	// overwrite; the syncer falls back to the store's truth instead.
	s.applyFrame(context.Background(), dto.MirrorFrame{
		Products:        json.RawMessage(`[{"id":"stale"}]`),
		ProductsVersion: 3,
	})

	frame := s.Snapshot()
	assert.Equal(t, int64(9), frame.ProductsVersion)
	assert.JSONEq(t, `[{"id":"authoritative"}]`, string(frame.Products))
}
