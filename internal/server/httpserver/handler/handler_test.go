package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/webstore-go/internal/core/service"
	"github.com/yndnr/webstore-go/internal/storage"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newHandler(t *testing.T) (*Handler, *service.Manager) {
	t.Helper()
	cfg := storage.DefaultConfig("test")
	cfg.Logger = discard
	o, err := storage.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { o.Close() })

	scfg := service.DefaultConfig()
	scfg.Namespace = "app"
	scfg.Logger = discard
	m, err := service.NewManager(o, scfg)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })

	return New(m, discard), m
}

// get serves path and decodes the envelope, leaving Data raw.
func get(t *testing.T, h http.Handler, path string) (int, Response, json.RawMessage) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var env struct {
		Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return rec.Code, env.Response, env.Data
}

func TestHandler_Health(t *testing.T) {
	h, m := newHandler(t)

	status, resp, data := get(t, h, "/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", resp.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, m.ContextID(), body["context_id"])
}

func TestHandler_Backends(t *testing.T) {
	h, m := newHandler(t)
	require.NoError(t, m.Set(context.Background(), "a", 1))
	m.Origin().Cookies().SetEnabled(false)

	status, _, data := get(t, h, "/backends")
	require.Equal(t, http.StatusOK, status)

	var got []BackendStatus
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 4)

	byName := make(map[string]BackendStatus)
	for _, b := range got {
		byName[b.Backend] = b
	}
	assert.True(t, byName["localStorage"].Available)
	assert.True(t, byName["localStorage"].Notifies)
	assert.Equal(t, 1, byName["localStorage"].Entries)
	assert.False(t, byName["cookie"].Available)
	assert.True(t, byName["cookie"].PerEntryLimit)
	assert.True(t, byName["indexedDB"].Async)
}

func TestHandler_Keys(t *testing.T) {
	h, m := newHandler(t)
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "a", 1))
	require.NoError(t, m.Set(ctx, "b", 2))
	require.NoError(t, m.Session().Set(ctx, "s", 3))

	status, _, data := get(t, h, "/keys")
	require.Equal(t, http.StatusOK, status)
	var local KeysResponse
	require.NoError(t, json.Unmarshal(data, &local))
	assert.Equal(t, "localStorage", local.Backend)
	assert.ElementsMatch(t, []string{"a", "b"}, local.Keys)

	status, _, data = get(t, h, "/keys?storage=session")
	require.Equal(t, http.StatusOK, status)
	var session KeysResponse
	require.NoError(t, json.Unmarshal(data, &session))
	assert.Equal(t, []string{"s"}, session.Keys)

	status, _, data = get(t, h, "/keys?storage=indexedDB")
	require.Equal(t, http.StatusOK, status)
	var idb KeysResponse
	require.NoError(t, json.Unmarshal(data, &idb))
	assert.NotNil(t, idb.Keys)
	assert.Empty(t, idb.Keys)
}

func TestHandler_Entry(t *testing.T) {
	h, m := newHandler(t)
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "cart", []string{"x"}))
	require.NoError(t, m.Set(ctx, "draft", "text", service.WithTTL(time.Hour)))

	status, _, data := get(t, h, "/keys/cart")
	require.Equal(t, http.StatusOK, status)
	var cart EntryResponse
	require.NoError(t, json.Unmarshal(data, &cart))
	assert.JSONEq(t, `["x"]`, string(cart.Value))
	assert.Nil(t, cart.TTLMillis)

	status, _, data = get(t, h, "/keys/draft")
	require.Equal(t, http.StatusOK, status)
	var draft EntryResponse
	require.NoError(t, json.Unmarshal(data, &draft))
	require.NotNil(t, draft.TTLMillis)
	assert.Greater(t, *draft.TTLMillis, int64(59*time.Minute/time.Millisecond))
}

func TestHandler_Errors(t *testing.T) {
	h, m := newHandler(t)
	m.Origin().IndexedDB().SetEnabled(false)

	tests := []struct {
		name   string
		path   string
		status int
		code   string
	}{
		{"missing key", "/keys/nope", http.StatusNotFound, "WS-KEY-4040"},
		{"unknown backend", "/keys?storage=floppy", http.StatusBadRequest, "WS-CONF-4002"},
		{"unavailable backend", "/keys?storage=idb", http.StatusServiceUnavailable, "WS-BACK-5030"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp, _ := get(t, h, tt.path)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}
