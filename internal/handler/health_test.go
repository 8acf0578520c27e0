package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"solfolio/internal/provider"
	"solfolio/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCache struct{ cleared int }

func (s *stubCache) ClearCaches() { s.cleared++ }

func TestHealthIsOpen(t *testing.T) {
	r := newTestRouter(Deps{}, "secret")

	w := do(r, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestKeyStatusAndCacheClear(t *testing.T) {
	c1, c2 := &stubCache{}, &stubCache{}
	deps := Deps{
		Providers: []service.KeyedProvider{
			provider.NewSolscanProvider(testTracer, provider.Options{}),
			provider.NewCoinGeckoProvider(testTracer, provider.Options{}),
		},
		Caches: []service.CacheClearer{c1, c2},
	}
	r := newTestRouter(deps, "")

	w := do(r, http.MethodGet, "/api/keys/status", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"providers":[{"provider":"coingecko","status":"keyless"},{"provider":"solscan","status":"missing_key"}]}`, w.Body.String())

	w = do(r, http.MethodPost, "/api/cache/clear", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"cleared","caches":2}`, w.Body.String())
	assert.Equal(t, 1, c1.cleared)
	assert.Equal(t, 1, c2.cleared)
}

func TestClearCacheWithoutServices(t *testing.T) {
	r := newTestRouter(Deps{}, "")
	w := do(r, http.MethodPost, "/api/cache/clear", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"cleared","caches":0}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/keys/status", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"providers":[]}`, w.Body.String())
}
