package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bobybuu/zeno-speedy-services-sub001/client/store"
)

func TestDoRefreshesExpiredTokenOnce(t *testing.T) {
	var profileCalls, refreshCalls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/profile/":
			profileCalls.Add(1)
			if r.Header.Get("Authorization") != "Bearer fresh" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(map[string]string{"username": "amina"})
		case "/api/auth/token/refresh/":
			refreshCalls.Add(1)
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			assert.Equal(t, "old-refresh", body["refresh_token"])
			json.NewEncoder(w).Encode(map[string]string{"access": "fresh", "refresh": "new-refresh"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	s := store.NewMemory()
	s.Set(store.KeyAccessToken, "stale")
	s.Set(store.KeyRefreshToken, "old-refresh")
	client := NewClient(srv.URL, s)

	var out map[string]string
	err := client.Do(context.Background(), http.MethodGet, "/api/auth/profile/", nil, &out)
	require.NoError(t, err)

	assert.Equal(t, "amina", out["username"])
	assert.Equal(t, int32(2), profileCalls.Load())
	assert.Equal(t, int32(1), refreshCalls.Load())

	token, _ := s.Get(store.KeyAccessToken)
	assert.Equal(t, "fresh", token)
	refresh, _ := s.Get(store.KeyRefreshToken)
	assert.Equal(t, "new-refresh", refresh)
}

func TestDoClearsSessionWhenRefreshFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/token/refresh/" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "token revoked"})
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := store.NewMemory()
	s.Set(store.KeyAccessToken, "stale")
	s.Set(store.KeyRefreshToken, "revoked")
	s.Set(store.KeyUser, `{"id":1}`)
	client := NewClient(srv.URL, s)

	err := client.Do(context.Background(), http.MethodGet, "/api/orders/orders/", nil, nil)
	require.ErrorIs(t, err, ErrUnauthenticated)

	for _, key := range []string{store.KeyAccessToken, store.KeyRefreshToken, store.KeyUser} {
		_, ok := s.Get(key)
		assert.False(t, ok, "key %s should be cleared", key)
	}
}

func TestDoDecodesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "payment already initiated",
			"code":  "payment_already_initiated",
		})
	}))
	defer srv.Close()

	s := store.NewMemory()
	s.Set(store.KeyAccessToken, "token")
	client := NewClient(srv.URL, s)

	err := client.Do(context.Background(), http.MethodPost, "/api/payments/initiate-payment/", nil, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "payment_already_initiated", apiErr.Code)
	assert.Equal(t, "payment already initiated", apiErr.Message)
}
