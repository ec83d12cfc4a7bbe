package session

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
	"github.com/Bobybuu/zeno-speedy-services-sub001/client/transport"
)

func newSession(t *testing.T, handler http.Handler) (*Session, store.Store, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	s := store.NewMemory()
	return New(transport.NewClient(srv.URL, s)), s, srv
}

func authPayload(userType string) map[string]any {
	return map[string]any{
		"user": map[string]any{
			"id":           int64(5),
			"username":     "wanjiku",
			"phone_number": "254712345678",
			"user_type":    userType,
		},
		"access":  "access-token",
		"refresh": "refresh-token",
	}
}

func TestLoginPersistsTokensAndUser(t *testing.T) {
	sess, s, _ := newSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/login/", r.URL.Path)
		json.NewEncoder(w).Encode(authPayload("customer"))
	}))

	res := sess.Login(context.Background(), "0712345678", "hunter2")
	require.True(t, res.Success, res.Error)

	token, _ := s.Get(store.KeyAccessToken)
	assert.Equal(t, "access-token", token)
	refresh, _ := s.Get(store.KeyRefreshToken)
	assert.Equal(t, "refresh-token", refresh)

	user, ok := sess.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "wanjiku", user.Username)
	assert.True(t, sess.IsCustomer())
	assert.False(t, sess.IsVendor())
}

func TestLoginRejectsBadPhoneWithoutNetwork(t *testing.T) {
	var calls atomic.Int32
	sess, _, _ := newSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	res := sess.Login(context.Background(), "12345", "hunter2")
	assert.False(t, res.Success)
	assert.Equal(t, int32(0), calls.Load())
}

func TestVendorLoginFetchesProfile(t *testing.T) {
	sess, _, _ := newSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login/":
			json.NewEncoder(w).Encode(authPayload("vendor"))
		case "/api/vendors/vendors/my_vendor/":
			json.NewEncoder(w).Encode(map[string]any{
				"id": int64(3), "user_id": int64(5),
				"business_name": "Kamau Gas", "business_type": "gas_station",
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	res := sess.Login(context.Background(), "0712345678", "hunter2")
	require.True(t, res.Success, res.Error)

	profile, ok := sess.VendorProfile()
	require.True(t, ok)
	assert.Equal(t, "Kamau Gas", profile.BusinessName)
	assert.Equal(t, "/vendor/dashboard", sess.RedirectPath())
}

func TestLogoutClearsEveryKey(t *testing.T) {
	sess, s, _ := newSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	s.Set(store.KeyAccessToken, "a")
	s.Set(store.KeyRefreshToken, "r")
	s.Set(store.KeyUser, `{"id":5}`)
	s.Set(store.KeyVendorProfile, `{"id":3}`)
	s.Set(store.KeyCart, `[]`)

	res := sess.Logout(context.Background())
	require.True(t, res.Success)

	for _, key := range []string{
		store.KeyAccessToken, store.KeyRefreshToken,
		store.KeyUser, store.KeyVendorProfile, store.KeyCart,
	} {
		_, ok := s.Get(key)
		assert.False(t, ok, "key %s should be cleared", key)
	}
	assert.False(t, sess.IsAuthenticated())
}

func TestCheckAuthenticationSkipsNetworkWhenLoggedOut(t *testing.T) {
	var calls atomic.Int32
	sess, _, _ := newSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	res := sess.CheckAuthentication(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, int32(0), calls.Load())
}

func TestCheckAuthenticationRevalidates(t *testing.T) {
	sess, s, _ := newSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/check-auth/", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"authenticated": true,
			"user": map[string]any{
				"id": int64(5), "username": "wanjiku", "user_type": "customer",
			},
		})
	}))
	s.Set(store.KeyAccessToken, "access-token")

	res := sess.CheckAuthentication(context.Background())
	require.True(t, res.Success, res.Error)

	user, ok := sess.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "wanjiku", user.Username)
}

func TestRedirectPath(t *testing.T) {
	cases := []struct {
		name       string
		userType   string
		hasProfile bool
		want       string
	}{
		{"Customer", "customer", false, "/dashboard"},
		{"Admin", "admin", false, "/admin"},
		{"VendorWithoutProfile", "vendor", false, "/vendor/setup"},
		{"VendorWithProfile", "vendor", true, "/vendor/dashboard"},
		{"MechanicWithoutProfile", "mechanic", false, "/vendor/setup"},
		{"MechanicWithProfile", "mechanic", true, "/vendor/dashboard"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := store.NewMemory()
			sess := New(transport.NewClient("http://localhost", s))

			raw, _ := json.Marshal(User{ID: 5, UserType: tc.userType})
			s.Set(store.KeyUser, string(raw))
			if tc.hasProfile {
				s.Set(store.KeyVendorProfile, `{"id":3}`)
			}

			assert.Equal(t, tc.want, sess.RedirectPath())
		})
	}
}

func TestRedirectPathLoggedOut(t *testing.T) {
	sess := New(transport.NewClient("http://localhost", store.NewMemory()))
	assert.Equal(t, "/login", sess.RedirectPath())
}
