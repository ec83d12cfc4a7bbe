// Package session manages the storefront's authentication lifecycle:
// login, registration, OTP verification and the persisted user identity
// that survives restarts.
package session

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Bobybuu/zeno-speedy-services-sub001/client/store"
	"github.com/Bobybuu/zeno-speedy-services-sub001/client/transport"
	"github.com/Bobybuu/zeno-speedy-services-sub001/pkg/phone"
)

// Result is the uniform contract every session operation returns; UI
// code switches on Success instead of error types.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ok(data any) Result {
	return Result{Success: true, Data: data}
}

func fail(msg string) Result {
	return Result{Success: false, Error: msg}
}

// User mirrors the server's user payload.
type User struct {
	ID                  int64  `json:"id"`
	Username            string `json:"username"`
	Email               string `json:"email"`
	PhoneNumber         string `json:"phone_number"`
	UserType            string `json:"user_type"`
	Location            string `json:"location,omitempty"`
	IsVerified          bool   `json:"is_verified"`
	PhoneVerified       bool   `json:"phone_verified"`
	PreferredOTPChannel string `json:"preferred_otp_channel,omitempty"`
}

// VendorProfile is the subset of the vendor payload the storefront needs
// for routing and display.
type VendorProfile struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"user_id"`
	BusinessName string `json:"business_name"`
	BusinessType string `json:"business_type"`
	IsVerified   bool   `json:"is_verified"`
}

type authResponse struct {
	User                    User   `json:"user"`
	Access                  string `json:"access"`
	Refresh                 string `json:"refresh"`
	Message                 string `json:"message"`
	RequiresOTPVerification bool   `json:"requires_otp_verification"`
}

type Session struct {
	client *transport.Client
	store  store.Store
}

func New(client *transport.Client) *Session {
	return &Session{client: client, store: client.Store()}
}

type RegisterInput struct {
	Username            string `json:"username"`
	Email               string `json:"email,omitempty"`
	PhoneNumber         string `json:"phone_number"`
	Password            string `json:"password"`
	UserType            string `json:"user_type,omitempty"`
	Location            string `json:"location,omitempty"`
	PreferredOTPChannel string `json:"preferred_otp_channel,omitempty"`
}

func (s *Session) Register(ctx context.Context, input RegisterInput) Result {
	if !phone.IsValid(input.PhoneNumber) {
		return fail("enter a valid Kenyan phone number")
	}

	var resp authResponse
	if err := s.client.DoPublic(ctx, http.MethodPost, "/api/auth/register/", input, &resp); err != nil {
		return fail(err.Error())
	}
	s.persistAuth(resp)
	return ok(resp)
}

func (s *Session) Login(ctx context.Context, phoneNumber, password string) Result {
	if !phone.IsValid(phoneNumber) {
		return fail("enter a valid Kenyan phone number")
	}

	var resp authResponse
	err := s.client.DoPublic(ctx, http.MethodPost, "/api/auth/login/",
		map[string]string{"phone_number": phoneNumber, "password": password}, &resp)
	if err != nil {
		return fail(err.Error())
	}
	s.persistAuth(resp)

	// Vendor-facing accounts need their profile for routing; fetch it
	// lazily and tolerate absence (a fresh vendor has none yet).
	if resp.User.UserType == "vendor" || resp.User.UserType == "mechanic" {
		s.fetchVendorProfile(ctx)
	}
	return ok(resp)
}

func (s *Session) VerifyOTP(ctx context.Context, phoneNumber, code string) Result {
	var resp authResponse
	err := s.client.DoPublic(ctx, http.MethodPost, "/api/auth/verify-otp/",
		map[string]string{"phone_number": phoneNumber, "otp": code}, &resp)
	if err != nil {
		return fail(err.Error())
	}
	s.persistAuth(resp)
	return ok(resp)
}

func (s *Session) ResendOTP(ctx context.Context, phoneNumber, channel string) Result {
	payload := map[string]string{"phone_number": phoneNumber}
	if channel != "" {
		payload["channel"] = channel
	}
	if err := s.client.DoPublic(ctx, http.MethodPost, "/api/auth/resend-otp/", payload, nil); err != nil {
		return fail(err.Error())
	}
	return ok("OTP sent")
}

// Logout revokes the refresh token server-side and clears every
// persisted key, tokens and caches alike.
func (s *Session) Logout(ctx context.Context) Result {
	refresh, _ := s.store.Get(store.KeyRefreshToken)
	if refresh != "" {
		// Best effort; the local session is cleared regardless.
		s.client.Do(ctx, http.MethodPost, "/api/auth/logout/",
			map[string]string{"refresh_token": refresh}, nil)
	}
	s.store.Clear()
	return ok("logged out")
}

// CheckAuthentication rehydrates the persisted user and revalidates it
// against the server. Without stored tokens it reports unauthenticated
// immediately, with no network call.
func (s *Session) CheckAuthentication(ctx context.Context) Result {
	token, okToken := s.store.Get(store.KeyAccessToken)
	if !okToken || token == "" {
		return fail("not authenticated")
	}

	var resp struct {
		Authenticated bool `json:"authenticated"`
		User          User `json:"user"`
	}
	if err := s.client.Do(ctx, http.MethodGet, "/api/auth/check-auth/", nil, &resp); err != nil {
		return fail(err.Error())
	}

	raw, _ := json.Marshal(resp.User)
	s.store.Set(store.KeyUser, string(raw))
	return ok(resp.User)
}

func (s *Session) persistAuth(resp authResponse) {
	if resp.Access != "" {
		s.store.Set(store.KeyAccessToken, resp.Access)
	}
	if resp.Refresh != "" {
		s.store.Set(store.KeyRefreshToken, resp.Refresh)
	}
	raw, _ := json.Marshal(resp.User)
	s.store.Set(store.KeyUser, string(raw))
}

func (s *Session) fetchVendorProfile(ctx context.Context) {
	var profile VendorProfile
	if err := s.client.Do(ctx, http.MethodGet, "/api/vendors/vendors/my_vendor/", nil, &profile); err != nil {
		return
	}
	raw, _ := json.Marshal(profile)
	s.store.Set(store.KeyVendorProfile, string(raw))
}

// CurrentUser returns the cached user without touching the network.
func (s *Session) CurrentUser() (User, bool) {
	raw, okUser := s.store.Get(store.KeyUser)
	if !okUser || raw == "" {
		return User{}, false
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return User{}, false
	}
	return u, true
}

// VendorProfile returns the cached vendor profile, if any.
func (s *Session) VendorProfile() (VendorProfile, bool) {
	raw, okProfile := s.store.Get(store.KeyVendorProfile)
	if !okProfile || raw == "" {
		return VendorProfile{}, false
	}
	var p VendorProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return VendorProfile{}, false
	}
	return p, true
}

func (s *Session) IsAuthenticated() bool {
	token, okToken := s.store.Get(store.KeyAccessToken)
	return okToken && token != ""
}

func (s *Session) IsCustomer() bool { return s.hasRole("customer") }
func (s *Session) IsVendor() bool   { return s.hasRole("vendor") }
func (s *Session) IsMechanic() bool { return s.hasRole("mechanic") }
func (s *Session) IsAdmin() bool    { return s.hasRole("admin") }

func (s *Session) hasRole(role string) bool {
	u, okUser := s.CurrentUser()
	return okUser && u.UserType == role
}

// RedirectPath decides where the UI lands after login. Vendor-facing
// accounts without a vendor profile are routed to setup first.
func (s *Session) RedirectPath() string {
	u, okUser := s.CurrentUser()
	if !okUser {
		return "/login"
	}

	switch u.UserType {
	case "admin":
		return "/admin"
	case "vendor", "mechanic":
		if _, hasProfile := s.VendorProfile(); !hasProfile {
			return "/vendor/setup"
		}
		return "/vendor/dashboard"
	default:
		return "/dashboard"
	}
}
