// Package transport is the storefront's HTTP layer: it attaches the
// bearer token to every request and transparently refreshes an expired
// access token once before giving up.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Bobybuu/zeno-speedy-services-sub001/client/store"
)

// ErrUnauthenticated is returned when a request fails with 401 and the
// refresh exchange could not rescue it. The session is cleared by then.
var ErrUnauthenticated = errors.New("session expired, please log in again")

// APIError carries the server's error payload for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error %d", e.StatusCode)
}

type Client struct {
	baseURL string
	http    *http.Client
	store   store.Store

	// refreshMu serializes the refresh exchange so concurrent 401s do
	// not race to rotate the same token.
	refreshMu sync.Mutex
}

func NewClient(baseURL string, s store.Store) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		store:   s,
	}
}

func (c *Client) Store() store.Store {
	return c.store
}

// Do sends a JSON request and decodes a JSON response into out (which
// may be nil). A 401 triggers one refresh-and-retry; failure of that
// path surfaces ErrUnauthenticated and wipes the stored session.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body, true)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if err := c.refresh(ctx); err != nil {
			c.store.Clear()
			return ErrUnauthenticated
		}

		resp, err = c.send(ctx, method, path, body, true)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			c.store.Clear()
			return ErrUnauthenticated
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// DoPublic sends without the bearer token, for endpoints like login and
// register.
func (c *Client) DoPublic(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body, false)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) send(ctx context.Context, method, path string, body any, withAuth bool) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if withAuth {
		if token, ok := c.store.Get(store.KeyAccessToken); ok && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (c *Client) refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	refreshToken, ok := c.store.Get(store.KeyRefreshToken)
	if !ok || refreshToken == "" {
		return errors.New("no refresh token")
	}

	var out refreshResponse
	err := c.DoPublic(ctx, http.MethodPost, "/api/auth/token/refresh/",
		map[string]string{"refresh_token": refreshToken}, &out)
	if err != nil {
		return err
	}
	if out.Access == "" {
		return errors.New("refresh returned no access token")
	}

	c.store.Set(store.KeyAccessToken, out.Access)
	if out.Refresh != "" {
		c.store.Set(store.KeyRefreshToken, out.Refresh)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var payload struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		apiErr.Message = payload.Error
		apiErr.Code = payload.Code
	}
	return apiErr
}
