// Package client talks to the promo platform REST API.
package client

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

	"github.com/rs/zerolog/log"

	"promo-wizard/internal/observability"
)

// ErrSessionExpired means the access token was rejected and a single refresh
// attempt did not recover it. Callers clear the session and send the user to
// the landing page.
var ErrSessionExpired = errors.New("session expired")

// APIError is a non-2xx response from the REST API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("upstream returned status %d", e.Status)
}

// Session carries the caller's tokens. A refresh rotates them in place so the
// HTTP layer can write the new values back to cookies.
type Session struct {
	mu           sync.Mutex
	accessToken  string
	refreshToken string
	refreshed    bool
}

func NewSession(access, refresh string) *Session {
	return &Session{accessToken: access, refreshToken: refresh}
}

func (s *Session) Tokens() (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

// Refreshed reports whether the tokens were rotated during this session.
func (s *Session) Refreshed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshed
}

func (s *Session) rotate(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = access
	if refresh != "" {
		s.refreshToken = refresh
	}
	s.refreshed = true
}

type sessionKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func SessionFrom(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}

type Client struct {
	base string
	http *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// payload is a request body that can be replayed after a token refresh.
type payload struct {
	contentType string
	body        []byte
}

func jsonPayload(v any) (*payload, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return &payload{contentType: "application/json", body: b}, nil
}

func (c *Client) doJSON(ctx context.Context, endpoint, method, path string, in, out any) error {
	p, err := jsonPayload(in)
	if err != nil {
		return err
	}
	return c.do(ctx, endpoint, method, path, p, out)
}

// do sends the request, refreshing tokens and retrying once on 401.
func (c *Client) do(ctx context.Context, endpoint, method, path string, p *payload, out any) error {
	sess := SessionFrom(ctx)
	resp, err := c.send(ctx, endpoint, method, path, p, sess)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized && sess != nil {
		drain(resp)
		if err := c.refresh(ctx, sess); err != nil {
			log.Warn().Err(err).Str("endpoint", endpoint).Msg("token refresh failed")
			return ErrSessionExpired
		}
		if resp, err = c.send(ctx, endpoint, method, path, p, sess); err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			drain(resp)
			return ErrSessionExpired
		}
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, endpoint, method, path string, p *payload, sess *Session) (*http.Response, error) {
	var body io.Reader
	if p != nil {
		body = bytes.NewReader(p.body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if p != nil {
		req.Header.Set("Content-Type", p.contentType)
	}
	if sess != nil {
		if access, _ := sess.Tokens(); access != "" {
			req.Header.Set("Authorization", "Bearer "+access)
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		observability.Upstream(endpoint, 0)
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	observability.Upstream(endpoint, resp.StatusCode)
	return resp, nil
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (c *Client) refresh(ctx context.Context, sess *Session) error {
	_, refreshToken := sess.Tokens()
	if refreshToken == "" {
		return errors.New("no refresh token")
	}
	p, err := jsonPayload(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return err
	}
	resp, err := c.send(ctx, "auth.refresh", http.MethodPost, "/api/auth/refresh", p, nil)
	if err != nil {
		return err
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	var out refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode refresh response: %w", err)
	}
	if out.AccessToken == "" {
		return errors.New("refresh returned no access token")
	}
	sess.rotate(out.AccessToken, out.RefreshToken)
	return nil
}

func decodeError(resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(b, &body)
	return &APIError{Status: resp.StatusCode, Message: body.Message}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
