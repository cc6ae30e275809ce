// Package auth resolves the caller's role from cookies and keeps each role
// on the pages it may see.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

const (
	RoleCookie    = "role"
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

// Identity is who the request belongs to. Subject is empty when only the
// role cookie was present.
type Identity struct {
	Role    Role
	Subject string
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.Role != ""
}

type accessClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Resolver reads the caller's identity. With a secret the access token's
// HS256 signature is checked; without one the token is only decoded and the
// REST API stays the authority. Expiry is left to the REST API so an expired
// token still reaches the refresh path.
type Resolver struct {
	secret []byte
}

func NewResolver(secret string) Resolver {
	return Resolver{secret: []byte(secret)}
}

// Resolve reads the access token claims. Without a secret the role cookie,
// when present, overrides the decoded role; with a secret only the verified
// claims count and the role cookie is ignored.
func (res Resolver) Resolve(r *http.Request) (Identity, error) {
	var id Identity
	if c, err := r.Cookie(AccessCookie); err == nil && strings.TrimSpace(c.Value) != "" {
		claims, err := res.parse(strings.TrimSpace(c.Value))
		if err != nil {
			return Identity{}, err
		}
		id = Identity{Role: Role(strings.ToUpper(claims.Role)), Subject: claims.Subject}
	}
	if res.verifies() {
		return id, nil
	}
	if c, err := r.Cookie(RoleCookie); err == nil && strings.TrimSpace(c.Value) != "" {
		id.Role = Role(strings.ToUpper(strings.TrimSpace(c.Value)))
	}
	return id, nil
}

func (res Resolver) verifies() bool { return len(res.secret) > 0 }

func (res Resolver) parse(token string) (*accessClaims, error) {
	var claims accessClaims
	if !res.verifies() {
		if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
			return nil, fmt.Errorf("decode access token: %w", err)
		}
		return &claims, nil
	}
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return res.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, fmt.Errorf("verify access token: %w", err)
	}
	return &claims, nil
}

// Middleware attaches the identity and redirects callers the policy rejects.
// API paths get a JSON 401/403 carrying the redirect instead of a 302.
func Middleware(p Policy, res Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := res.Resolve(r)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("unreadable access token")
				id = Identity{}
			}
			to, ok := p.Decide(r.URL.Path, id.Role)
			if !ok {
				deny(w, r, to, id.Role == "")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func deny(w http.ResponseWriter, r *http.Request, to string, anonymous bool) {
	if !strings.HasPrefix(r.URL.Path, "/api/") {
		http.Redirect(w, r, to, http.StatusFound)
		return
	}
	status := http.StatusForbidden
	if anonymous {
		status = http.StatusUnauthorized
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": http.StatusText(status), "redirect": to})
}

// ClearSession expires every auth cookie.
func ClearSession(w http.ResponseWriter, secure bool) {
	for _, name := range []string{RoleCookie, AccessCookie, RefreshCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: name != RoleCookie,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})
	}
}

// WriteTokens stores rotated tokens after a refresh.
func WriteTokens(w http.ResponseWriter, access, refresh string, secure bool) {
	for name, value := range map[string]string{AccessCookie: access, RefreshCookie: refresh} {
		if value == "" {
			continue
		}
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
