package auth

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, secret, role, sub string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: sub, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		Role:             role,
	})
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestPolicy_Decide(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		name     string
		path     string
		role     Role
		wantOK   bool
		redirect string
	}{
		{"landing is open", "/", "", true, ""},
		{"anonymous on dashboard", "/dashboard/promos/create/step-1", "", false, "/"},
		{"airline admin on wizard", "/dashboard/promos/create/step-2", RoleAirlineAdmin, true, ""},
		{"agent kept off promos", "/dashboard/promos", RoleAgent, false, "/dashboard/bookings"},
		{"agent on dashboard", "/dashboard/bookings", RoleAgent, true, ""},
		{"passenger kept off dashboard", "/dashboard", RolePassenger, false, "/wallet"},
		{"admin kept off wallet", "/wallet/cards", RoleSuperAdmin, false, "/dashboard"},
		{"guest page for anonymous", "/auth/login", "", true, ""},
		{"guest page for signed in", "/auth/login", RolePassenger, false, "/wallet"},
		{"prefix must end at segment", "/dashboardx", "", true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			to, ok := p.Decide(tt.path, tt.role)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.redirect, to)
		})
	}
}

func TestResolver(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		cookies []*http.Cookie
		want    Identity
		wantErr bool
	}{
		{"none", "", nil, Identity{}, false},
		{"role cookie", "", []*http.Cookie{{Name: RoleCookie, Value: "passenger"}}, Identity{Role: RolePassenger}, false},
		{"decoded token", "", []*http.Cookie{{Name: AccessCookie, Value: signed(t, "other", "AIRLINE_ADMIN", "u1")}}, Identity{Role: RoleAirlineAdmin, Subject: "u1"}, false},
		{"verified token", "s3cret", []*http.Cookie{{Name: AccessCookie, Value: signed(t, "s3cret", "PARTNER_ADMIN", "u2")}}, Identity{Role: RolePartnerAdmin, Subject: "u2"}, false},
		{"bad signature", "s3cret", []*http.Cookie{{Name: AccessCookie, Value: signed(t, "other", "SUPER_ADMIN", "u3")}}, Identity{}, true},
		{"garbage token", "", []*http.Cookie{{Name: AccessCookie, Value: "not-a-jwt"}}, Identity{}, true},
		{
			"role cookie wins over decoded token",
			"",
			[]*http.Cookie{{Name: AccessCookie, Value: signed(t, "x", "AGENT", "u4")}, {Name: RoleCookie, Value: "AGENCY_ADMIN"}},
			Identity{Role: RoleAgencyAdmin, Subject: "u4"},
			false,
		},
		{
			"verified token ignores role cookie",
			"s3cret",
			[]*http.Cookie{{Name: AccessCookie, Value: signed(t, "s3cret", "PASSENGER", "u5")}, {Name: RoleCookie, Value: "SUPER_ADMIN"}},
			Identity{Role: RolePassenger, Subject: "u5"},
			false,
		},
		{"role cookie alone with secret", "s3cret", []*http.Cookie{{Name: RoleCookie, Value: "SUPER_ADMIN"}}, Identity{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
			for _, c := range tt.cookies {
				r.AddCookie(c)
			}
			got, err := NewResolver(tt.secret).Resolve(r)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMiddleware(t *testing.T) {
	var seen Identity
	h := Middleware(DefaultPolicy(), NewResolver(""))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	r := httptest.NewRequest(http.MethodGet, "/dashboard/promos", nil)
	r.AddCookie(&http.Cookie{Name: RoleCookie, Value: "PASSENGER"})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/wallet", w.Header().Get("Location"))

	r = httptest.NewRequest(http.MethodGet, "/api/wizard/draft", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Unauthorized","redirect":"/"}`, w.Body.String())

	r = httptest.NewRequest(http.MethodGet, "/api/wizard/draft", nil)
	r.AddCookie(&http.Cookie{Name: RoleCookie, Value: "AIRLINE_ADMIN"})
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, RoleAirlineAdmin, seen.Role)
}

func TestMiddleware_SecretRejectsForgedRole(t *testing.T) {
	h := Middleware(DefaultPolicy(), NewResolver("s3cret"))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name    string
		cookies []*http.Cookie
		code    int
	}{
		{"forged role cookie only", []*http.Cookie{{Name: RoleCookie, Value: "SUPER_ADMIN"}}, http.StatusUnauthorized},
		{
			"passenger token with forged role",
			[]*http.Cookie{{Name: AccessCookie, Value: signed(t, "s3cret", "PASSENGER", "u1")}, {Name: RoleCookie, Value: "SUPER_ADMIN"}},
			http.StatusForbidden,
		},
		{"verified manager token", []*http.Cookie{{Name: AccessCookie, Value: signed(t, "s3cret", "AIRLINE_ADMIN", "u2")}}, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/wizard/draft", nil)
			for _, c := range tt.cookies {
				r.AddCookie(c)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestLoadPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	body := []byte(`
rules:
  - prefix: /reports
    roles: [SUPER_ADMIN]
landing:
  SUPER_ADMIN: /reports
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	p, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, "/", p.Default)
	assert.Equal(t, "/reports", p.LandingFor(RoleSuperAdmin))
	assert.Equal(t, "/wallet", p.LandingFor(RolePassenger))

	to, ok := p.Decide("/reports/daily", RoleAgent)
	assert.False(t, ok)
	assert.Equal(t, "/dashboard/bookings", to)

	_, err = LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
