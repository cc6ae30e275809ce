package auth

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type Role string

const (
	RoleSuperAdmin   Role = "SUPER_ADMIN"
	RoleAirlineAdmin Role = "AIRLINE_ADMIN"
	RolePartnerAdmin Role = "PARTNER_ADMIN"
	RoleAgencyAdmin  Role = "AGENCY_ADMIN"
	RoleAgent        Role = "AGENT"
	RolePassenger    Role = "PASSENGER"
)

// Rule guards every path under Prefix. GuestOnly paths (sign-in pages) send
// signed-in users to their landing page.
type Rule struct {
	Prefix    string `yaml:"prefix"`
	Roles     []Role `yaml:"roles"`
	GuestOnly bool   `yaml:"guestOnly"`
}

type Policy struct {
	Rules   []Rule          `yaml:"rules"`
	Landing map[Role]string `yaml:"landing"`
	Default string          `yaml:"default"`
}

var promoManagers = []Role{RoleSuperAdmin, RoleAirlineAdmin, RolePartnerAdmin}

func DefaultPolicy() Policy {
	return Policy{
		Rules: []Rule{
			{Prefix: "/auth", GuestOnly: true},
			{Prefix: "/dashboard/promos", Roles: promoManagers},
			{Prefix: "/dashboard", Roles: []Role{RoleSuperAdmin, RoleAirlineAdmin, RolePartnerAdmin, RoleAgencyAdmin, RoleAgent}},
			{Prefix: "/wallet", Roles: []Role{RolePassenger}},
			{Prefix: "/api/wizard", Roles: promoManagers},
			{Prefix: "/api/session", Roles: []Role{RoleSuperAdmin, RoleAirlineAdmin, RolePartnerAdmin, RoleAgencyAdmin, RoleAgent, RolePassenger}},
		},
		Landing: map[Role]string{
			RoleSuperAdmin:   "/dashboard",
			RoleAirlineAdmin: "/dashboard/promos",
			RolePartnerAdmin: "/dashboard/promos",
			RoleAgencyAdmin:  "/dashboard/agents",
			RoleAgent:        "/dashboard/bookings",
			RolePassenger:    "/wallet",
		},
		Default: "/",
	}
}

// LoadPolicy reads a YAML policy file. Missing landing entries and the
// default path fall back to DefaultPolicy.
func LoadPolicy(path string) (Policy, error) {
	f, err := os.Open(path)
	if err != nil {
		return Policy{}, fmt.Errorf("open policy file %s: %w", path, err)
	}
	defer f.Close()

	var p Policy
	if err := yaml.NewDecoder(f).Decode(&p); err != nil {
		return Policy{}, fmt.Errorf("decode policy file %s: %w", path, err)
	}
	def := DefaultPolicy()
	if p.Default == "" {
		p.Default = def.Default
	}
	if p.Landing == nil {
		p.Landing = map[Role]string{}
	}
	for role, path := range def.Landing {
		if _, ok := p.Landing[role]; !ok {
			p.Landing[role] = path
		}
	}
	return p, nil
}

// LandingFor is where a role is sent when it may not stay on a page.
func (p Policy) LandingFor(role Role) string {
	if l, ok := p.Landing[role]; ok && l != "" {
		return l
	}
	return p.Default
}

// Decide returns ok=true when role may visit path, otherwise where to send it.
// An empty role means the caller is not signed in.
func (p Policy) Decide(path string, role Role) (redirect string, ok bool) {
	rule, found := p.match(path)
	if !found {
		return "", true
	}
	if rule.GuestOnly {
		if role == "" {
			return "", true
		}
		return p.LandingFor(role), false
	}
	if role == "" {
		return p.Default, false
	}
	for _, r := range rule.Roles {
		if r == role {
			return "", true
		}
	}
	return p.LandingFor(role), false
}

// match finds the longest prefix rule covering path.
func (p Policy) match(path string) (Rule, bool) {
	rules := append([]Rule(nil), p.Rules...)
	sort.SliceStable(rules, func(i, j int) bool { return len(rules[i].Prefix) > len(rules[j].Prefix) })
	for _, r := range rules {
		if path == r.Prefix || strings.HasPrefix(path, strings.TrimRight(r.Prefix, "/")+"/") {
			return r, true
		}
	}
	return Rule{}, false
}
