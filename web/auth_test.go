package web

import (
	"net/http/httptest"
	"testing"
)

func TestTokenAuthorizerEmptyTableAllowsAll(t *testing.T) {
	auth := NewTokenAuthorizer(nil)

	r := httptest.NewRequest("POST", "/api/matches", nil)
	if !auth.Authorize(r, RoleSuperAdmin) {
		t.Error("Empty token table should allow every request")
	}
}

func TestTokenAuthorizerRoleRank(t *testing.T) {
	auth := NewTokenAuthorizer(map[string]string{
		"scorer-token": RoleScorer,
		"admin-token":  RoleTournamentAdmin,
	})

	tests := []struct {
		token    string
		required string
		want     bool
	}{
		{"scorer-token", RoleScorer, true},
		{"scorer-token", RoleTournamentAdmin, false},
		{"admin-token", RoleScorer, true},
		{"admin-token", RoleTournamentAdmin, true},
		{"admin-token", RoleSuperAdmin, false},
		{"unknown", RoleScorer, false},
		{"", RoleScorer, false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("POST", "/api/matches", nil)
		if tt.token != "" {
			r.Header.Set("X-Api-Token", tt.token)
		}
		if got := auth.Authorize(r, tt.required); got != tt.want {
			t.Errorf("token %q required %q: got %v, want %v", tt.token, tt.required, got, tt.want)
		}
	}
}

func TestTokenAuthorizerBearerHeader(t *testing.T) {
	auth := NewTokenAuthorizer(map[string]string{"scorer-token": RoleScorer})

	r := httptest.NewRequest("POST", "/api/innings/1/balls", nil)
	r.Header.Set("Authorization", "Bearer scorer-token")
	if !auth.Authorize(r, RoleScorer) {
		t.Error("Bearer token should authorize")
	}
}
