package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/fleetops-backend/pkg/auth"
	"github.com/angelmondragon/fleetops-backend/pkg/config"
	"github.com/angelmondragon/fleetops-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}

func okHandler(captured *auth.Actor) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			*captured = ActorFromContext(r.Context())
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWT, nil)(okHandler(nil))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWT, nil)(okHandler(nil))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthSeedsActor(t *testing.T) {
	token := mintTestToken(t, "jane", enums.UserRoleFuelAttendant)

	var captured auth.Actor
	handler := Auth(testJWT, nil)(okHandler(&captured))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.Username != "jane" || captured.Role != enums.UserRoleFuelAttendant {
		t.Fatalf("unexpected actor %+v", captured)
	}
}

func TestRequireRoleAdmitsListedRoles(t *testing.T) {
	mw := RequireRole(nil, enums.UserRoleAdmin, enums.UserRoleSuperAdmin)
	cases := map[enums.UserRole]int{
		enums.UserRoleAdmin:      http.StatusOK,
		enums.UserRoleSuperAdmin: http.StatusOK,
		enums.UserRoleClerk:      http.StatusForbidden,
		"":                       http.StatusForbidden,
	}
	for role, want := range cases {
		req := httptest.NewRequest(http.MethodPut, "/", nil)
		req = req.WithContext(WithActor(req.Context(), auth.Actor{Username: "u", Role: role}))
		resp := httptest.NewRecorder()
		mw(okHandler(nil)).ServeHTTP(resp, req)
		if resp.Code != want {
			t.Fatalf("role %q: expected %d got %d", role, want, resp.Code)
		}
	}
}

func mintTestToken(t *testing.T, username string, role enums.UserRole) string {
	t.Helper()
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{Username: username, Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}
