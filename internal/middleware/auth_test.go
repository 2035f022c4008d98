package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func protectedEcho(t *testing.T, wantUser uuid.UUID) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := GetUserID(r.Context()); got != wantUser {
			t.Errorf("Expected user %s on context, got %s", wantUser, got)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	jwtAuth := NewJWTAuth("test-secret")
	userID := uuid.New()

	token, err := jwtAuth.GenerateAccessToken(userID, "user@example.com")
	if err != nil {
		t.Fatalf("Expected token, got %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	jwtAuth.Middleware(protectedEcho(t, userID)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestJWTMiddleware_Rejections(t *testing.T) {
	jwtAuth := NewJWTAuth("test-secret")
	other := NewJWTAuth("different-secret")
	goodToken, _ := other.GenerateAccessToken(uuid.New(), "user@example.com")

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc123"},
		{"garbage token", "Bearer not.a.token"},
		{"wrong secret", "Bearer " + goodToken},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			called := false
			jwtAuth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			})).ServeHTTP(rec, req)

			if called {
				t.Error("Handler ran despite invalid auth")
			}
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("Expected 401, got %d", rec.Code)
			}

			var body map[string]map[string]interface{}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("Response is not the error envelope: %v", err)
			}
			if body["error"]["code"] == "" {
				t.Error("Error envelope missing code")
			}
		})
	}
}

func TestOptionalMiddleware(t *testing.T) {
	jwtAuth := NewJWTAuth("test-secret")
	userID := uuid.New()
	token, _ := jwtAuth.GenerateAccessToken(userID, "user@example.com")

	t.Run("valid token attaches user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/generate", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		jwtAuth.Optional(protectedEcho(t, userID)).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", rec.Code)
		}
	})

	t.Run("no token passes through anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/generate", nil)
		rec := httptest.NewRecorder()

		jwtAuth.Optional(protectedEcho(t, uuid.Nil)).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", rec.Code)
		}
	})

	t.Run("bad token passes through anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/generate", nil)
		req.Header.Set("Authorization", "Bearer junk")
		rec := httptest.NewRecorder()

		jwtAuth.Optional(protectedEcho(t, uuid.Nil)).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", rec.Code)
		}
	})
}
