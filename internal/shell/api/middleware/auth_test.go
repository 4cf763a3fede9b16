package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/bgplan/internal/core/auth"
)

// =============================================================================
// Test Helpers
// =============================================================================

// testHandler is a simple handler that returns the auth context from request.
func testHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := auth.FromContext(r.Context())
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"authenticated": ctx.Authenticated,
			"caller":        ctx.CallerID,
		})
	})
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// =============================================================================
// AuthMiddleware Tests
// =============================================================================

func TestAuthMiddleware_ExtractsCaller(t *testing.T) {
	handler := NewAuthMiddleware(AuthConfig{}).Handler(testHandler())
	req := httptest.NewRequest("GET", "/api/v1/test", nil)
	req.Header.Set(auth.HeaderUserID, "deploy-bot")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, true, resp["authenticated"])
	assert.Equal(t, "deploy-bot", resp["caller"])
}

func TestAuthMiddleware_NoHeaders(t *testing.T) {
	handler := NewAuthMiddleware(AuthConfig{}).Handler(testHandler())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/test", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["authenticated"])
}

func TestAuthMiddleware_SharedSecret_Valid(t *testing.T) {
	handler := NewAuthMiddleware(AuthConfig{SharedSecret: "s3cret"}).Handler(testHandler())
	req := httptest.NewRequest("GET", "/api/v1/test", nil)
	req.Header.Set(auth.HeaderGatewaySecret, "s3cret")
	req.Header.Set(auth.HeaderUserID, "alice")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", decodeBody(t, rec)["caller"])
}

func TestAuthMiddleware_SharedSecret_Invalid(t *testing.T) {
	handler := NewAuthMiddleware(AuthConfig{SharedSecret: "s3cret"}).Handler(testHandler())
	req := httptest.NewRequest("GET", "/api/v1/test", nil)
	req.Header.Set(auth.HeaderGatewaySecret, "wrong")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, CodeForbidden, decodeBody(t, rec)["code"])
}

func TestAuthMiddleware_SharedSecret_Missing(t *testing.T) {
	handler := NewAuthMiddleware(AuthConfig{SharedSecret: "s3cret"}).Handler(testHandler())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/test", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// =============================================================================
// RequireAuth Tests
// =============================================================================

func TestRequireAuth_Authenticated(t *testing.T) {
	handler := NewAuthMiddleware(AuthConfig{}).Handler(RequireAuth(nil)(testHandler()))
	req := httptest.NewRequest("POST", "/api/v1/test", nil)
	req.Header.Set(auth.HeaderUserID, "alice")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuth_Unauthenticated(t *testing.T) {
	handler := NewAuthMiddleware(AuthConfig{}).Handler(RequireAuth(nil)(testHandler()))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/test", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, CodeUnauthorized, resp["code"])
	assert.Equal(t, "authentication required", resp["error"])
}

func TestWriteJSONError(t *testing.T) {
	rec := httptest.NewRecorder()

	writeJSONError(rec, http.StatusForbidden, "nope", CodeForbidden)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, map[string]interface{}{"error": "nope", "code": CodeForbidden}, decodeBody(t, rec))
}

// =============================================================================
// RequestLogger Tests
// =============================================================================

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("ok"))
	}))
	req := httptest.NewRequest("POST", "/api/v1/services/helpdesk/plans", nil)
	req.Header.Set(auth.HeaderUserID, "alice")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "POST", entry["method"])
	assert.Equal(t, "/api/v1/services/helpdesk/plans", entry["path"])
	assert.Equal(t, float64(http.StatusCreated), entry["status"])
	assert.Equal(t, float64(2), entry["bytes"])
	assert.Equal(t, "alice", entry["caller"])
}

func TestRequestLogger_ServerErrorAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/ready", nil))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
}

func TestRequestLogger_DefaultStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, float64(http.StatusOK), entry["status"])
}
