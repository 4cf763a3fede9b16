package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ExtractFromHeaders Tests
// =============================================================================

func TestExtractFromHeaders_Unauthenticated(t *testing.T) {
	// Empty headers means unauthenticated
	ctx := ExtractFromHeaders(MapHeaderGetter{})

	assert.False(t, ctx.Authenticated)
	assert.Empty(t, ctx.CallerID)
	assert.Empty(t, ctx.Caller())
}

func TestExtractFromHeaders_EmptyUserID(t *testing.T) {
	ctx := ExtractFromHeaders(MapHeaderGetter{HeaderUserID: ""})

	assert.False(t, ctx.Authenticated)
}

func TestExtractFromHeaders_Authenticated(t *testing.T) {
	headers := MapHeaderGetter{
		HeaderUserID: "deploy-bot",
		HeaderKeyID:  "key_67890",
	}
	ctx := ExtractFromHeaders(headers)

	assert.True(t, ctx.Authenticated)
	assert.Equal(t, "deploy-bot", ctx.CallerID)
	assert.Equal(t, "deploy-bot", ctx.Caller())
	assert.Equal(t, "key_67890", ctx.KeyID)
}

func TestExtractFromRequest(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/v1/services/helpdesk/plans", nil)
	req.Header.Set(HeaderUserID, "alice")

	ctx := ExtractFromRequest(req)

	assert.True(t, ctx.Authenticated)
	assert.Equal(t, "alice", ctx.CallerID)
}

// =============================================================================
// Context Storage Tests
// =============================================================================

func TestWithContext_AndFromContext(t *testing.T) {
	authCtx := Context{
		CallerID:      "alice",
		KeyID:         "key_1",
		Authenticated: true,
	}

	retrieved := FromContext(WithContext(context.Background(), authCtx))

	assert.Equal(t, authCtx, retrieved)
}

func TestWithCaller(t *testing.T) {
	ctx := WithCaller(context.Background(), "ci")
	assert.Equal(t, "ci", FromContext(ctx).Caller())

	anon := WithCaller(context.Background(), "")
	assert.False(t, FromContext(anon).Authenticated)
	assert.Empty(t, FromContext(anon).Caller())
}

func TestFromContext_NotFound(t *testing.T) {
	retrieved := FromContext(context.Background())

	assert.False(t, retrieved.Authenticated)
	assert.Empty(t, retrieved.CallerID)
}

func TestFromContext_WrongType(t *testing.T) {
	// Store wrong type with same key
	ctx := context.WithValue(context.Background(), authContextKey, "wrong type")
	retrieved := FromContext(ctx)

	assert.False(t, retrieved.Authenticated)
}

func TestContext_CallerIgnoresUnauthenticatedID(t *testing.T) {
	ctx := Context{CallerID: "stale"}
	assert.Empty(t, ctx.Caller())
}

// =============================================================================
// Bearer Token Fallback Tests
// =============================================================================

// makeBearerToken builds a fake JWT with the given claims payload (no signature verification).
func makeBearerToken(claims map[string]interface{}) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload, _ := json.Marshal(claims)
	payloadB64 := base64.RawURLEncoding.EncodeToString(payload)
	sig := base64.RawURLEncoding.EncodeToString([]byte("fake-signature"))
	return "Bearer " + header + "." + payloadB64 + "." + sig
}

func TestExtractFromHeaders_BearerToken_NoUserID(t *testing.T) {
	token := makeBearerToken(map[string]interface{}{
		"sub": "user_bc6849d9ab6dc0e5",
		"iss": "gateway",
	})
	ctx := ExtractFromHeaders(MapHeaderGetter{"Authorization": token})

	assert.True(t, ctx.Authenticated)
	assert.Equal(t, "user_bc6849d9ab6dc0e5", ctx.CallerID)
}

func TestExtractFromHeaders_UserIDTakesPrecedenceOverBearer(t *testing.T) {
	token := makeBearerToken(map[string]interface{}{
		"sub": "user_from_jwt",
	})
	headers := MapHeaderGetter{
		HeaderUserID:    "user_from_header",
		"Authorization": token,
	}
	ctx := ExtractFromHeaders(headers)

	assert.True(t, ctx.Authenticated)
	assert.Equal(t, "user_from_header", ctx.CallerID)
}

func TestExtractFromHeaders_BearerToken_EmptySub(t *testing.T) {
	token := makeBearerToken(map[string]interface{}{
		"sub": "",
	})
	ctx := ExtractFromHeaders(MapHeaderGetter{"Authorization": token})

	assert.False(t, ctx.Authenticated)
}

func TestExtractFromHeaders_BearerToken_MissingSub(t *testing.T) {
	token := makeBearerToken(map[string]interface{}{
		"iss": "gateway",
	})
	ctx := ExtractFromHeaders(MapHeaderGetter{"Authorization": token})

	assert.False(t, ctx.Authenticated)
}

func TestExtractFromHeaders_BearerToken_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"no token", "Bearer "},
		{"one part", "Bearer abc"},
		{"two parts", "Bearer abc.def"},
		{"bad base64 payload", "Bearer abc.!!!.def"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ExtractFromHeaders(MapHeaderGetter{"Authorization": tt.value})
			assert.False(t, ctx.Authenticated)
		})
	}
}

func TestParseBearer_ValidToken(t *testing.T) {
	token := makeBearerToken(map[string]interface{}{
		"sub": "user_abc",
	})
	claims := parseBearer(token)

	require.NotNil(t, claims)
	assert.Equal(t, "user_abc", claims.Sub)
}

func TestParseBearer_NilOnInvalid(t *testing.T) {
	assert.Nil(t, parseBearer(""))
	assert.Nil(t, parseBearer("Basic xyz"))
	assert.Nil(t, parseBearer("Bearer not.valid"))
	assert.Nil(t, parseBearer("Bearer a.!!!.c"))
}
