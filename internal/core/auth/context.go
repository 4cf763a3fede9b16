// Package auth identifies who asked for a plan. Identity is asserted by the
// gateway in front of the API (or by the operator on the CLI); nothing here
// verifies credentials.
package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
)

// =============================================================================
// Context Key
// =============================================================================

type contextKey string

const authContextKey contextKey = "auth"

// =============================================================================
// Types
// =============================================================================

// Context is the caller identity of a request.
type Context struct {
	// CallerID names the user or automation that asked (X-User-ID header or
	// the sub claim of a bearer token).
	CallerID string

	// KeyID is the API key ID if API key authentication was used (from X-Key-ID header)
	KeyID string

	// Authenticated indicates whether a caller was identified
	Authenticated bool
}

// Caller returns CallerID, or "" for anonymous requests.
func (c Context) Caller() string {
	if !c.Authenticated {
		return ""
	}
	return c.CallerID
}

// =============================================================================
// Header Constants
// =============================================================================

const (
	// HeaderUserID is the header containing the authenticated caller's ID
	HeaderUserID = "X-User-ID"

	// HeaderKeyID is the header containing the API key ID
	HeaderKeyID = "X-Key-ID"

	// HeaderGatewaySecret is the header containing the shared secret for validation
	HeaderGatewaySecret = "X-Gateway-Secret"
)

// =============================================================================
// Context Extraction
// =============================================================================

// ExtractFromRequest extracts auth context from HTTP request headers.
// If no identity is present, returns an unauthenticated context.
func ExtractFromRequest(r *http.Request) Context {
	return ExtractFromHeaders(r.Header)
}

// HeaderGetter is an interface for getting header values.
// http.Header satisfies it.
type HeaderGetter interface {
	Get(key string) string
}

// ExtractFromHeaders extracts auth context from headers.
//
// Auth sources (checked in order):
//  1. X-User-ID header
//  2. Authorization: Bearer {jwt} — payload decoded, sub claim used
func ExtractFromHeaders(headers HeaderGetter) Context {
	callerID := headers.Get(HeaderUserID)
	if callerID == "" {
		// The gateway has already validated the token signature
		claims := parseBearer(headers.Get("Authorization"))
		if claims == nil || claims.Sub == "" {
			return Context{Authenticated: false}
		}
		callerID = claims.Sub
	}

	return Context{
		CallerID:      callerID,
		KeyID:         headers.Get(HeaderKeyID),
		Authenticated: true,
	}
}

// jwtClaims holds the fields extracted from a JWT payload.
type jwtClaims struct {
	Sub string `json:"sub"`
}

// parseBearer extracts claims from a Bearer token by base64-decoding the payload.
func parseBearer(authHeader string) *jwtClaims {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil
	}
	parts := strings.Split(authHeader[7:], ".")
	if len(parts) != 3 {
		return nil
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil
	}
	var claims jwtClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil
	}
	return &claims
}

// =============================================================================
// Context Storage
// =============================================================================

// WithContext stores the auth context in the request context.
func WithContext(ctx context.Context, authCtx Context) context.Context {
	return context.WithValue(ctx, authContextKey, authCtx)
}

// WithCaller marks ctx as issued by callerID. An empty callerID leaves the
// request anonymous.
func WithCaller(ctx context.Context, callerID string) context.Context {
	return WithContext(ctx, Context{CallerID: callerID, Authenticated: callerID != ""})
}

// FromContext retrieves the auth context from the request context.
// If no auth context is found, returns an unauthenticated context.
func FromContext(ctx context.Context) Context {
	if authCtx, ok := ctx.Value(authContextKey).(Context); ok {
		return authCtx
	}
	return Context{Authenticated: false}
}

// =============================================================================
// Helper Types for Testing
// =============================================================================

// MapHeaderGetter wraps a map to implement HeaderGetter interface.
type MapHeaderGetter map[string]string

func (m MapHeaderGetter) Get(key string) string {
	return m[key]
}
