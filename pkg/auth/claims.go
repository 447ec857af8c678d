// Package auth turns JWTs into the security context consulted by attribute
// security rules.
package auth

import (
	"context"
	"slices"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ekaya-inc/ekaya-query/pkg/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
	// TokenKey is the context key for storing the raw JWT token string.
	TokenKey contextKey = "token"
)

// Claims is the JWT payload accepted by the query engine. Roles drive
// attribute visibility.
type Claims struct {
	jwt.RegisteredClaims
	Email string   `json:"email,omitempty"`
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// Principal is the authenticated caller. It implements models.SecurityContext.
type Principal struct {
	claims *Claims
}

var _ models.SecurityContext = (*Principal)(nil)

// NewPrincipal wraps validated claims.
func NewPrincipal(claims *Claims) *Principal {
	return &Principal{claims: claims}
}

func (p *Principal) Subject() string {
	if p == nil || p.claims == nil {
		return ""
	}
	return p.claims.Subject
}

// HasRole reports whether the token grants role. Comparison is exact.
func (p *Principal) HasRole(role string) bool {
	if p == nil || p.claims == nil {
		return false
	}
	return slices.Contains(p.claims.Roles, role)
}

// Roles returns a copy of the granted roles.
func (p *Principal) Roles() []string {
	if p == nil || p.claims == nil {
		return nil
	}
	return slices.Clone(p.claims.Roles)
}

func (p *Principal) Email() string {
	if p == nil || p.claims == nil {
		return ""
	}
	return p.claims.Email
}

// GetClaims retrieves JWT claims from the context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// GetToken retrieves the raw JWT token string from the context.
// Returns empty string and false if token is not present.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}

// WithClaims stores validated claims and the raw token in the context.
func WithClaims(ctx context.Context, claims *Claims, token string) context.Context {
	ctx = context.WithValue(ctx, ClaimsKey, claims)
	return context.WithValue(ctx, TokenKey, token)
}
