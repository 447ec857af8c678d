package auth

import (
	"context"

	"github.com/ekaya-inc/ekaya-query/pkg/models"
)

// SecurityFromContext returns the caller as a security context for a query
// request, or nil for an anonymous caller. Security rules deny nil callers.
func SecurityFromContext(ctx context.Context) models.SecurityContext {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return nil
	}
	return NewPrincipal(claims)
}
