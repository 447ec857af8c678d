package auth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// Common authentication errors.
var (
	ErrMissingAuthorization = errors.New("missing authorization")
	ErrInvalidAuthFormat    = errors.New("invalid authorization format")
	ErrMissingSubject       = errors.New("missing subject in token")
)

// Service resolves the caller of a query request from a token or an
// Authorization header value.
type Service struct {
	validator TokenValidator
	logger    *zap.Logger
}

// NewService creates a Service with the given validator and logger.
func NewService(validator TokenValidator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{validator: validator, logger: logger.Named("auth")}
}

// Authenticate accepts a bare token or "Bearer <token>" and returns the
// validated claims and the raw token.
func (s *Service) Authenticate(authorization string) (*Claims, string, error) {
	authorization = strings.TrimSpace(authorization)
	if authorization == "" {
		return nil, "", ErrMissingAuthorization
	}

	tokenString := authorization
	if parts := strings.Fields(authorization); len(parts) > 1 {
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			s.logger.Debug("Invalid authorization format")
			return nil, "", ErrInvalidAuthFormat
		}
		tokenString = parts[1]
	}

	claims, err := s.validator.ValidateToken(tokenString)
	if err != nil {
		s.logger.Debug("JWT validation failed", zap.Error(err))
		return nil, "", err
	}
	if claims.Subject == "" {
		return nil, "", ErrMissingSubject
	}

	s.logger.Debug("Authenticated caller",
		zap.String("subject", claims.Subject),
		zap.Strings("roles", claims.Roles))
	return claims, tokenString, nil
}

// Context authenticates and stores the result in ctx. An empty authorization
// yields ctx unchanged, which executes queries as an anonymous caller.
func (s *Service) Context(ctx context.Context, authorization string) (context.Context, error) {
	if strings.TrimSpace(authorization) == "" {
		return ctx, nil
	}
	claims, token, err := s.Authenticate(authorization)
	if err != nil {
		return nil, err
	}
	return WithClaims(ctx, claims, token), nil
}
