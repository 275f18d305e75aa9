// Package services provides application-level orchestration services
package services

import (
	"github.com/gingerol/examguard/internal/domain/proctoring"
	"github.com/gingerol/examguard/internal/infrastructure/observability/logging"
	"github.com/gingerol/examguard/internal/infrastructure/security"
	"github.com/gingerol/examguard/pkg/config"
	"golang.org/x/crypto/bcrypt"
)

// AuthService resolves identities for session-mutating calls and dashboard
// subscriptions. Token issuance lives in the identity collaborator; this
// service only validates what arrives.
type AuthService struct {
	logger *logging.ChanneledLogger
}

// NewAuthService creates a new auth service
func NewAuthService(logger *logging.ChanneledLogger) *AuthService {
	return &AuthService{logger: logger}
}

// IdentityFromToken validates a bearer token and returns the caller's
// identity. Any failure maps to ErrUnauthenticated.
func (s *AuthService) IdentityFromToken(token string) (*security.Identity, error) {
	if token == "" {
		return nil, proctoring.ErrUnauthenticated
	}

	claims, err := security.ValidateJWT(token, config.JWTSecret)
	if err != nil {
		s.logger.LogAuthOperation("token_validation", "unknown", false)
		return nil, proctoring.ErrUnauthenticated
	}

	identity, err := security.IdentityFromClaims(claims)
	if err != nil {
		s.logger.LogAuthOperation("token_validation", "unknown", false)
		return nil, proctoring.ErrUnauthenticated
	}

	s.logger.LogAuthOperation("token_validation", identity.SubjectID, true)
	return identity, nil
}

// AuthorizeObserver validates a dashboard credential. Two credential forms
// are accepted: a JWT carrying an elevated role, or the operator passkey
// checked against its bcrypt hash. Anything else is rejected.
func (s *AuthService) AuthorizeObserver(credential string) (*security.Identity, error) {
	if credential == "" {
		s.logger.LogAuthOperation("observer_subscribe", "unknown", false)
		return nil, proctoring.ErrUnauthenticated
	}

	if claims, err := security.ValidateJWT(credential, config.JWTSecret); err == nil {
		identity, err := security.IdentityFromClaims(claims)
		if err != nil {
			s.logger.LogAuthOperation("observer_subscribe", "unknown", false)
			return nil, proctoring.ErrUnauthenticated
		}
		if !identity.Elevated() {
			s.logger.LogAuthOperation("observer_subscribe", identity.SubjectID, false)
			return nil, proctoring.ErrUnauthorized
		}
		s.logger.LogAuthOperation("observer_subscribe", identity.SubjectID, true)
		return identity, nil
	}

	if config.OperatorPasskeyHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(config.OperatorPasskeyHash), []byte(credential)); err == nil {
			s.logger.LogAuthOperation("observer_subscribe", "operator", true)
			return &security.Identity{SubjectID: "operator", Role: security.RoleAdmin}, nil
		}
	}

	s.logger.LogAuthOperation("observer_subscribe", "unknown", false)
	return nil, proctoring.ErrUnauthenticated
}
