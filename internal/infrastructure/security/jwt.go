// Package security provides JWT token utilities and secure id generation.
package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Identity is the authenticated subject extracted from a bearer token.
// Tokens are minted by the external identity service with the shared secret;
// this service only validates them.
type Identity struct {
	SubjectID string
	Role      string
}

// Elevated roles may subscribe to the dashboard room and read alert history.
const (
	RoleAdmin   = "admin"
	RoleProctor = "proctor"
	RoleStudent = "student"
)

// Elevated reports whether the identity may observe other participants.
func (i *Identity) Elevated() bool {
	return i.Role == RoleAdmin || i.Role == RoleProctor
}

// ValidateJWT validates a JWT token and returns the claims
func ValidateJWT(tokenString, jwtSecret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// IdentityFromClaims extracts the authenticated identity from JWT claims.
func IdentityFromClaims(claims jwt.MapClaims) (*Identity, error) {
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" || role == "" {
		return nil, errors.New("token missing sub or role claim")
	}
	return &Identity{SubjectID: sub, Role: role}, nil
}

// GenerateIdentityToken creates a signed JWT for an identity. Used by tests
// and local tooling; production tokens come from the identity service.
func GenerateIdentityToken(identity *Identity, jwtSecret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":  identity.SubjectID,
		"role": identity.Role,
		"iat":  time.Now().UTC().Unix(),
		"exp":  time.Now().UTC().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}
