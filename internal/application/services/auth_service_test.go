package services

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/gingerol/examguard/internal/domain/proctoring"
	"github.com/gingerol/examguard/internal/infrastructure/security"
	"github.com/gingerol/examguard/pkg/config"
)

func withTestSecret(t *testing.T) {
	t.Helper()
	prevSecret := config.JWTSecret
	prevHash := config.OperatorPasskeyHash
	config.JWTSecret = "auth-service-test-secret"

	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt.GenerateFromPassword() error = %v", err)
	}
	config.OperatorPasskeyHash = string(hash)

	t.Cleanup(func() {
		config.JWTSecret = prevSecret
		config.OperatorPasskeyHash = prevHash
	})
}

func mintToken(t *testing.T, subjectID, role string) string {
	t.Helper()
	token, err := security.GenerateIdentityToken(&security.Identity{SubjectID: subjectID, Role: role}, config.JWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateIdentityToken() error = %v", err)
	}
	return token
}

func TestIdentityFromToken(t *testing.T) {
	withTestSecret(t)
	svc := NewAuthService(newTestLogger(t))

	identity, err := svc.IdentityFromToken(mintToken(t, "part-1", security.RoleStudent))
	if err != nil {
		t.Fatalf("IdentityFromToken() error = %v", err)
	}
	if identity.SubjectID != "part-1" || identity.Role != security.RoleStudent {
		t.Errorf("identity = %+v", identity)
	}
}

func TestIdentityFromTokenRejectsInvalid(t *testing.T) {
	withTestSecret(t)
	svc := NewAuthService(newTestLogger(t))

	for _, token := range []string{"", "garbage", mintToken(t, "", security.RoleStudent)} {
		if _, err := svc.IdentityFromToken(token); !errors.Is(err, proctoring.ErrUnauthenticated) {
			t.Errorf("IdentityFromToken(%q) error = %v, want ErrUnauthenticated", token, err)
		}
	}
}

func TestAuthorizeObserverWithElevatedToken(t *testing.T) {
	withTestSecret(t)
	svc := NewAuthService(newTestLogger(t))

	for _, role := range []string{security.RoleAdmin, security.RoleProctor} {
		identity, err := svc.AuthorizeObserver(mintToken(t, "observer-1", role))
		if err != nil {
			t.Fatalf("AuthorizeObserver(%s) error = %v", role, err)
		}
		if !identity.Elevated() {
			t.Errorf("identity for role %s is not elevated", role)
		}
	}
}

func TestAuthorizeObserverRejectsStudentToken(t *testing.T) {
	withTestSecret(t)
	svc := NewAuthService(newTestLogger(t))

	_, err := svc.AuthorizeObserver(mintToken(t, "part-1", security.RoleStudent))
	if !errors.Is(err, proctoring.ErrUnauthorized) {
		t.Errorf("AuthorizeObserver(student) error = %v, want ErrUnauthorized", err)
	}
}

func TestAuthorizeObserverWithPasskey(t *testing.T) {
	withTestSecret(t)
	svc := NewAuthService(newTestLogger(t))

	identity, err := svc.AuthorizeObserver("letmein")
	if err != nil {
		t.Fatalf("AuthorizeObserver(passkey) error = %v", err)
	}
	if identity.SubjectID != "operator" || identity.Role != security.RoleAdmin {
		t.Errorf("identity = %+v", identity)
	}

	if _, err := svc.AuthorizeObserver("wrong-passkey"); !errors.Is(err, proctoring.ErrUnauthenticated) {
		t.Errorf("AuthorizeObserver(wrong) error = %v, want ErrUnauthenticated", err)
	}
}
