package security

import (
	"testing"
	"time"
)

const testSecret = "unit-test-secret"

func TestIdentityTokenRoundTrip(t *testing.T) {
	identity := &Identity{SubjectID: "part-1", Role: RoleStudent}

	token, err := GenerateIdentityToken(identity, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateIdentityToken() error = %v", err)
	}

	claims, err := ValidateJWT(token, testSecret)
	if err != nil {
		t.Fatalf("ValidateJWT() error = %v", err)
	}

	parsed, err := IdentityFromClaims(claims)
	if err != nil {
		t.Fatalf("IdentityFromClaims() error = %v", err)
	}
	if parsed.SubjectID != "part-1" || parsed.Role != RoleStudent {
		t.Errorf("identity = %+v", parsed)
	}
}

func TestValidateJWTRejectsWrongSecret(t *testing.T) {
	token, _ := GenerateIdentityToken(&Identity{SubjectID: "part-1", Role: RoleStudent}, testSecret, time.Hour)

	if _, err := ValidateJWT(token, "other-secret"); err == nil {
		t.Error("ValidateJWT() accepted a token signed with a different secret")
	}
}

func TestValidateJWTRejectsExpiredToken(t *testing.T) {
	token, _ := GenerateIdentityToken(&Identity{SubjectID: "part-1", Role: RoleStudent}, testSecret, -time.Minute)

	if _, err := ValidateJWT(token, testSecret); err == nil {
		t.Error("ValidateJWT() accepted an expired token")
	}
}

func TestValidateJWTRejectsGarbage(t *testing.T) {
	if _, err := ValidateJWT("not.a.token", testSecret); err == nil {
		t.Error("ValidateJWT() accepted garbage input")
	}
}

func TestIdentityFromClaimsRequiresSubAndRole(t *testing.T) {
	token, _ := GenerateIdentityToken(&Identity{SubjectID: "", Role: RoleStudent}, testSecret, time.Hour)
	claims, err := ValidateJWT(token, testSecret)
	if err != nil {
		t.Fatalf("ValidateJWT() error = %v", err)
	}
	if _, err := IdentityFromClaims(claims); err == nil {
		t.Error("IdentityFromClaims() accepted a token without a subject")
	}
}

func TestElevated(t *testing.T) {
	cases := []struct {
		role string
		want bool
	}{
		{RoleAdmin, true},
		{RoleProctor, true},
		{RoleStudent, false},
		{"", false},
	}
	for _, tc := range cases {
		identity := &Identity{SubjectID: "x", Role: tc.role}
		if got := identity.Elevated(); got != tc.want {
			t.Errorf("Elevated(%q) = %v, want %v", tc.role, got, tc.want)
		}
	}
}

func TestGenerateULID(t *testing.T) {
	a := GenerateULID()
	b := GenerateULID()
	if len(a) != 26 || len(b) != 26 {
		t.Errorf("ULID lengths = %d, %d, want 26", len(a), len(b))
	}
	if a == b {
		t.Error("consecutive ULIDs collided")
	}
}
