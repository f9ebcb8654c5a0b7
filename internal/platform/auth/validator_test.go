package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signHMAC(t *testing.T, key []byte, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func TestHMACValidator(t *testing.T) {
	key := []byte("dev-signing-key")
	v := NewHMACValidator("http://issuer.example.com", key)

	token := signHMAC(t, key, jwt.MapClaims{
		"iss":   "http://issuer.example.com",
		"sub":   "user-1",
		"scope": "patient/*.read launch/patient/123",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	claims, err := v.Validate(context.Background(), "gateway", token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Sub != "user-1" {
		t.Errorf("sub = %q", claims.Sub)
	}
	if claims.Scope != "patient/*.read launch/patient/123" {
		t.Errorf("scope = %q", claims.Scope)
	}
}

func TestHMACValidator_WrongKey(t *testing.T) {
	v := NewHMACValidator("", []byte("right-key"))
	token := signHMAC(t, []byte("wrong-key"), jwt.MapClaims{"sub": "user-1"})
	if _, err := v.Validate(context.Background(), "gateway", token); err == nil {
		t.Error("token signed with a different key should fail")
	}
}

func TestHMACValidator_WrongIssuer(t *testing.T) {
	key := []byte("dev-signing-key")
	v := NewHMACValidator("http://issuer.example.com", key)
	token := signHMAC(t, key, jwt.MapClaims{
		"iss": "http://rogue.example.com",
		"sub": "user-1",
	})
	if _, err := v.Validate(context.Background(), "gateway", token); err == nil {
		t.Error("token from a different issuer should fail")
	}
}

func TestHMACValidator_Garbage(t *testing.T) {
	v := NewHMACValidator("", []byte("key"))
	if _, err := v.Validate(context.Background(), "gateway", "not.a.jwt"); err == nil {
		t.Error("malformed token should fail")
	}
}
