package jwt

import (
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

func TestSignAndParse(t *testing.T) {
	iss, err := NewIssuer("https://iam.example.org", time.Minute)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	raw, err := iss.Sign(jwtv5.MapClaims{"sub": "a1", "jti": "t1"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims, err := ParseEdDSA(raw, iss)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims["sub"] != "a1" || claims["jti"] != "t1" {
		t.Fatalf("unexpected claims: %v", claims)
	}
	if claims["iss"] != "https://iam.example.org" {
		t.Fatalf("iss not filled: %v", claims["iss"])
	}
}

func TestParse_WrongIssuer(t *testing.T) {
	a, _ := NewIssuer("https://a.example.org", time.Minute)
	b, _ := NewIssuer("https://b.example.org", time.Minute)

	raw, err := a.Sign(jwtv5.MapClaims{"sub": "a1"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	// Different key: signature check fails before the issuer check.
	if _, err := ParseEdDSA(raw, b); err == nil {
		t.Fatalf("expected validation failure")
	}
}

func TestParse_Expired(t *testing.T) {
	iss, _ := NewIssuer("https://iam.example.org", time.Minute)
	raw, err := iss.Sign(jwtv5.MapClaims{
		"sub": "a1",
		"exp": time.Now().Add(-10 * time.Minute).Unix(),
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseEdDSA(raw, iss); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestParse_Garbage(t *testing.T) {
	iss, _ := NewIssuer("https://iam.example.org", time.Minute)
	if _, err := ParseEdDSA("not-a-jwt", iss); err == nil {
		t.Fatalf("expected parse failure")
	}
}
