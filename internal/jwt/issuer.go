// Package jwt signs and validates the service's access tokens (EdDSA).
package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidIssuer = errors.New("invalid issuer")
)

// Issuer signs tokens with a process-local Ed25519 key.
type Issuer struct {
	Iss       string
	AccessTTL time.Duration

	kid  string
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewIssuer generates a fresh keypair. The kid is derived from the public
// key so restarts produce a new kid.
func NewIssuer(iss string, accessTTL time.Duration) (*Issuer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	sum := sha256.Sum256(pub)
	return &Issuer{
		Iss:       iss,
		AccessTTL: accessTTL,
		kid:       hex.EncodeToString(sum[:8]),
		priv:      priv,
		pub:       pub,
	}, nil
}

// KID returns the current key id.
func (i *Issuer) KID() string {
	return i.kid
}

// Sign signs the claims, filling iss/iat/exp when missing, and sets the kid
// header.
func (i *Issuer) Sign(claims jwtv5.MapClaims) (string, error) {
	now := time.Now()
	if _, ok := claims["iss"]; !ok {
		claims["iss"] = i.Iss
	}
	if _, ok := claims["iat"]; !ok {
		claims["iat"] = now.Unix()
	}
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = now.Add(i.AccessTTL).Unix()
	}
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodEdDSA, claims)
	tok.Header["kid"] = i.kid
	tok.Header["typ"] = "at+jwt"
	return tok.SignedString(i.priv)
}

// Keyfunc resolves the verification key by kid; the current key is the
// fallback for tokens without one.
func (i *Issuer) Keyfunc() jwtv5.Keyfunc {
	return func(t *jwtv5.Token) (any, error) {
		if kid, _ := t.Header["kid"].(string); kid != "" && kid != i.kid {
			return nil, errors.New("unknown kid")
		}
		return i.pub, nil
	}
}
