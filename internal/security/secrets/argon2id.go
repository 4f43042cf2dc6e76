// Package secrets hashes and verifies client secrets with argon2id.
package secrets

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

type Params struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	KeyLen      uint32
}

var Default = Params{Memory: 64 * 1024, Time: 3, Parallelism: 1, KeyLen: 32}

// Hash returns a PHC string: $argon2id$v=19$m=...,t=...,p=...$<saltB64>$<dkB64>
func Hash(p Params, plain string) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("empty secret")
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	dk := argon2.IDKey([]byte(plain), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		p.Memory, p.Time, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(dk),
	), nil
}

// Verify reports whether plain matches the PHC-encoded hash. Malformed input
// verifies as false, never as an error.
func Verify(plain, phc string) bool {
	parts := strings.Split(phc, "$")
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, dk
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}
	var v int
	if n, _ := fmt.Sscanf(parts[2], "v=%d", &v); n != 1 || v != 19 {
		return false
	}
	var m, t, par uint32
	if n, _ := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &par); n != 3 {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	dkStored, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(dkStored) == 0 {
		return false
	}
	key := argon2.IDKey([]byte(plain), salt, t, m, uint8(par), uint32(len(dkStored)))
	return subtle.ConstantTimeCompare(key, dkStored) == 1
}

// NewSecret generates a URL-safe random secret of n bytes of entropy.
func NewSecret(n int) (string, error) {
	if n <= 0 {
		n = 32
	}
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
