// Package validation holds the syntactic predicates behind the stock checks.
package validation

import "regexp"

// Scope name rules:
// - Lowercase only.
// - Start and end with [a-z0-9].
// - Middle chars may include [a-z0-9:_.-].
// - Length 1..64.
// - Excludes semicolon and whitespace explicitly. The scope-set canonical
//   form joins names with a space, which this guarantees is unambiguous.
//
// Examples valid: profile, scim:write, iam:admin.read, a
// Examples invalid: ;hack, BAD, bad space, :leader, trailer:, "", 65+ chars.
var scopeNameRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9:_\.-]{0,62}[a-z0-9])?$`)

// ValidScopeName returns true if the provided scope name matches the allowed pattern.
func ValidScopeName(name string) bool {
	return scopeNameRe.MatchString(name)
}

// Client ids are opaque identifiers (the registry issues UUIDs): URL-safe
// chars, no leading or trailing punctuation, length 1..64.
var clientIDRe = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9_\.-]{0,62}[A-Za-z0-9])?$`)

// ValidClientID returns true if the provided client id matches the allowed pattern.
func ValidClientID(id string) bool {
	return clientIDRe.MatchString(id)
}

// OpenSSH SHA256 fingerprints: "SHA256:" plus the unpadded base64 of a
// 32-byte digest, always 43 characters.
var sshFingerprintRe = regexp.MustCompile(`^SHA256:[A-Za-z0-9+/]{43}$`)

// ValidSSHFingerprint returns true for a well-formed SHA256 key fingerprint.
func ValidSSHFingerprint(fp string) bool {
	return sshFingerprintRe.MatchString(fp)
}
