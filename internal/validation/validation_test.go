package validation

import (
	"strings"
	"testing"
)

func TestValidScopeName(t *testing.T) {
	valid := []string{"profile", "scim:write", "iam:admin.read", "a", "a_b-c.d:scope2"}
	for _, s := range valid {
		if !ValidScopeName(s) {
			t.Errorf("ValidScopeName(%q) = false, want true", s)
		}
	}
	invalid := []string{"", ";hack", "BAD", "bad space", ":leader", "trailer:",
		"semi;colon", strings.Repeat("a", 65)}
	for _, s := range invalid {
		if ValidScopeName(s) {
			t.Errorf("ValidScopeName(%q) = true, want false", s)
		}
	}
}

func TestValidClientID(t *testing.T) {
	valid := []string{"6a1f4a9e-9a2b-4c3d-8e1f-0a1b2c3d4e5f", "my-client", "c1", "A"}
	for _, s := range valid {
		if !ValidClientID(s) {
			t.Errorf("ValidClientID(%q) = false, want true", s)
		}
	}
	invalid := []string{"", "-leading", "trailing-", "has space", "semi;colon"}
	for _, s := range invalid {
		if ValidClientID(s) {
			t.Errorf("ValidClientID(%q) = true, want false", s)
		}
	}
}

func TestValidSSHFingerprint(t *testing.T) {
	if !ValidSSHFingerprint("SHA256:4rTknUTBH2uzM1zYLbQuFodSjmPTNPNCSvCMDnOAmpo") {
		t.Fatal("known-good fingerprint rejected")
	}
	invalid := []string{
		"",
		"not a fingerprint",
		"MD5:aa:bb:cc",
		"SHA256:tooshort",
		"SHA256:4rTknUTBH2uzM1zYLbQuFodSjmPTNPNCSvCMDnOAmpoXX", // too long
	}
	for _, s := range invalid {
		if ValidSSHFingerprint(s) {
			t.Errorf("ValidSSHFingerprint(%q) = true, want false", s)
		}
	}
}
