package secrets

import "testing"

func TestHashAndVerify(t *testing.T) {
	phc, err := Hash(Default, "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	if !Verify("s3cret", phc) {
		t.Error("correct secret rejected")
	}
	if Verify("wrong", phc) {
		t.Error("wrong secret accepted")
	}
}

func TestHash_EmptySecret(t *testing.T) {
	if _, err := Hash(Default, ""); err == nil {
		t.Fatal("expected an error")
	}
}

func TestVerify_Malformed(t *testing.T) {
	for _, phc := range []string{
		"",
		"not-a-phc",
		"$argon2i$v=19$m=65536,t=3,p=1$c2FsdA$ZGs",
		"$argon2id$v=18$m=65536,t=3,p=1$c2FsdA$ZGs",
		"$argon2id$v=19$m=65536,t=3,p=1$!!$ZGs",
		"$argon2id$v=19$m=65536,t=3,p=1$c2FsdA$",
	} {
		if Verify("x", phc) {
			t.Errorf("malformed hash accepted: %q", phc)
		}
	}
}

func TestNewSecret(t *testing.T) {
	a, err := NewSecret(32)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewSecret(32)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("two secrets collided")
	}
	if len(a) < 40 {
		t.Errorf("secret too short: %d", len(a))
	}
}
