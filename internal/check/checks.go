package check

import (
	"strings"

	"github.com/indigo-iam/iam-service/internal/validation"
)

// Stock string checks shared by the services.

// NonEmpty fails with the given reason code when the trimmed subject is
// empty.
func NonEmpty(reasonCode, message string) Check[string] {
	return Func[string](func(s string) Result {
		if strings.TrimSpace(s) == "" {
			return Failure(reasonCode, message)
		}
		return Success()
	})
}

// ScopeName fails when the subject is not a well-formed scope name.
func ScopeName() Check[string] {
	return Func[string](func(s string) Result {
		if !validation.ValidScopeName(s) {
			return Failure("invalid_scope", "invalid scope name: "+s)
		}
		return Success()
	})
}

// ClientID fails when the subject is not a well-formed client id.
func ClientID() Check[string] {
	return Func[string](func(s string) Result {
		if !validation.ValidClientID(s) {
			return Failure("invalid_client_id", "invalid client id: "+s)
		}
		return Success()
	})
}

// SSHFingerprint fails when the subject is not a SHA256 key fingerprint.
func SSHFingerprint() Check[string] {
	return Func[string](func(s string) Result {
		if !validation.ValidSSHFingerprint(s) {
			return Failure("invalid_ssh_fingerprint", "invalid SSH key fingerprint: "+s)
		}
		return Success()
	})
}

// Each lifts a per-element check over a slice subject, failing on the first
// offending element.
func Each[T any](inner Check[T]) Check[[]T] {
	return Func[[]T](func(subjects []T) Result {
		for _, s := range subjects {
			if r := inner.Validate(s); !r.OK() {
				return r
			}
		}
		return Success()
	})
}
