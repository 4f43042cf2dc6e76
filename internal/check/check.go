// Package check implements a small framework of composable, side-effect-free
// validation checks. A Check inspects a subject and returns a Result; checks
// are combined with And (short-circuiting conjunction), Or and Not.
//
// Checks hold no mutable state, so a single shared instance per process is
// enough; nothing here needs per-call construction.
package check

// Result is the outcome of a check: success, or a failure carrying a reason
// code and a human-readable message.
type Result struct {
	failed     bool
	ReasonCode string
	Message    string
}

// Success returns a passing result.
func Success() Result {
	return Result{}
}

// Failure returns a failing result with the given reason code and message.
func Failure(reasonCode, message string) Result {
	return Result{failed: true, ReasonCode: reasonCode, Message: message}
}

// OK reports whether the check passed.
func (r Result) OK() bool {
	return !r.failed
}

// Check validates a subject of type T. Implementations must be pure: no side
// effects, deterministic for a given subject.
type Check[T any] interface {
	Validate(subject T) Result
}

// Func adapts a plain function into a Check.
type Func[T any] func(T) Result

func (f Func[T]) Validate(subject T) Result {
	return f(subject)
}
