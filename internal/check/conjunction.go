package check

// Conjunction is a short-circuiting AND over an ordered list of checks.
// Validate runs the checks in order and returns the first failure verbatim,
// preserving its reason code and message; later checks are not evaluated.
// Callers may rely on the evaluation order for deterministic error reporting.
type Conjunction[T any] struct {
	checks   []Check[T]
	fallback string
}

// And builds a Conjunction. The fallback message is used when a failing check
// carries no message of its own.
func And[T any](fallback string, checks ...Check[T]) Conjunction[T] {
	return Conjunction[T]{checks: checks, fallback: fallback}
}

func (c Conjunction[T]) Validate(subject T) Result {
	for _, chk := range c.checks {
		if r := chk.Validate(subject); !r.OK() {
			if r.Message == "" {
				r.Message = c.fallback
			}
			return r
		}
	}
	return Success()
}

// Disjunction is an OR over an ordered list of checks: the first success
// wins; if every check fails the last failure is returned.
type Disjunction[T any] struct {
	checks   []Check[T]
	fallback string
}

// Or builds a Disjunction with a fallback message for empty check lists.
func Or[T any](fallback string, checks ...Check[T]) Disjunction[T] {
	return Disjunction[T]{checks: checks, fallback: fallback}
}

func (d Disjunction[T]) Validate(subject T) Result {
	last := Failure("no_checks", d.fallback)
	for _, chk := range d.checks {
		r := chk.Validate(subject)
		if r.OK() {
			return r
		}
		last = r
	}
	return last
}

// Not inverts a check. A passing inner check becomes a failure with the given
// reason code and message; a failing inner check becomes a success.
func Not[T any](inner Check[T], reasonCode, message string) Check[T] {
	return Func[T](func(subject T) Result {
		if inner.Validate(subject).OK() {
			return Failure(reasonCode, message)
		}
		return Success()
	})
}
