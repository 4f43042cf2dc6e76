package policy

import "strings"

// DuplicatePolicyError is returned by Service.Add when the candidate policy
// is equivalent to one or more existing policies. IDs holds every conflicting
// policy id, in repository iteration order; the message joins them with
// commas so an operator can locate all of them at once.
type DuplicatePolicyError struct {
	IDs []string
}

func (e *DuplicatePolicyError) Error() string {
	return "duplicate scope policy: policy matches existing policies: " + strings.Join(e.IDs, ",")
}
