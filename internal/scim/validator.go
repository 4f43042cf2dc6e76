package scim

import "fmt"

// BulkPayloadSizeError is returned when a bulk request exceeds the configured
// maximum number of operations. Non-retryable as-is: the caller must split
// the batch.
type BulkPayloadSizeError struct {
	Size int
	Max  int
}

func (e *BulkPayloadSizeError) Error() string {
	return fmt.Sprintf("bulk payload exceeds the maximum number of operations allowed (%d)", e.Max)
}

// ValidateBulk is the precondition gate on a bulk request: it fails when the
// batch holds more than max operations, before any operation is dispatched.
// It is pure: success has no side effect, and a failure means no element of
// the batch was processed. Evaluated once per incoming batch, ahead of any
// per-operation authorization or mutation.
func ValidateBulk(ops []BulkOperation, max int) error {
	if max <= 0 {
		max = DefaultMaxOperations
	}
	if len(ops) > max {
		return &BulkPayloadSizeError{Size: len(ops), Max: max}
	}
	return nil
}
