package workgroup

import "fmt"

// InputError is a request that was rejected before any upstream call
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

// MutationError means the contributor change was not applied
type MutationError struct {
	Action    Action
	Namespace string
	Err       error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("Unable to %s for %s: %v", e.Action.describe(), e.Namespace, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// RefreshError means the contributor change was applied but the
// contributor list could not be read back afterwards
type RefreshError struct {
	Namespace string
	Err       error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("Unable to fetch contributors for %s: %v", e.Namespace, e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}
