package iam

import (
	"errors"
	"fmt"
)

// ErrIncompleteBundle is wrapped when STS returns credentials with a missing
// field.
var ErrIncompleteBundle = errors.New("Incomplete credential bundle")

// CredentialAcquisitionError is returned when no valid credentials could be
// produced for a role.
type CredentialAcquisitionError struct {
	RoleARN string
	Err     error
}

func (err *CredentialAcquisitionError) Error() string {
	return fmt.Sprintf("Unable to acquire credentials for role %s: %s", err.RoleARN, err.Err)
}

func (err *CredentialAcquisitionError) Unwrap() error {
	return err.Err
}

func errIncompleteBundle(field string) error {
	return fmt.Errorf("%w: missing %s", ErrIncompleteBundle, field)
}
