package anonymize

import (
	"errors"
	"fmt"
)

// ErrNotImplemented is returned by ToAnonymize on models that have been
// declared but whose rewrite has not been written yet.
var ErrNotImplemented = errors.New("ToAnonymize is not implemented")

// ErrDuplicateModel is returned when two models register the same name.
var ErrDuplicateModel = errors.New("model already registered")

// ContractError reports a model that does not honor the anonymization
// contract: a bad declaration or a rewrite that cannot be applied.
type ContractError struct {
	Model  string
	Reason string
	Err    error
}

func (e *ContractError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model %s: %s: %v", e.Model, e.Reason, e.Err)
	}
	return fmt.Sprintf("model %s: %s", e.Model, e.Reason)
}

func (e *ContractError) Unwrap() error {
	return e.Err
}
