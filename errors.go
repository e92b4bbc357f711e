package accountd

import (
	"errors"
)

// Store-level sentinel errors. The flows translate these into user-facing
// responses at the HTTP boundary; nothing leaves the core untranslated.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrSubjectTaken    = errors.New("provider subject already registered")

	// ErrProvenanceConflict is returned when a federated login matches a
	// local account by email and the conflict policy forbids linking.
	ErrProvenanceConflict = errors.New("email belongs to a password account")
)

// FieldError is one entry of the per-field list returned when request
// validation fails. Validation collects every failure, not just the first.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
