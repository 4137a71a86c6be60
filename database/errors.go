package database

import "errors"

// ErrAlreadyExists signals a uniqueness conflict on insert. Callers that
// re-run over overlapping windows treat it as "already present", not a failure.
var ErrAlreadyExists = errors.New("row already exists")
