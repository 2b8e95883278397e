package apperr

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrAlreadyExists  = errors.New("already exists")
	ErrValidation     = errors.New("validation failed")
	ErrDuplicateLabel = errors.New("duplicate label")
	ErrIncompleteRule = errors.New("incomplete conditional rule")
)
