package template

import "errors"

var (
	// ErrNotFound indicates no template exists for the given code and language.
	ErrNotFound = errors.New("template not found")

	// ErrCodeExists indicates the template code is already taken.
	ErrCodeExists = errors.New("template code already exists")

	// ErrMissingVariables indicates a render request omitted variables the
	// template references.
	ErrMissingVariables = errors.New("missing required variables")

	// ErrInvalidParams indicates create params failed validation.
	ErrInvalidParams = errors.New("invalid template params")
)
