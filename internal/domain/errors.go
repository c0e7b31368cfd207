package domain

import "errors"

var (
	ErrEmptyIdentity   = errors.New("identity is empty")
	ErrInvalidIdentity = errors.New("identity is invalid")
	// ErrInvalidIntent marks a connect or send issued outside its required state.
	// Callers may ignore it: the intent has no effect.
	ErrInvalidIntent = errors.New("invalid intent")
)
