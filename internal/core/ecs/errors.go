package ecs

import "github.com/rotisserie/eris"

// Usage errors. None of them are fatal: the World logs them and leaves its
// state untouched.
var (
	ErrAlreadyRegistered = eris.New("already registered")
	ErrNotRegistered     = eris.New("not registered")
	ErrAlreadyAttached   = eris.New("component already attached")
	ErrNotAttached       = eris.New("component not attached")
	ErrEntityNotAlive    = eris.New("entity not alive")
	ErrEmptyQuery        = eris.New("empty query")
	ErrNilUpdate         = eris.New("nil update function")
	ErrLabelInUse        = eris.New("label already in use")
)
