package service

import "errors"

// ErrNotStarted is returned by operations invoked before Start.
var ErrNotStarted = errors.New("ranking service not started")
