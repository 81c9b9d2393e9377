package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrUnknownBackend = errors.New("unknown repository backend")
	ErrCorruptRecord  = errors.New("stored player record is invalid")
)
