package settings

import "errors"

// ErrNotFound is returned when no blob is stored under the requested key.
var ErrNotFound = errors.New("settings: key not found")
