package compute

import "errors"

// ErrUnknownBackend indicates a backend name with no registered factory.
var ErrUnknownBackend = errors.New("compute: unknown backend")
