package store

import "errors"

// ErrStorageUnavailable means the durable store could not be opened or
// migrated. This is fatal to every dependent feature: nothing will
// persist, and the application must degrade to an in-memory read-only
// mode with a visible warning.
var ErrStorageUnavailable = errors.New("local storage unavailable")
