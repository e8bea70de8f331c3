package port

import "errors"

// ErrVersionConflict is returned by Save when the stored version no
// longer matches the expected version (a concurrent transition won).
var ErrVersionConflict = errors.New("version conflict")
