package errorutil

import "errors"

// ErrDataIntegrity is the base error for failures caused by malformed or
// unrecoverable input records. Adapter-layer errors wrap it so callers can
// distinguish bad input from internal failures with a single errors.Is.
var ErrDataIntegrity = errors.New("data integrity error")
