package lang

import "errors"

// ErrInvalid indicates an unrecognized language code was specified.
var ErrInvalid = errors.New("invalid language code")
