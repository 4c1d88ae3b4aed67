package recorder

import "errors"

var errInvalidDocument = errors.New("document has no JSON encoding")
