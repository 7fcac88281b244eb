package adapters

import "errors"

var errNilClient = errors.New("nil control-plane client")

var errUnsupportedKind = errors.New("unsupported resource kind")
