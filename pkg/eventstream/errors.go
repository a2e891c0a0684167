package eventstream

import "errors"

// ErrNilResultEvent indicates a nil result event payload was provided to a publisher.
var ErrNilResultEvent = errors.New("nil result event")

// ErrNilBatchEvent indicates a nil batch event payload was provided to a publisher.
var ErrNilBatchEvent = errors.New("nil batch event")
