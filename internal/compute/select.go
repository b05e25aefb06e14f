package compute

import (
	"fmt"
	"log"
)

// Select builds the backend for kind. If the accelerated backend fails to
// initialize, Select logs a warning and returns the sequential backend.
// A nil logger uses the standard logger.
func Select(kind Kind, logger *log.Logger) (Backend, error) {
	if logger == nil {
		logger = log.Default()
	}
	switch kind {
	case KindSequential:
		return NewSequential(), nil
	case KindAccelerated:
		acc, err := NewAccelerated()
		if err != nil {
			logger.Printf("warning: %v; falling back to %s backend", err, KindSequential)
			return NewSequential(), nil
		}
		return acc, nil
	}
	return nil, fmt.Errorf("unknown compute backend %q", kind)
}
