package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by the corpus client when a reference does not
// exist upstream. Retrying does not help.
var ErrNotFound = errors.New("text not found")

// ConfigurationError reports missing or invalid static setup. Fatal at startup.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration: " + e.Reason
}

// DataIntegrityError reports a schedule entry that contradicts the corpus
// catalog. Fatal for the affected date, never silently corrected.
type DataIntegrityError struct {
	DateKey string
	Reason  string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("schedule integrity: %s: %s", e.DateKey, e.Reason)
}

// UpstreamError wraps a failure of the corpus API or the channel transport.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// SynthesisError wraps a speech synthesis failure. Always non-fatal: delivery
// continues text-only.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("speech synthesis: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }
