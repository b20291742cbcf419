package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnauthorized is returned when the shared webhook secret does not match.
var ErrUnauthorized = errors.New("forbidden")

// ValidationError lists the fields that were empty or unrecognized after
// normalization.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid alert: " + strings.Join(e.Fields, ", ")
}

// PersistenceError wraps a failed write or read of the alert document.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("persistence %s: %v", e.Op, e.Err) }

func (e *PersistenceError) Unwrap() error { return e.Err }

// ProviderError wraps a market-data failure for a single ticker.
type ProviderError struct {
	Ticker string
	Op     string
	Err    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("market data %s %s: %v", e.Op, e.Ticker, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
