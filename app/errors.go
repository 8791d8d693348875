package app

import (
	"fmt"

	"github.com/artpar/sage/domain/bundle"
)

// ConfigError marks a malformed or incomplete specification document.
// It fails the whole run before any data is read.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid specification %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// FormatError marks a declared-versus-actual artifact format mismatch, or an
// archive that cannot be opened. It fails the whole package.
type FormatError struct {
	Expected bundle.Format
	Got      string
	Err      error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("artifact format error: %v", e.Err)
	}
	return fmt.Sprintf("incorrect file format: expected %s, got %s", e.Expected, e.Got)
}

func (e *FormatError) Unwrap() error { return e.Err }

// DuplicateError marks an artifact already accepted by the dedup gate.
// Distinct from validation failure so callers can offer an explicit override.
type DuplicateError struct {
	Key    string
	Detail string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate submission %q: %s", e.Key, e.Detail)
}
