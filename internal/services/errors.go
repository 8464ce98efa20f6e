package services

import (
	"errors"
	"fmt"
	"strings"
)

// Error markers for the compile taxonomy. Wrap tags every stage error with
// one of these so the orchestrator can classify it without string matching.
var (
	// ErrProbing: offset inference found no usable template for a media kind.
	ErrProbing = errors.New("probing error")
	// ErrIdentity: a patch or clone target name does not exist in the container.
	ErrIdentity = errors.New("identity not found")
	// ErrDecode: a source media file could not be decoded.
	ErrDecode = errors.New("decode error")
	// ErrStructural: a computed offset or size fell outside buffer bounds.
	ErrStructural = errors.New("structural error")
	// ErrSerialization: the bundle envelope writer failed.
	ErrSerialization = errors.New("serialization error")
	// ErrValidation: malformed caller input (paths, patch sets, config).
	ErrValidation = errors.New("validation error")
	// ErrConfiguration: missing or inconsistent configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound: a required input file is absent.
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrStructural
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsWarning reports whether a stage error should accumulate as a per-item
// warning instead of failing the whole compile. Everything in the taxonomy is
// a warning except configuration and validation failures, which indicate the
// compile request itself is unusable.
func IsWarning(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrValidation):
		return false
	default:
		return true
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "stage failure"
	}
	return strings.Join(parts, ": ")
}
