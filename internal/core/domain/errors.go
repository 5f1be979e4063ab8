package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("document not found")
	ErrExtraction       = errors.New("text extraction failed")
	ErrEmptyDocument    = errors.New("document has no extractable text")
	ErrIndexWrite       = errors.New("vector index write failed")
	ErrGenerationFormat = errors.New("generation output not parseable")
	ErrConfiguration    = errors.New("invalid configuration")
	ErrUpstreamTimeout  = errors.New("upstream call timed out")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTemporary        = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
