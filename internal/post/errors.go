package post

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation wraps every input rejection. Nothing has touched the
	// network when one of these is returned.
	ErrValidation = errors.New("validation failed")

	ErrMissingImage         = fmt.Errorf("%w: image is required", ErrValidation)
	ErrEmptyComment         = fmt.Errorf("%w: comment is required", ErrValidation)
	ErrImageTooLarge        = fmt.Errorf("%w: image is too large", ErrValidation)
	ErrUnsupportedImageType = fmt.Errorf("%w: image must be JPEG, PNG or WebP", ErrValidation)
	ErrInvalidCoordinate    = fmt.Errorf("%w: coordinate out of range", ErrValidation)
	ErrCommentTooLong       = fmt.Errorf("%w: comment exceeds %d characters", ErrValidation, MaxCommentLength)

	// ErrBackend wraps list, upload and insert failures.
	ErrBackend            = errors.New("backend error")
	ErrBackendUnavailable = fmt.Errorf("%w: backend unavailable", ErrBackend)
)

func backendError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrBackend, op, err)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrBackendUnavailable, op, err)
}
