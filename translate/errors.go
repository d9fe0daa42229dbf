package translate

import (
	"errors"
	"fmt"
)

// Error kinds returned by the translator. Match them with errors.Is.
var (
	// ErrConfiguration reports an invalid column declaration, a column
	// missing from a batch, or an incomplete backend configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrBackendUnavailable reports a model that failed to load or a
	// translation service call that failed.
	ErrBackendUnavailable = errors.New("translation backend unavailable")
	// ErrShapeMismatch reports a backend that returned a different number
	// of texts than it was given.
	ErrShapeMismatch = errors.New("translation shape mismatch")
	// ErrUnimplementedBackend reports an API-mode call without a concrete
	// client behind it.
	ErrUnimplementedBackend = errors.New("translation backend not implemented")
)

// ShapeMismatchError is returned when a backend answers a request of Want
// texts with Got texts.
type ShapeMismatchError struct {
	Want int
	Got  int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%v: sent %d texts, got %d back", ErrShapeMismatch, e.Want, e.Got)
}

// Is makes errors.Is(err, ErrShapeMismatch) match.
func (e *ShapeMismatchError) Is(target error) bool {
	return target == ErrShapeMismatch
}

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
