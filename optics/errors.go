package optics

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingObservable is matched by every MissingObservableError.
	ErrMissingObservable = errors.New("optics: missing observable")

	// ErrDuplicateKey is returned when a key is inserted twice into a Frame.
	ErrDuplicateKey = errors.New("optics: duplicate observable key")

	// ErrUnknownKind is returned for parameter names outside the supported set.
	ErrUnknownKind = errors.New("optics: unknown parameter kind")

	// ErrMalformedKey is returned for keys with an empty location or bad syntax.
	ErrMalformedKey = errors.New("optics: malformed observable key")
)

// MissingObservableError reports a requested observable absent from one side
// of a comparison. Source names the side ("model", "measurement", "response").
type MissingObservableError struct {
	Key    Key
	Source string
}

func (e *MissingObservableError) Error() string {
	if e.Key.Location == "" {
		return fmt.Sprintf("optics: missing observable kind %s in %s", e.Key.Kind, e.Source)
	}
	return fmt.Sprintf("optics: missing observable %s in %s", e.Key, e.Source)
}

// Is makes errors.Is(err, ErrMissingObservable) true.
func (e *MissingObservableError) Is(target error) bool { return target == ErrMissingObservable }
