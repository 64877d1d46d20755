package engine

import "errors"

// ErrorKind classifies a collaborator failure at the engine boundary.
// Transient failures drive the automatic retry path; permanent failures
// short-circuit it (a malformed source video will not get better by
// re-downloading it).
type ErrorKind int

const (
	KindTransient ErrorKind = iota
	KindPermanent
)

type StageError struct {
	Kind ErrorKind
	Err  error
}

func (e *StageError) Error() string {
	return e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Kind: KindTransient, Err: err}
}

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Kind: KindPermanent, Err: err}
}

// IsPermanent reports whether err carries a permanent classification.
// Unclassified errors are treated as transient.
func IsPermanent(err error) bool {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind == KindPermanent
	}
	return false
}
