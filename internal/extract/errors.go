package extract

import "github.com/pkg/errors"

// ConnectionError reports that the resolver socket could not be opened, or
// was closed before a result arrived.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return "connecting to " + e.Endpoint + ": " + e.Err.Error()
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Cause supports errors.Cause.
func (e *ConnectionError) Cause() error { return e.Err }

// DecryptionError reports a malformed ciphertext, a bad key or bad padding.
type DecryptionError struct {
	Reason string
	Err    error
}

func (e *DecryptionError) Error() string {
	if e.Err != nil {
		return "decrypting sources: " + e.Reason + ": " + e.Err.Error()
	}
	return "decrypting sources: " + e.Reason
}

func (e *DecryptionError) Unwrap() error { return e.Err }

// ParseError reports a malformed JSON fragment. Only the fragment is dropped.
type ParseError struct {
	Fragment string
	Err      error
}

func (e *ParseError) Error() string {
	return "parsing " + e.Fragment + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrTimeout is logged when the deadline passes before the result arrives.
// It is never returned to callers of Resolve.
var ErrTimeout = errors.New("timed out waiting for sources")

var errNotArray = errors.New("expected an array of sources")

func decryptionError(reason string, err error) error {
	if err != nil {
		err = errors.WithStack(err)
	}
	return &DecryptionError{Reason: reason, Err: err}
}

func parseError(fragment string, err error) error {
	return &ParseError{Fragment: fragment, Err: errors.Wrap(err, "invalid json")}
}
