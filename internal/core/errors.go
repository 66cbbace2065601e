package core

// errors.go defines the error taxonomy shared by the service and the web
// layer. Handlers match with errors.Is and translate to HTTP statuses:
//
//	ErrInvalidInput -> 400 (message is safe to return to the caller)
//	ErrUnauthorized -> 401
//	ErrNotFound     -> 404
//	ErrBadFile      -> 400 (unparseable spreadsheet, aborts the import)
//
// Row-level import failures are not errors in this sense; they are
// collected as strings in ImportResult.Errors and never fail the request.

import "errors"

var (
	// ErrNotFound marks a record that does not exist or is outside the
	// caller's visibility scope. The two cases are deliberately
	// indistinguishable.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput marks a request that failed validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized marks missing or bad credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrBadFile marks a spreadsheet that could not be parsed at all.
	ErrBadFile = errors.New("bad file")
)

// messageError carries a caller-facing message while matching a sentinel
// via errors.Is.
type messageError struct {
	sentinel error
	msg      string
}

func (e *messageError) Error() string        { return e.msg }
func (e *messageError) Is(target error) bool { return target == e.sentinel }

// IsNotFound reports whether err marks a missing or out-of-scope record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// InvalidInput returns a validation error whose message is safe to show
// to the caller.
func InvalidInput(msg string) error {
	return &messageError{sentinel: ErrInvalidInput, msg: msg}
}

// BadFile returns a file-level import error whose message is safe to show
// to the caller.
func BadFile(msg string) error {
	return &messageError{sentinel: ErrBadFile, msg: msg}
}
