package errors

import (
	"errors"
	"net/http"
)

// Error kinds. Callers match them with errors.Is; the concrete error usually
// arrives wrapped in *ErrorWithStatusCode or *RegistrationError.
var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateUsername = errors.New("username already registered")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrInvalidToken      = errors.New("invalid token")
	ErrRegistration      = errors.New("registration refused")
)

// default error is internal service error at handler level
// if error has different status code use ErrorWithStatusCode
type ErrorWithStatusCode struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *ErrorWithStatusCode) Error() string {
	return e.Message
}

func (e *ErrorWithStatusCode) Unwrap() error {
	return e.Err
}

// RegistrationError is a policy-level refusal to create an account.
type RegistrationError struct {
	Message string
	Err     error
}

func (e *RegistrationError) Error() string {
	return e.Message
}

func (e *RegistrationError) Is(target error) bool {
	return target == ErrRegistration
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

func NotFound(message string) error {
	return &ErrorWithStatusCode{Message: message, StatusCode: http.StatusNotFound, Err: ErrNotFound}
}

func DuplicateUsername() error {
	return &ErrorWithStatusCode{Message: "Username is already taken", StatusCode: http.StatusConflict, Err: ErrDuplicateUsername}
}

func DuplicateEmail() error {
	return &ErrorWithStatusCode{Message: "Email is already registered", StatusCode: http.StatusConflict, Err: ErrDuplicateEmail}
}

// InvalidToken never says whether the code was wrong, consumed or expired.
func InvalidToken() error {
	return &ErrorWithStatusCode{Message: "Invalid or expired confirmation code", StatusCode: http.StatusBadRequest, Err: ErrInvalidToken}
}

func Registration(message string, cause error) error {
	return &RegistrationError{Message: message, Err: cause}
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// StatusCode maps an error to the HTTP status a handler should answer with.
func StatusCode(err error) int {
	var withStatus *ErrorWithStatusCode
	var registration *RegistrationError
	switch {
	case errors.As(err, &registration):
		if errors.Is(err, ErrDuplicateUsername) || errors.Is(err, ErrDuplicateEmail) {
			return http.StatusConflict
		}
		return http.StatusForbidden
	case errors.As(err, &withStatus):
		return withStatus.StatusCode
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateUsername), errors.Is(err, ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidToken):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
