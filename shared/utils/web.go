package utils

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/itchan-dev/accounts/shared/errors"
	"github.com/itchan-dev/accounts/shared/logger"
	"github.com/itchan-dev/accounts/shared/validation"
)

var requestValidator = validator.New(validator.WithRequiredStructEnabled())

type errorResponse struct {
	Error  string                        `json:"error"`
	Fields []*validation.ValidationError `json:"fields,omitempty"`
}

// WriteErrorAndStatusCode answers with the status mapped from err. Errors
// without a known kind become a 500 with a generic message.
func WriteErrorAndStatusCode(w http.ResponseWriter, err error) {
	var results *validation.Results
	var fieldErr *validation.ValidationError
	switch {
	case stderrors.As(err, &results):
		writeErrorJSON(w, http.StatusBadRequest, errorResponse{Error: "Validation failed", Fields: results.Errors()})
		return
	case stderrors.As(err, &fieldErr):
		writeErrorJSON(w, http.StatusBadRequest, errorResponse{Error: fieldErr.Error(), Fields: []*validation.ValidationError{fieldErr}})
		return
	}

	status := errors.StatusCode(err)
	if status == http.StatusInternalServerError {
		logger.Log.Error("request failed", "error", err)
		http.Error(w, "Internal error", status)
		return
	}
	http.Error(w, err.Error(), status)
}

func writeErrorJSON(w http.ResponseWriter, status int, body errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Log.Error("failed to encode error response", "error", err)
	}
}

func DecodeValidate(r io.ReadCloser, body any) error {
	if err := Decode(r, body); err != nil {
		return err
	}
	if err := requestValidator.Struct(body); err != nil {
		logger.Log.Debug("request validation failed", "error", err)
		return &errors.ErrorWithStatusCode{Message: "Required fields missing", StatusCode: http.StatusBadRequest}
	}
	return nil
}

func Decode(r io.ReadCloser, body any) error {
	if err := json.NewDecoder(r).Decode(body); err != nil {
		logger.Log.Debug("request body is not valid json", "error", err)
		return &errors.ErrorWithStatusCode{Message: "Body is invalid json", StatusCode: http.StatusBadRequest}
	}
	return nil
}
