// Package handlers implements the HTTP handlers of the formula-inference API.
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/turtacn/FormulaInfer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FormulaInfer/pkg/errors"
	"github.com/turtacn/FormulaInfer/pkg/types/common"
)

// DefaultMaxBodySize caps request bodies when no limit is configured.
const DefaultMaxBodySize int64 = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeError renders err as an ErrorDetail with the status mapped from its
// code.  Errors without a code and internal errors are masked.
func writeError(w http.ResponseWriter, logger logging.Logger, err error) {
	code := errors.GetCode(err)
	if code == errors.CodeUnknown {
		code = errors.ErrCodeInternal
	}
	status := errors.HTTPStatusForCode(code)

	body := common.ErrorDetail{
		Code:    string(code),
		Message: errors.MessageOf(err),
		Detail:  errors.DetailOf(err),
	}
	if status >= http.StatusInternalServerError && status != http.StatusGatewayTimeout {
		logger.Error("request failed", logging.Err(err), logging.String("code", string(code)))
		body.Message = errors.DefaultMessageForCode(code)
		body.Detail = ""
	}
	writeJSON(w, status, body)
}

// decodeJSON reads a single JSON object from the request body into dst.
// Unknown fields, trailing data and oversized bodies are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst interface{}) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodySize
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case stderrors.As(err, &tooLarge):
			return errors.Newf(errors.ErrCodeBadRequest, "request body exceeds %d bytes", maxBytes)
		case stderrors.Is(err, io.EOF):
			return errors.New(errors.ErrCodeBadRequest, "request body is empty")
		default:
			return errors.New(errors.ErrCodeBadRequest, "malformed JSON body").WithDetail(err.Error())
		}
	}
	if dec.More() {
		return errors.New(errors.ErrCodeBadRequest, "request body must contain a single JSON object")
	}
	return nil
}

func orNop(logger logging.Logger) logging.Logger {
	if logger == nil {
		return logging.NewNopLogger()
	}
	return logger
}
