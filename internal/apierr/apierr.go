package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes for the ingestion and mapping pipeline.
const (
	CodeInvalidSource    = "invalid_source"
	CodeExtractionFailed = "extraction_failed"
	CodeNotFound         = "not_found"
	CodeInvalidState     = "invalid_state"
	CodeUnknownBlock     = "unknown_block"
	CodeStorageFailed    = "storage_failed"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func InvalidSource(err error) *Error {
	return New(http.StatusBadRequest, CodeInvalidSource, err)
}

func ExtractionFailed(err error) *Error {
	return New(http.StatusBadGateway, CodeExtractionFailed, err)
}

func NotFound(err error) *Error {
	return New(http.StatusNotFound, CodeNotFound, err)
}

func InvalidState(err error) *Error {
	return New(http.StatusConflict, CodeInvalidState, err)
}

func UnknownBlock(err error) *Error {
	return New(http.StatusBadRequest, CodeUnknownBlock, err)
}

func StorageFailed(err error) *Error {
	return New(http.StatusInternalServerError, CodeStorageFailed, err)
}

// Code returns the pipeline error code carried by err, or "" when err is not
// an *Error.
func Code(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// Status returns the HTTP status carried by err, defaulting to 500.
func Status(err error) int {
	var ae *Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}
