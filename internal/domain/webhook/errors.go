package webhook

import (
	"errors"
	"net/http"
)

// ErrorKind classifies a rejected payload.
type ErrorKind string

const (
	MalformedInput     ErrorKind = "malformed_input"
	StructuralMismatch ErrorKind = "structural_mismatch"
	UnsupportedEvent   ErrorKind = "unsupported_event"
)

// Messages returned to the sender for rejected payloads.
const (
	MsgNoData        = "No data received"
	MsgInvalidJSON   = "Invalid JSON payload"
	MsgNoChanges     = "No changes found in push data"
	MsgInvalidChange = "Invalid change data"
	MsgUnsupported   = "Unsupported webhook event"
)

// ValidationError is an expected rejection of an inbound payload.
type ValidationError struct {
	Kind    ErrorKind
	Message string
	Status  int
}

func (e *ValidationError) Error() string { return e.Message }

func newValidationError(kind ErrorKind, msg string) *ValidationError {
	return &ValidationError{Kind: kind, Message: msg, Status: http.StatusBadRequest}
}

// Constructors for the fixed set of rejections.
func NoData() *ValidationError { return newValidationError(MalformedInput, MsgNoData) }
func InvalidJSON() *ValidationError { return newValidationError(MalformedInput, MsgInvalidJSON) }
func NoChanges() *ValidationError { return newValidationError(StructuralMismatch, MsgNoChanges) }
func InvalidChange() *ValidationError { return newValidationError(StructuralMismatch, MsgInvalidChange) }
func Unsupported() *ValidationError { return newValidationError(UnsupportedEvent, MsgUnsupported) }

// Fault is an unanticipated processing failure, reported as 500.
type Fault struct {
	Err error
}

func (f *Fault) Error() string { return f.Err.Error() }
func (f *Fault) Unwrap() error { return f.Err }

// NewFault wraps err as a Fault.
func NewFault(err error) *Fault { return &Fault{Err: err} }

// ResultFor maps a parser error onto the response returned to the sender.
// Validation errors keep their message and status; anything else is a 500
// carrying the error text.
func ResultFor(err error) OutboundResult {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return Failure(verr.Message, verr.Status)
	}
	return Failure(err.Error(), http.StatusInternalServerError)
}
