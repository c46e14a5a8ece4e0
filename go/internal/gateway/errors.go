package gateway

import (
	"errors"
	"fmt"

	"github.com/floraclash/floraclash/go/internal/match"
	"github.com/floraclash/floraclash/go/internal/matchmaking"
	"github.com/floraclash/floraclash/go/internal/players"
)

// ErrorCode is the transport-facing error class carried in ERROR
// envelopes.
type ErrorCode string

const (
	CodeValidation     ErrorCode = "VALIDATION_ERROR"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeConflict       ErrorCode = "CONCURRENCY_CONFLICT"
	CodeTransientStore ErrorCode = "TRANSIENT_STORE_ERROR"
	CodeFatalProtocol  ErrorCode = "FATAL_PROTOCOL_ERROR"
)

// TransportError pairs an error class with a client-safe message. Only
// FatalProtocol closes the connection; everything else is answered with
// an ERROR envelope and the connection stays up.
type TransportError struct {
	Code    ErrorCode
	Message string
	cause   error
}

func (e *TransportError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *TransportError) Unwrap() error { return e.cause }

// Fatal reports whether this error must terminate the connection.
func (e *TransportError) Fatal() bool { return e.Code == CodeFatalProtocol }

func (e *TransportError) payload() ErrorPayload {
	return ErrorPayload{Code: e.Code, Message: e.Message}
}

func NewValidationError(format string, args ...any) *TransportError {
	return &TransportError{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(format string, args ...any) *TransportError {
	return &TransportError{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewFatalProtocolError(format string, args ...any) *TransportError {
	return &TransportError{Code: CodeFatalProtocol, Message: fmt.Sprintf(format, args...)}
}

// classify maps a domain error onto the transport taxonomy. Anything
// unrecognized is treated as a transient store failure so the client
// retries instead of tearing down.
func classify(err error) *TransportError {
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}

	switch {
	case errors.Is(err, match.ErrMatchNotFound),
		errors.Is(err, matchmaking.ErrTicketNotFound),
		errors.Is(err, players.ErrPlayerNotFound):
		return &TransportError{Code: CodeNotFound, Message: err.Error(), cause: err}

	case errors.Is(err, match.ErrNotParticipant),
		errors.Is(err, match.ErrWrongRound),
		errors.Is(err, match.ErrRoundClosed),
		errors.Is(err, match.ErrDuplicateSubmission),
		errors.Is(err, match.ErrMatchOver),
		errors.Is(err, players.ErrInvalidUsername):
		return &TransportError{Code: CodeValidation, Message: err.Error(), cause: err}

	case errors.Is(err, match.ErrPlayerBusy),
		errors.Is(err, matchmaking.ErrTicketTaken):
		return &TransportError{Code: CodeConflict, Message: err.Error(), cause: err}

	default:
		return &TransportError{Code: CodeTransientStore, Message: "temporary failure, please retry", cause: err}
	}
}
