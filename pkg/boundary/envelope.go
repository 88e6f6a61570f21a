// Package boundary implements the five scheduler-facing operations
// (spec.md §4.7, §6): getAvailableTemplates, requestMachines,
// requestReturnMachines, getRequestStatus, getReturnRequests. Every
// operation validates input, acquires a rate-limit token if one is
// configured, invokes the lifecycle engine or template store, formats the
// JSON response envelope, and records metrics — mirroring cuemby/warren's
// pkg/api request-handling shape (validate, dispatch, log, instrument)
// without the gRPC transport, since hostbroker's external interface is a
// JSON envelope over stdin/stdout or HTTP (spec.md §6), not RPC.
package boundary

import (
	"time"

	"github.com/google/uuid"

	"github.com/cuemby/hostbroker/pkg/brokererr"
)

// Metadata is attached to every response envelope, success or failure.
type Metadata struct {
	CorrelationID string `json:"correlation_id"`
	Timestamp     int64  `json:"timestamp"`
	RequestID     string `json:"request_id,omitempty"`
	ErrorType     string `json:"error_type,omitempty"`
}

// FailureEnvelope is the output envelope shape on failure (spec.md §6).
type FailureEnvelope struct {
	Error    string   `json:"error"`
	Message  string   `json:"message"`
	Metadata Metadata `json:"metadata"`
}

// newCorrelationID generates a fresh correlation id for one boundary call.
func newCorrelationID() string {
	return uuid.New().String()
}

// newFailureEnvelope builds the failure envelope for err, tagging its
// metadata with the error_type string spec.md §7 defines (errorTypeFor) and
// the request id of the item that failed, if any.
func newFailureEnvelope(err error, correlationID, requestID string) FailureEnvelope {
	return FailureEnvelope{
		Error:   errorTypeFor(err),
		Message: err.Error(),
		Metadata: Metadata{
			CorrelationID: correlationID,
			Timestamp:     time.Now().Unix(),
			RequestID:     requestID,
			ErrorType:     errorTypeFor(err),
		},
	}
}

// errorTypeFor maps a brokererr.Error's Kind (and, where the taxonomy is
// ambiguous on its own, its Details) to one of the stable error_type tags
// spec.md §6 names explicitly. Kinds that aren't a *brokererr.Error at all
// (a bare error slipping past a layer boundary) map to InternalError, per
// spec.md §7 "Unhandled errors produce error_type=InternalError".
func errorTypeFor(err error) string {
	var e *brokererr.Error
	if !brokererr.As(err, &e) {
		return "InternalError"
	}

	switch e.Kind {
	case brokererr.KindValidation:
		if e.Details["rule"] == "max_number" {
			return "RequestValidationError"
		}
		return "ValidationError"
	case brokererr.KindNotFound:
		switch e.Details["resource"] {
		case "Template":
			return "TemplateNotFoundError"
		case "Request":
			return "RequestNotFoundError"
		case "Machine":
			return "MachineNotFoundError"
		default:
			return "ResourceNotFoundError"
		}
	case brokererr.KindInvalidStateTransition:
		switch e.Details["aggregate_type"] {
		case "Machine":
			return "InvalidMachineStateError"
		default:
			return "InvalidRequestStateError"
		}
	case brokererr.KindRateLimit:
		return "RateLimitExceeded"
	case brokererr.KindProvider, brokererr.KindTransient, brokererr.KindStorage, brokererr.KindTimeout:
		return "InfrastructureError"
	default:
		return "InternalError"
	}
}
