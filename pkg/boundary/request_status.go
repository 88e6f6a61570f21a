package boundary

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cuemby/hostbroker/pkg/brokererr"
	"github.com/cuemby/hostbroker/pkg/log"
	"github.com/cuemby/hostbroker/pkg/metrics"
	"github.com/cuemby/hostbroker/pkg/types"
)

const (
	opGetRequestStatus   = "getRequestStatus"
	statusPollMaxRetries = 3
)

// GetRequestStatusInput is the getRequestStatus operation's input
// (spec.md §6: one or more `requestId`s, or `all=true` for active
// requests).
type GetRequestStatusInput struct {
	RequestIDs []string
	All        bool
}

// MachineStatusView is the machine-level status-report format
// (spec.md §6).
type MachineStatusView struct {
	MachineID        string `json:"machineId"`
	Name             string `json:"name"`
	Status           string `json:"status"`
	InstanceType     string `json:"instanceType"`
	PrivateIPAddress string `json:"privateIpAddress"`
	Result           string `json:"result"`
	LaunchTime       int64  `json:"launchtime"`
	PublicIPAddress  string `json:"publicIpAddress,omitempty"`
	Message          string `json:"message,omitempty"`
}

// RequestStatusView is one entry in the getRequestStatus response.
type RequestStatusView struct {
	RequestID string              `json:"requestId"`
	Status    string              `json:"status"`
	Message   string              `json:"message,omitempty"`
	Machines  []MachineStatusView `json:"machines"`
}

// RequestStatusError is one entry in getRequestStatus's partial-failure
// list (spec.md §4.7 "Partial failures are collected per-request in an
// errors array").
type RequestStatusError struct {
	RequestID string `json:"requestId"`
	Error     string `json:"error"`
	Message   string `json:"message"`

	cause error
}

// GetRequestStatusOutput is the success payload for getRequestStatus. It
// is still returned (not a FailureEnvelope) when some requested ids
// failed, as long as at least one succeeded (spec.md §4.7).
type GetRequestStatusOutput struct {
	Requests []RequestStatusView  `json:"requests"`
	Errors   []RequestStatusError `json:"errors,omitempty"`
	Metadata Metadata             `json:"metadata"`
}

// GetRequestStatus reconciles and reports the status of one or more
// requests. Each request is polled independently with up to
// statusPollMaxRetries attempts on a transient provider error;
// RequestNotFound is never retried. The overall call fails only if every
// requested id failed to resolve.
func (s *Service) GetRequestStatus(ctx context.Context, in GetRequestStatusInput) (GetRequestStatusOutput, *FailureEnvelope) {
	correlationID := newCorrelationID()
	logger := log.WithComponent("boundary").With().Str("correlation_id", correlationID).Logger()

	if !s.Limiter.Allow(opGetRequestStatus) {
		err := brokererr.RateLimit(opGetRequestStatus)
		metrics.BoundaryOperationsTotal.WithLabelValues(opGetRequestStatus, "rate_limited").Inc()
		env := newFailureEnvelope(err, correlationID, "")
		return GetRequestStatusOutput{}, &env
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.BoundaryOperationDuration, opGetRequestStatus)

	ids := in.RequestIDs
	if in.All {
		active, err := s.activeAcquireRequestIDs()
		if err != nil {
			metrics.BoundaryOperationsTotal.WithLabelValues(opGetRequestStatus, "error").Inc()
			env := newFailureEnvelope(err, correlationID, "")
			return GetRequestStatusOutput{}, &env
		}
		ids = active
	}

	var out GetRequestStatusOutput
	for _, id := range ids {
		req, err := s.pollRequestStatus(ctx, id)
		if err != nil {
			out.Errors = append(out.Errors, RequestStatusError{
				RequestID: id,
				Error:     errorTypeFor(err),
				Message:   err.Error(),
				cause:     err,
			})
			logger.Warn().Str("request_id", id).Err(err).Msg("status reconciliation failed")
			continue
		}
		view, err := s.toRequestStatusView(req)
		if err != nil {
			out.Errors = append(out.Errors, RequestStatusError{
				RequestID: id,
				Error:     errorTypeFor(err),
				Message:   err.Error(),
				cause:     err,
			})
			continue
		}
		out.Requests = append(out.Requests, view)
	}

	if len(out.Requests) == 0 && len(out.Errors) > 0 {
		metrics.BoundaryOperationsTotal.WithLabelValues(opGetRequestStatus, "error").Inc()
		env := newFailureEnvelope(out.Errors[0].wrap(), correlationID, out.Errors[0].RequestID)
		return GetRequestStatusOutput{}, &env
	}

	metrics.BoundaryOperationsTotal.WithLabelValues(opGetRequestStatus, "ok").Inc()
	out.Metadata = Metadata{CorrelationID: correlationID, Timestamp: time.Now().Unix()}
	return out, nil
}

// wrap turns a RequestStatusError back into an error for the all-failed
// case, where the overall call must surface a single FailureEnvelope.
func (e RequestStatusError) wrap() error {
	if e.cause != nil {
		return e.cause
	}
	switch e.Error {
	case "RequestNotFoundError":
		return brokererr.NotFound("Request", e.RequestID)
	default:
		return brokererr.Internal(nil)
	}
}

// pollRequestStatus runs StatusReconciliation for one request, retrying
// up to statusPollMaxRetries times on a transient provider error.
// RequestNotFound and every other error kind are returned immediately.
func (s *Service) pollRequestStatus(ctx context.Context, requestID string) (*types.Request, error) {
	var lastErr error
	for attempt := 0; attempt < statusPollMaxRetries; attempt++ {
		req, err := s.Engine.StatusReconciliation(ctx, requestID)
		if err == nil {
			return req, nil
		}
		if !brokererr.IsKind(err, brokererr.KindTransient) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (s *Service) activeAcquireRequestIDs() ([]string, error) {
	records, err := s.Strategy.FindAll(types.CollectionRequests)
	if err != nil {
		return nil, brokererr.Storage("list requests", err)
	}
	var ids []string
	for _, rec := range records {
		var req types.Request
		if jerr := json.Unmarshal(rec.Data, &req); jerr != nil {
			continue
		}
		if req.Type == types.RequestTypeAcquire && !req.Status.IsTerminal() {
			ids = append(ids, req.RequestID)
		}
	}
	return ids, nil
}

func (s *Service) toRequestStatusView(req *types.Request) (RequestStatusView, error) {
	view := RequestStatusView{
		RequestID: req.RequestID,
		Status:    string(req.Status),
		Message:   req.Message,
	}
	for _, id := range req.MachineIDs {
		rec, ok, err := s.Strategy.FindByID(types.CollectionMachines, id)
		if err != nil {
			return RequestStatusView{}, brokererr.Storage("load machine", err)
		}
		if !ok {
			continue
		}
		var m types.Machine
		if err := json.Unmarshal(rec.Data, &m); err != nil {
			continue
		}
		view.Machines = append(view.Machines, toMachineStatusView(m))
	}
	return view, nil
}

func toMachineStatusView(m types.Machine) MachineStatusView {
	var launchTime int64
	if m.LaunchedAt != nil {
		launchTime = m.LaunchedAt.Unix()
	}
	return MachineStatusView{
		MachineID:        m.MachineID,
		Name:             m.DNSName,
		Status:           string(m.Status),
		InstanceType:     m.MachineType,
		PrivateIPAddress: m.PrivateAddress,
		Result:           m.Status.Result(),
		LaunchTime:       launchTime,
		PublicIPAddress:  m.PublicAddress,
		Message:          m.Reason,
	}
}
