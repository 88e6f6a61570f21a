package boundary

import (
	"context"
	"time"

	"github.com/cuemby/hostbroker/pkg/brokererr"
	"github.com/cuemby/hostbroker/pkg/lifecycle"
	"github.com/cuemby/hostbroker/pkg/log"
	"github.com/cuemby/hostbroker/pkg/metrics"
)

const opRequestMachines = "requestMachines"

// RequestMachinesInput is the requestMachines operation's input
// (spec.md §6: `{template: {templateId, machineCount}}`).
type RequestMachinesInput struct {
	TemplateID   string
	MachineCount int
}

// RequestMachinesOutput is the success payload for requestMachines.
type RequestMachinesOutput struct {
	RequestID string   `json:"requestId"`
	Message   string   `json:"message"`
	Metadata  Metadata `json:"metadata"`
}

// RequestMachines validates the input, invokes Create-Acquire, and formats
// the response. machineCount <= 0 is a ValidationError; machineCount over
// the template's max_number is the more specific RequestValidationError
// (spec.md §8 boundary behaviors) — both are caught before the lifecycle
// engine is invoked, so no state is mutated on a rejected call.
func (s *Service) RequestMachines(ctx context.Context, in RequestMachinesInput) (RequestMachinesOutput, *FailureEnvelope) {
	correlationID := newCorrelationID()
	logger := log.WithComponent("boundary").With().Str("correlation_id", correlationID).Logger()

	if !s.Limiter.Allow(opRequestMachines) {
		return s.requestMachinesFailure(brokererr.RateLimit(opRequestMachines), correlationID, "rate_limited")
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.BoundaryOperationDuration, opRequestMachines)

	if in.MachineCount <= 0 {
		return s.requestMachinesFailure(brokererr.Validation("machineCount must be greater than zero"), correlationID, "validation_error")
	}

	if tmpl, err := s.Templates.Get(in.TemplateID); err == nil && in.MachineCount > tmpl.MaxNumber {
		return s.requestMachinesFailure(
			brokererr.Validation("machineCount %d exceeds template %q max_number %d", in.MachineCount, in.TemplateID, tmpl.MaxNumber).WithDetail("rule", "max_number"),
			correlationID, "validation_error")
	}

	acquireTimer := metrics.NewTimer()
	requestID, err := s.Engine.CreateAcquire(ctx, lifecycle.CreateAcquireInput{
		TemplateID: in.TemplateID,
		Count:      in.MachineCount,
	})
	acquireTimer.ObserveDuration(metrics.CreateAcquireDuration)
	if err != nil {
		return s.requestMachinesFailure(err, correlationID, "error")
	}

	metrics.BoundaryOperationsTotal.WithLabelValues(opRequestMachines, "ok").Inc()
	logger.Info().Str("request_id", requestID).Int("machine_count", in.MachineCount).Msg("requested machines")

	return RequestMachinesOutput{
		RequestID: requestID,
		Message:   "Request accepted",
		Metadata: Metadata{
			CorrelationID: correlationID,
			Timestamp:     time.Now().Unix(),
			RequestID:     requestID,
		},
	}, nil
}

func (s *Service) requestMachinesFailure(err error, correlationID, outcome string) (RequestMachinesOutput, *FailureEnvelope) {
	metrics.BoundaryOperationsTotal.WithLabelValues(opRequestMachines, outcome).Inc()
	log.WithComponent("boundary").Warn().Str("correlation_id", correlationID).Err(err).Msg("requestMachines rejected")
	env := newFailureEnvelope(err, correlationID, "")
	return RequestMachinesOutput{}, &env
}
