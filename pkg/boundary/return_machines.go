package boundary

import (
	"context"
	"time"

	"github.com/cuemby/hostbroker/pkg/brokererr"
	"github.com/cuemby/hostbroker/pkg/log"
	"github.com/cuemby/hostbroker/pkg/metrics"
)

const opRequestReturnMachines = "requestReturnMachines"

// RequestReturnMachinesInput is the requestReturnMachines operation's
// input (spec.md §6: `{machines: [{machineId}, ...]}` or `all=true`).
type RequestReturnMachinesInput struct {
	MachineIDs []string
	All        bool
}

// RequestReturnMachinesOutput is the success payload for
// requestReturnMachines. RequestID is empty (serialized as null) when the
// input machine list was empty and All was false (spec.md §8 boundary
// behaviors).
type RequestReturnMachinesOutput struct {
	RequestID *string  `json:"requestId"`
	Metadata  Metadata `json:"metadata"`
}

// RequestReturnMachines validates the input and invokes Create-Return (or
// Create-Return-All when All is set), returning the new return request's
// id. An empty, non-all machine list is a no-op success rather than a
// validation error.
func (s *Service) RequestReturnMachines(ctx context.Context, in RequestReturnMachinesInput) (RequestReturnMachinesOutput, *FailureEnvelope) {
	correlationID := newCorrelationID()
	logger := log.WithComponent("boundary").With().Str("correlation_id", correlationID).Logger()

	if !s.Limiter.Allow(opRequestReturnMachines) {
		err := brokererr.RateLimit(opRequestReturnMachines)
		metrics.BoundaryOperationsTotal.WithLabelValues(opRequestReturnMachines, "rate_limited").Inc()
		env := newFailureEnvelope(err, correlationID, "")
		return RequestReturnMachinesOutput{}, &env
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.BoundaryOperationDuration, opRequestReturnMachines)

	if !in.All && len(in.MachineIDs) == 0 {
		metrics.BoundaryOperationsTotal.WithLabelValues(opRequestReturnMachines, "noop").Inc()
		return RequestReturnMachinesOutput{
			RequestID: nil,
			Metadata: Metadata{
				CorrelationID: correlationID,
				Timestamp:     time.Now().Unix(),
			},
		}, nil
	}

	returnTimer := metrics.NewTimer()
	var requestID string
	var err error
	if in.All {
		requestID, err = s.Engine.CreateReturnAll(ctx)
	} else {
		requestID, err = s.Engine.CreateReturn(ctx, in.MachineIDs)
	}
	returnTimer.ObserveDuration(metrics.CreateReturnDuration)
	if err != nil {
		metrics.BoundaryOperationsTotal.WithLabelValues(opRequestReturnMachines, "error").Inc()
		logger.Warn().Err(err).Msg("requestReturnMachines failed")
		env := newFailureEnvelope(err, correlationID, "")
		return RequestReturnMachinesOutput{}, &env
	}

	metrics.BoundaryOperationsTotal.WithLabelValues(opRequestReturnMachines, "ok").Inc()
	logger.Info().Str("request_id", requestID).Msg("requested machine return")

	return RequestReturnMachinesOutput{
		RequestID: &requestID,
		Metadata: Metadata{
			CorrelationID: correlationID,
			Timestamp:     time.Now().Unix(),
			RequestID:     requestID,
		},
	}, nil
}
