package boundary

import (
	"encoding/json"
	"time"

	"github.com/cuemby/hostbroker/pkg/brokererr"
	"github.com/cuemby/hostbroker/pkg/log"
	"github.com/cuemby/hostbroker/pkg/metrics"
	"github.com/cuemby/hostbroker/pkg/types"
)

const (
	opGetReturnRequests = "getReturnRequests"

	defaultGracePeriodSeconds = 300
	spotGracePeriodSeconds    = 120
	returnRequestsCacheTTL    = 60 * time.Second
)

// ReturnRequestView is one entry in the getReturnRequests response.
type ReturnRequestView struct {
	RequestID          string   `json:"requestId"`
	Status             string   `json:"status"`
	MachineIDs         []string `json:"machineIds"`
	GracePeriodSeconds int      `json:"gracePeriodSeconds"`
}

// GetReturnRequestsOutput is the success payload for getReturnRequests.
type GetReturnRequestsOutput struct {
	Requests []ReturnRequestView `json:"requests"`
	Metadata Metadata            `json:"metadata"`
}

// GetReturnRequests returns every Return-type request with its grace
// period (300s, or 120s if any of its machines is spot-priced — spec.md
// §4.7). The result is cached for returnRequestsCacheTTL since this
// operation takes no per-call parameters: every call is the same query.
func (s *Service) GetReturnRequests() (GetReturnRequestsOutput, *FailureEnvelope) {
	correlationID := newCorrelationID()
	logger := log.WithComponent("boundary").With().Str("correlation_id", correlationID).Logger()

	if !s.Limiter.Allow(opGetReturnRequests) {
		err := brokererr.RateLimit(opGetReturnRequests)
		metrics.BoundaryOperationsTotal.WithLabelValues(opGetReturnRequests, "rate_limited").Inc()
		env := newFailureEnvelope(err, correlationID, "")
		return GetReturnRequestsOutput{}, &env
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.BoundaryOperationDuration, opGetReturnRequests)

	if cached, ok := s.cachedReturnRequests(); ok {
		metrics.BoundaryOperationsTotal.WithLabelValues(opGetReturnRequests, "cache_hit").Inc()
		cached.Metadata.CorrelationID = correlationID
		cached.Metadata.Timestamp = time.Now().Unix()
		return cached, nil
	}

	records, err := s.Strategy.FindAll(types.CollectionRequests)
	if err != nil {
		metrics.BoundaryOperationsTotal.WithLabelValues(opGetReturnRequests, "error").Inc()
		env := newFailureEnvelope(brokererr.Storage("list requests", err), correlationID, "")
		return GetReturnRequestsOutput{}, &env
	}

	var out GetReturnRequestsOutput
	for _, rec := range records {
		var req types.Request
		if jerr := json.Unmarshal(rec.Data, &req); jerr != nil {
			continue
		}
		if req.Type != types.RequestTypeReturn {
			continue
		}
		out.Requests = append(out.Requests, ReturnRequestView{
			RequestID:          req.RequestID,
			Status:             string(req.Status),
			MachineIDs:         req.MachineIDs,
			GracePeriodSeconds: s.gracePeriodFor(req.MachineIDs),
		})
	}
	out.Metadata = Metadata{CorrelationID: correlationID, Timestamp: time.Now().Unix()}

	s.cacheReturnRequests(out)
	metrics.BoundaryOperationsTotal.WithLabelValues(opGetReturnRequests, "ok").Inc()
	logger.Info().Int("count", len(out.Requests)).Msg("listed return requests")

	return out, nil
}

func (s *Service) gracePeriodFor(machineIDs []string) int {
	for _, id := range machineIDs {
		rec, ok, err := s.Strategy.FindByID(types.CollectionMachines, id)
		if err != nil || !ok {
			continue
		}
		var m types.Machine
		if err := json.Unmarshal(rec.Data, &m); err != nil {
			continue
		}
		if m.PriceTier == types.PriceSpot {
			return spotGracePeriodSeconds
		}
	}
	return defaultGracePeriodSeconds
}

func (s *Service) cachedReturnRequests() (GetReturnRequestsOutput, bool) {
	s.returnRequestsCacheMu.Lock()
	defer s.returnRequestsCacheMu.Unlock()
	if s.returnRequestsCachedAt.IsZero() || time.Since(s.returnRequestsCachedAt) > returnRequestsCacheTTL {
		return GetReturnRequestsOutput{}, false
	}
	return s.returnRequestsCached, true
}

func (s *Service) cacheReturnRequests(out GetReturnRequestsOutput) {
	s.returnRequestsCacheMu.Lock()
	defer s.returnRequestsCacheMu.Unlock()
	s.returnRequestsCached = out
	s.returnRequestsCachedAt = time.Now()
}
