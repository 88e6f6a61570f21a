package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cuemby/hostbroker/pkg/brokererr"
	"github.com/cuemby/hostbroker/pkg/types"
)

// activeStatuses are the Request statuses still eligible for status
// reconciliation; a terminal request has nothing left to observe.
var activeStatuses = map[types.RequestStatus]bool{
	types.RequestPending:  true,
	types.RequestCreating: true,
	types.RequestRunning:  true,
}

// StatusReconciliation runs the status-reconciliation operation for one
// request (spec.md §4.3): it polls the provider through the machine
// reconciler, attaches newly observed machines, derives the Request's
// status from its current Machine population, and enforces the
// first-observation-anchored timeout.
func (e *Engine) StatusReconciliation(ctx context.Context, requestID string) (*types.Request, error) {
	req, err := e.loadRequest(requestID)
	if err != nil {
		return nil, err
	}

	if req.Type != types.RequestTypeAcquire || !activeStatuses[req.Status] {
		return req, nil
	}

	now := time.Now()
	if req.FirstObservationAt == nil {
		req.FirstObservationAt = &now
	}
	req.LastObservationAt = &now

	if req.ProviderResourceID != "" {
		if err := e.reconciler.Reconcile(ctx, req); err != nil {
			// A failed provider poll is transient; the request is left
			// exactly as it was and is retried on the next read.
			return nil, brokererr.Transient("status reconciliation poll", err)
		}
	}

	// Reconcile attached any newly observed machine ids directly to the
	// stored Request; reload to see them.
	current, err := e.loadRequest(requestID)
	if err != nil {
		return nil, err
	}
	req.MachineIDs = current.MachineIDs

	if req.RequestedCount > 0 && len(req.MachineIDs) > req.RequestedCount {
		// More instances reported than requested (rare; re-launched spot
		// replacements): accept them but cap the tracked set (spec.md
		// §4.3 edge case).
		req.MachineIDs = req.MachineIDs[:req.RequestedCount]
	}

	running, failed, known, err := e.machineCounts(req.MachineIDs)
	if err != nil {
		return nil, err
	}

	var newStatus types.RequestStatus
	var message string
	switch {
	case req.RequestedCount > 0 && known == req.RequestedCount && running == req.RequestedCount:
		newStatus = types.RequestComplete
		message = "all machines are running"
	case req.RequestedCount > 0 && known == req.RequestedCount && failed > 0:
		newStatus = types.RequestCompleteWithError
		message = "some machines failed to start"
	case now.Sub(*req.FirstObservationAt) > time.Duration(req.TimeoutSeconds)*time.Second:
		newStatus = types.RequestFailed
		message = fmt.Sprintf("request timed out after %d seconds", req.TimeoutSeconds)
	default:
		// Fewer machines observed than requested and not yet timed out:
		// remain Running without a status change (spec.md §4.3 edge case).
		if err := e.persistRequest(req); err != nil {
			return nil, brokererr.Storage("persist observation timestamps", err)
		}
		return req, nil
	}

	if err := e.transitionAndSave(req, newStatus, message); err != nil {
		return nil, err
	}
	return req, nil
}

// machineCounts loads each machine id and tallies how many are Running
// or in a failed/terminal state. known is the count of ids that resolved
// to a stored Machine at all.
func (e *Engine) machineCounts(ids []string) (running, failed, known int, err error) {
	for _, id := range ids {
		rec, ok, ferr := e.strategy.FindByID(types.CollectionMachines, id)
		if ferr != nil {
			return 0, 0, 0, brokererr.Storage("load machine", ferr)
		}
		if !ok {
			continue
		}
		known++
		var m types.Machine
		if jerr := json.Unmarshal(rec.Data, &m); jerr != nil {
			continue
		}
		switch m.Status {
		case types.MachineRunning:
			running++
		case types.MachineFailed, types.MachineTerminated:
			failed++
		}
	}
	return running, failed, known, nil
}
