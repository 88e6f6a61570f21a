package lifecycle

import (
	"encoding/json"
	"time"

	"github.com/cuemby/hostbroker/pkg/brokererr"
	"github.com/cuemby/hostbroker/pkg/storage"
	"github.com/cuemby/hostbroker/pkg/types"
)

// saveRequest persists req as a new record and registers events,
// committed atomically through a single unit of work.
func (e *Engine) saveRequest(req *types.Request, events ...types.Event) error {
	uow, err := e.uow.Begin("Request:" + req.RequestID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(req)
	if err != nil {
		uow.Rollback()
		return err
	}
	if err := uow.Save(types.CollectionRequests, storage.Record{ID: req.RequestID, Data: data}); err != nil {
		uow.Rollback()
		return err
	}
	for _, ev := range events {
		uow.Register(ev)
	}
	return uow.Commit()
}

// persistRequest saves req's current in-memory state without registering
// any event, for mid-operation field updates (launch template info,
// observation timestamps) that aren't themselves domain events.
func (e *Engine) persistRequest(req *types.Request) error {
	return e.saveRequest(req)
}

// transitionAndSave validates req's current status against newStatus,
// applies it, and persists the change together with a
// RequestStatusChanged event. A disallowed transition is returned
// without mutating or saving anything.
func (e *Engine) transitionAndSave(req *types.Request, newStatus types.RequestStatus, message string) error {
	if err := transitionRequest(req.RequestID, req.Status, newStatus); err != nil {
		return err
	}
	old := req.Status
	req.Status = newStatus
	if message != "" {
		req.Message = message
	}
	return e.saveRequest(req, types.Event{
		Type:          types.EventRequestStatusChanged,
		Timestamp:     time.Now(),
		AggregateType: "Request",
		AggregateID:   req.RequestID,
		OldStatus:     string(old),
		NewStatus:     string(newStatus),
		Reason:        message,
	})
}

func (e *Engine) loadRequest(id string) (*types.Request, error) {
	rec, ok, err := e.strategy.FindByID(types.CollectionRequests, id)
	if err != nil {
		return nil, brokererr.Storage("load request", err)
	}
	if !ok {
		return nil, brokererr.NotFound("Request", id)
	}
	var req types.Request
	if err := json.Unmarshal(rec.Data, &req); err != nil {
		return nil, brokererr.Internal(err)
	}
	return &req, nil
}
