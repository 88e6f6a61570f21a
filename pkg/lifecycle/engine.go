// Package lifecycle implements the Request lifecycle engine (spec.md
// §4.3): the Create-Acquire and Create-Return operations, and the
// status-reconciliation operation invoked on every status read.
package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cuemby/hostbroker/pkg/brokererr"
	"github.com/cuemby/hostbroker/pkg/log"
	"github.com/cuemby/hostbroker/pkg/provider"
	"github.com/cuemby/hostbroker/pkg/reconcile"
	"github.com/cuemby/hostbroker/pkg/storage"
	"github.com/cuemby/hostbroker/pkg/template"
	"github.com/cuemby/hostbroker/pkg/types"
	"github.com/cuemby/hostbroker/pkg/unitofwork"
)

const (
	defaultTimeoutSeconds = 3600
	maxTimeoutSeconds     = 86400
)

// QuotaChecker is an optional provider-quota pre-check (spec.md §4.3
// step 2). A nil QuotaChecker skips the check entirely.
type QuotaChecker interface {
	CheckQuota(ctx context.Context, tmpl *types.Template, count int) error
}

// Engine drives the Request state machine through its Create-Acquire and
// Create-Return operations, and reconciles a Request's status against its
// Machines' observed state on demand.
type Engine struct {
	strategy   storage.Strategy
	uow        *unitofwork.Factory
	templates  *template.Store
	registry   *provider.Registry
	reconciler *reconcile.Reconciler
	quota      QuotaChecker
}

// NewEngine builds an Engine. quota may be nil to skip the optional
// provider-quota pre-check.
func NewEngine(strategy storage.Strategy, uow *unitofwork.Factory, templates *template.Store, registry *provider.Registry, reconciler *reconcile.Reconciler, quota QuotaChecker) *Engine {
	return &Engine{
		strategy:   strategy,
		uow:        uow,
		templates:  templates,
		registry:   registry,
		reconciler: reconciler,
		quota:      quota,
	}
}

// CreateAcquireInput is the Create-Acquire operation's input (spec.md
// §4.3).
type CreateAcquireInput struct {
	TemplateID     string
	Count          int
	TimeoutSeconds int
	Tags           map[string]string
	Metadata       map[string]string
}

// CreateAcquire runs the full Create-Acquire operation and returns the
// new Request's id immediately; machine provisioning continues
// asynchronously and is observed through StatusReconciliation.
func (e *Engine) CreateAcquire(ctx context.Context, in CreateAcquireInput) (string, error) {
	tmpl, err := e.templates.Get(in.TemplateID)
	if err != nil {
		return "", err
	}

	if e.quota != nil {
		if err := e.quota.CheckQuota(ctx, &tmpl, in.Count); err != nil {
			return "", err
		}
	}

	timeout := in.TimeoutSeconds
	if timeout <= 0 {
		timeout = defaultTimeoutSeconds
	}
	if timeout > maxTimeoutSeconds {
		timeout = maxTimeoutSeconds
	}

	req := &types.Request{
		RequestID:      "req-" + uuid.New().String(),
		Type:           types.RequestTypeAcquire,
		TemplateID:     in.TemplateID,
		RequestedCount: in.Count,
		Strategy:       tmpl.Strategy,
		Status:         types.RequestPending,
		CreatedAt:      time.Now(),
		TimeoutSeconds: timeout,
		Tags:           in.Tags,
		Metadata:       in.Metadata,
	}

	if err := e.saveRequest(req, types.Event{
		Type:          types.EventRequestCreated,
		Timestamp:     req.CreatedAt,
		AggregateType: "Request",
		AggregateID:   req.RequestID,
		NewStatus:     string(req.Status),
	}); err != nil {
		return "", brokererr.Storage("persist new request", err)
	}

	if err := e.provisionAcquire(ctx, req, &tmpl); err != nil {
		// provisionAcquire has already persisted the Failed transition;
		// the request id is still returned so the caller can inspect it.
		log.WithComponent("lifecycle").Warn().Err(err).Str("request_id", req.RequestID).Msg("create-acquire failed after request was created")
	}
	return req.RequestID, nil
}

// provisionAcquire runs steps (5)-(6) of Create-Acquire: create the
// provider-side launch template, then acquire the provider resource.
// Any failure here transitions the Request to Failed with an
// explanatory message before being surfaced.
func (e *Engine) provisionAcquire(ctx context.Context, req *types.Request, tmpl *types.Template) error {
	if err := e.transitionAndSave(req, types.RequestCreating, ""); err != nil {
		return err
	}

	handler, err := e.registry.Dispatch(req.Strategy)
	if err != nil {
		return e.failRequest(req, fmt.Sprintf("no handler registered for strategy %q: %v", req.Strategy, err))
	}

	templateID, version, err := handler.CreateLaunchTemplate(ctx, tmpl, req)
	if err != nil {
		return e.failRequest(req, fmt.Sprintf("create launch template: %v", err))
	}
	req.LaunchTemplateID = templateID
	req.LaunchTemplateVersion = version
	if err := e.persistRequest(req); err != nil {
		return brokererr.Storage("persist launch template info", err)
	}

	resourceID, err := handler.AcquireHosts(ctx, req, tmpl)
	if err != nil {
		return e.failRequest(req, fmt.Sprintf("acquire hosts: %v", err))
	}
	req.ProviderResourceID = resourceID

	return e.transitionAndSave(req, types.RequestRunning, "")
}

// failRequest transitions req to Failed with message and persists it,
// returning the original error the caller should still surface. A
// transition error while already failing is logged, not propagated —
// the original failure is what matters to the caller.
func (e *Engine) failRequest(req *types.Request, message string) error {
	original := brokererr.Provider("create-acquire", fmt.Errorf("%s", message))
	if err := e.transitionAndSave(req, types.RequestFailed, message); err != nil {
		log.WithComponent("lifecycle").Warn().Err(err).Str("request_id", req.RequestID).Msg("failed to persist Failed transition")
	}
	return original
}

// CreateReturn runs the Create-Return operation for an explicit list of
// machine ids.
func (e *Engine) CreateReturn(ctx context.Context, machineIDs []string) (string, error) {
	machines, err := e.loadRunningMachines(machineIDs)
	if err != nil {
		return "", err
	}
	return e.createReturnForMachines(ctx, machines)
}

// CreateReturnAll runs the Create-Return operation over every currently
// Running machine (spec.md §9's "create_return_request_all", the
// grouped-by-handler-and-resource-id variant is authoritative — see
// DESIGN.md).
func (e *Engine) CreateReturnAll(ctx context.Context) (string, error) {
	machines, err := e.activeMachines()
	if err != nil {
		return "", err
	}
	if len(machines) == 0 {
		return "", brokererr.Validation("no active machines found")
	}
	return e.createReturnForMachines(ctx, machines)
}

// createReturnForMachines groups machines by their originating request's
// provider-strategy and resource id, releases each group through its
// handler, and persists one new Return Request referencing every
// machine.
func (e *Engine) createReturnForMachines(ctx context.Context, machines []*types.Machine) (string, error) {
	groups := groupByHandler(machines)
	machineIDs := make([]string, 0, len(machines))
	for _, m := range machines {
		machineIDs = append(machineIDs, m.MachineID)
	}

	returnReq := &types.Request{
		RequestID:      "ret-" + uuid.New().String(),
		Type:           types.RequestTypeReturn,
		RequestedCount: len(machineIDs),
		Status:         types.RequestRunning,
		CreatedAt:      time.Now(),
		MachineIDs:     machineIDs,
	}

	for _, group := range groups {
		handler, err := e.registry.Dispatch(group.strategy)
		if err != nil {
			return "", brokererr.Provider("dispatch release handler", err)
		}
		releaseReq := &types.Request{
			RequestID:          returnReq.RequestID,
			ProviderResourceID: group.resourceID,
			MachineIDs:         group.machineIDs(),
		}
		if err := handler.ReleaseHosts(ctx, releaseReq, group.machineIDs()); err != nil {
			return "", brokererr.Provider("release hosts", err)
		}
	}

	if err := e.saveRequest(returnReq, types.Event{
		Type:          types.EventRequestCreated,
		Timestamp:     returnReq.CreatedAt,
		AggregateType: "Request",
		AggregateID:   returnReq.RequestID,
		NewStatus:     string(returnReq.Status),
		Metadata:      map[string]string{"machine_count": fmt.Sprintf("%d", len(machineIDs))},
	}); err != nil {
		return "", brokererr.Storage("persist return request", err)
	}
	return returnReq.RequestID, nil
}

// machineGroup is one (strategy, provider resource id) bucket of
// machines released together through a single handler call.
type machineGroup struct {
	strategy   types.ProviderStrategy
	resourceID string
	machines   []*types.Machine
}

func (g machineGroup) machineIDs() []string {
	ids := make([]string, 0, len(g.machines))
	for _, m := range g.machines {
		ids = append(ids, m.MachineID)
	}
	return ids
}

func groupByHandler(machines []*types.Machine) []machineGroup {
	index := make(map[string]int)
	var groups []machineGroup
	for _, m := range machines {
		key := string(m.Strategy) + "/" + m.ProviderResourceID
		if i, ok := index[key]; ok {
			groups[i].machines = append(groups[i].machines, m)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, machineGroup{strategy: m.Strategy, resourceID: m.ProviderResourceID, machines: []*types.Machine{m}})
	}
	return groups
}

func (e *Engine) loadRunningMachines(ids []string) ([]*types.Machine, error) {
	machines := make([]*types.Machine, 0, len(ids))
	for _, id := range ids {
		m, err := e.loadMachine(id)
		if err != nil {
			return nil, err
		}
		if m.Status != types.MachineRunning {
			return nil, brokererr.InvalidStateTransition("Machine:"+id, string(m.Status), string(types.MachineRunning)).
				WithDetail("aggregate_type", "Machine")
		}
		machines = append(machines, m)
	}
	return machines, nil
}

func (e *Engine) activeMachines() ([]*types.Machine, error) {
	records, err := e.strategy.FindAll(types.CollectionMachines)
	if err != nil {
		return nil, brokererr.Storage("load machines", err)
	}
	var active []*types.Machine
	for _, rec := range records {
		var m types.Machine
		if err := json.Unmarshal(rec.Data, &m); err != nil {
			continue
		}
		if m.Status == types.MachineRunning {
			mCopy := m
			active = append(active, &mCopy)
		}
	}
	return active, nil
}

func (e *Engine) loadMachine(id string) (*types.Machine, error) {
	rec, ok, err := e.strategy.FindByID(types.CollectionMachines, id)
	if err != nil {
		return nil, brokererr.Storage("load machine", err)
	}
	if !ok {
		return nil, brokererr.NotFound("Machine", id)
	}
	var m types.Machine
	if err := json.Unmarshal(rec.Data, &m); err != nil {
		return nil, brokererr.Internal(err)
	}
	return &m, nil
}
