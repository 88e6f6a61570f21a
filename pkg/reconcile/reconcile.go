// Package reconcile implements the Machine Reconciler (spec.md §4.5): a
// background loop that polls each active Request's provider handler for
// instance status, converts every provider instance record into a
// Machine aggregate on first observation, advances Machine status as the
// provider reports state changes, and runs periodic health checks on
// Machines that are Running.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/hostbroker/pkg/health"
	"github.com/cuemby/hostbroker/pkg/log"
	"github.com/cuemby/hostbroker/pkg/metrics"
	"github.com/cuemby/hostbroker/pkg/provider"
	"github.com/cuemby/hostbroker/pkg/storage"
	"github.com/cuemby/hostbroker/pkg/types"
	"github.com/cuemby/hostbroker/pkg/unitofwork"
)

// defaultPollInterval is how often the reconciler scans active requests
// for provider status. It is independent of healthCheckInterval, the
// per-Machine cadence for health checks.
const defaultPollInterval = 10 * time.Second

// defaultHealthCheckInterval is the default period between health checks
// for a Running Machine (spec.md §4.5: "default every 300s per Machine").
const defaultHealthCheckInterval = 300 * time.Second

// activeRequestStatuses are the Request statuses still worth polling; a
// request in a terminal status has nothing left for the provider to
// report.
var activeRequestStatuses = map[types.RequestStatus]bool{
	types.RequestPending:  true,
	types.RequestCreating: true,
	types.RequestRunning:  true,
}

// Reconciler periodically reconciles every active Request's Machines
// against provider-reported truth.
type Reconciler struct {
	strategy       storage.Strategy
	uow            *unitofwork.Factory
	registry       *provider.Registry
	checkerFactory CheckerFactory

	pollInterval        time.Duration
	healthCheckInterval time.Duration
	healthConfig        health.Config

	// healthStatus tracks consecutive-failure hysteresis per Machine per
	// check type, keyed by "<machineID>/<checkType>". Only the
	// reconciliation goroutine reads or writes it, so it needs no lock of
	// its own.
	healthStatus map[string]*health.Status

	mu      sync.Mutex
	stopCh  chan struct{}
	running bool
}

// CheckerFactory builds the set of health.Checker instances to run
// against one Machine. It is called fresh for every due health check
// since each checker is bound to m's instance id (spec.md §4.4's
// instance-status/system-status/monitoring-metrics checks all target a
// specific EC2 instance, unlike a fixed-endpoint container check).
type CheckerFactory func(m *types.Machine) []health.Checker

// Option configures a Reconciler at construction.
type Option func(*Reconciler)

// WithPollInterval overrides the default active-request scan cadence.
func WithPollInterval(d time.Duration) Option {
	return func(r *Reconciler) { r.pollInterval = d }
}

// WithHealthCheckInterval overrides the default per-Machine health-check
// cadence.
func WithHealthCheckInterval(d time.Duration) Option {
	return func(r *Reconciler) { r.healthCheckInterval = d }
}

// WithCheckers attaches the CheckerFactory invoked against every
// newly-observed or due-for-recheck Running Machine. With none
// configured, the reconciler still tracks status but never marks a
// Machine unhealthy.
func WithCheckers(factory CheckerFactory) Option {
	return func(r *Reconciler) { r.checkerFactory = factory }
}

// WithHealthConfig overrides the consecutive-failure/success hysteresis
// applied to raw checker results before a Machine's recorded health flips
// (default health.DefaultConfig's Retries: 3).
func WithHealthConfig(cfg health.Config) Option {
	return func(r *Reconciler) { r.healthConfig = cfg }
}

// NewReconciler builds a Reconciler polling strategy's Requests collection
// through registry's handlers, persisting Machine mutations through uow.
func NewReconciler(strategy storage.Strategy, uow *unitofwork.Factory, registry *provider.Registry, opts ...Option) *Reconciler {
	r := &Reconciler{
		strategy:            strategy,
		uow:                 uow,
		registry:            registry,
		pollInterval:        defaultPollInterval,
		healthCheckInterval: defaultHealthCheckInterval,
		healthConfig:        health.DefaultConfig(),
		healthStatus:        make(map[string]*health.Status),
		stopCh:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the reconciliation loop in a background goroutine. It is
// a no-op if already running.
func (r *Reconciler) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})
	go r.run()
}

// Stop signals the reconciliation loop to exit. It does not wait for the
// in-flight cycle to finish.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	r.running = false
	close(r.stopCh)
}

func (r *Reconciler) run() {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.reconcile(context.Background())
		case <-r.stopCh:
			return
		}
	}
}

// reconcile runs one full cycle: every active request is polled for
// provider status and its machines are brought up to date. A failure
// reconciling one request is logged and never aborts the rest of the
// cycle.
func (r *Reconciler) reconcile(ctx context.Context) {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.ReconciliationDuration)
		metrics.ReconciliationCyclesTotal.Inc()
	}()

	logger := log.WithComponent("reconcile")

	requests, err := r.activeRequests()
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load active requests")
		return
	}

	for _, req := range requests {
		if err := r.Reconcile(ctx, req); err != nil {
			logger.Warn().Err(err).Str("request_id", req.RequestID).Msg("failed to reconcile request")
		}
	}
}

func (r *Reconciler) activeRequests() ([]*types.Request, error) {
	records, err := r.strategy.FindAll(types.CollectionRequests)
	if err != nil {
		return nil, fmt.Errorf("load requests: %w", err)
	}

	var active []*types.Request
	for _, rec := range records {
		var req types.Request
		if err := json.Unmarshal(rec.Data, &req); err != nil {
			continue
		}
		if req.Type == types.RequestTypeAcquire && activeRequestStatuses[req.Status] {
			active = append(active, &req)
		}
	}
	return active, nil
}

// Reconcile polls req's provider handler for instance status and applies
// every returned record to its Machine aggregate, attaching any newly
// observed machine id to req. It is the single entry point shared by the
// background ticker loop and pkg/lifecycle's on-demand status
// reconciliation operation (spec.md §4.3), so both paths create and
// update Machines identically.
func (r *Reconciler) Reconcile(ctx context.Context, req *types.Request) error {
	handler, err := r.registry.Dispatch(req.Strategy)
	if err != nil {
		return fmt.Errorf("dispatch handler: %w", err)
	}

	records, err := handler.CheckHostsStatus(ctx, req)
	if err != nil {
		return fmt.Errorf("check hosts status: %w", err)
	}

	now := time.Now()
	newMachineIDs := make([]string, 0, len(records))
	for _, rec := range records {
		created, err := r.applyInstanceRecord(req, rec, now)
		if err != nil {
			log.WithComponent("reconcile").Warn().Err(err).
				Str("request_id", req.RequestID).
				Str("instance_id", rec.InstanceID).
				Msg("failed to apply instance record")
			continue
		}
		if created {
			newMachineIDs = append(newMachineIDs, rec.InstanceID)
		}
	}

	if len(newMachineIDs) > 0 {
		if err := r.attachMachineIDs(req, newMachineIDs); err != nil {
			return fmt.Errorf("attach machine ids: %w", err)
		}
	}
	return nil
}

// applyInstanceRecord creates the Machine aggregate for rec on first
// observation, or updates its status and runs a due health check
// otherwise. The bool return reports whether a new Machine was created.
func (r *Reconciler) applyInstanceRecord(req *types.Request, rec provider.InstanceRecord, now time.Time) (bool, error) {
	uow, err := r.uow.Begin("Machine:" + rec.InstanceID)
	if err != nil {
		return false, err
	}

	existing, found, err := r.strategy.FindByID(types.CollectionMachines, rec.InstanceID)
	if err != nil {
		uow.Rollback()
		return false, err
	}

	var machine *types.Machine
	created := false
	if found {
		machine = new(types.Machine)
		if err := json.Unmarshal(existing.Data, machine); err != nil {
			uow.Rollback()
			return false, err
		}
	} else {
		machine = newMachineFromRecord(req, rec, now)
		created = true
		uow.Register(types.Event{
			Type:          types.EventMachineCreated,
			Timestamp:     now,
			AggregateType: "Machine",
			AggregateID:   machine.MachineID,
			NewStatus:     string(machine.Status),
		})
	}

	newStatus := mapProviderState(rec.State)
	if !found {
		machine.Status = newStatus
		stampTransition(machine, newStatus, now)
	} else if machine.Status != newStatus {
		if !validMachineTransition(machine.Status, newStatus) {
			log.WithComponent("reconcile").Warn().
				Str("machine_id", machine.MachineID).
				Str("from", string(machine.Status)).
				Str("to", string(newStatus)).
				Msg("ignoring illegal machine state transition reported by provider")
		} else {
			oldStatus := machine.Status
			machine.Status = newStatus
			stampTransition(machine, newStatus, now)
			uow.Register(types.Event{
				Type:          types.EventMachineStatusChanged,
				Timestamp:     now,
				AggregateType: "Machine",
				AggregateID:   machine.MachineID,
				OldStatus:     string(oldStatus),
				NewStatus:     string(newStatus),
			})
		}
	}

	if machine.Status == types.MachineRunning && r.dueForHealthCheck(machine, now) {
		r.runHealthChecks(machine, now)
		uow.Register(types.Event{
			Type:          types.EventMachineHealthChecked,
			Timestamp:     now,
			AggregateType: "Machine",
			AggregateID:   machine.MachineID,
			Metadata:      map[string]string{"healthy": fmt.Sprintf("%t", machine.IsHealthy())},
		})
	} else if created {
		// Initial health check runs even before the machine reaches
		// Running, per spec.md §4.5: a failed initial check never blocks
		// creation, it's recorded alongside the Machine.
		r.runHealthChecks(machine, now)
	}

	data, err := json.Marshal(machine)
	if err != nil {
		uow.Rollback()
		return false, err
	}
	if err := uow.Save(types.CollectionMachines, storage.Record{ID: machine.MachineID, Data: data}); err != nil {
		uow.Rollback()
		return false, err
	}
	if err := uow.Commit(); err != nil {
		return false, err
	}
	return created, nil
}

func (r *Reconciler) dueForHealthCheck(m *types.Machine, now time.Time) bool {
	if m.LastHealthCheck == nil {
		return true
	}
	return now.Sub(*m.LastHealthCheck) >= r.healthCheckInterval
}

func (r *Reconciler) runHealthChecks(m *types.Machine, now time.Time) {
	if r.checkerFactory == nil {
		return
	}
	checkers := r.checkerFactory(m)
	if len(checkers) == 0 {
		return
	}
	if m.HealthChecks == nil {
		m.HealthChecks = make(map[string]types.HealthCheckRecord)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, checker := range checkers {
		result := checker.Check(ctx)
		status := r.statusFor(m.MachineID, checker.Type())
		status.Update(result, r.healthConfig)
		m.HealthChecks[string(checker.Type())] = types.HealthCheckRecord{
			Healthy:   status.Healthy,
			Message:   result.Message,
			CheckedAt: result.CheckedAt,
		}
	}
	m.LastHealthCheck = &now
}

// statusFor returns the hysteresis tracker for one Machine's check type,
// creating it on first observation.
func (r *Reconciler) statusFor(machineID string, checkType health.CheckType) *health.Status {
	key := machineID + "/" + string(checkType)
	status, ok := r.healthStatus[key]
	if !ok {
		status = health.NewStatus()
		r.healthStatus[key] = status
	}
	return status
}

func (r *Reconciler) attachMachineIDs(req *types.Request, newIDs []string) error {
	uow, err := r.uow.Begin("Request:" + req.RequestID)
	if err != nil {
		return err
	}

	existing, found, err := r.strategy.FindByID(types.CollectionRequests, req.RequestID)
	if err != nil || !found {
		uow.Rollback()
		if err != nil {
			return err
		}
		return fmt.Errorf("request %q not found while attaching machines", req.RequestID)
	}

	var current types.Request
	if err := json.Unmarshal(existing.Data, &current); err != nil {
		uow.Rollback()
		return err
	}

	seen := make(map[string]bool, len(current.MachineIDs))
	for _, id := range current.MachineIDs {
		seen[id] = true
	}
	for _, id := range newIDs {
		if !seen[id] {
			current.MachineIDs = append(current.MachineIDs, id)
			seen[id] = true
		}
	}

	data, err := json.Marshal(current)
	if err != nil {
		uow.Rollback()
		return err
	}
	if err := uow.Save(types.CollectionRequests, storage.Record{ID: current.RequestID, Data: data}); err != nil {
		uow.Rollback()
		return err
	}
	return uow.Commit()
}

func newMachineFromRecord(req *types.Request, rec provider.InstanceRecord, now time.Time) *types.Machine {
	priceTier := types.PriceOnDemand
	if rec.Spot {
		priceTier = types.PriceSpot
	}
	m := &types.Machine{
		MachineID:          rec.InstanceID,
		RequestID:          req.RequestID,
		DNSName:            rec.DNSName,
		Status:             types.MachinePending,
		MachineType:        rec.MachineType,
		PrivateAddress:     rec.PrivateAddress,
		PublicAddress:      rec.PublicAddress,
		Strategy:           req.Strategy,
		ProviderResourceID: req.ProviderResourceID,
		PriceTier:          priceTier,
		AvailabilityZone:   rec.AvailabilityZone,
		SubnetID:           rec.SubnetID,
		VPCID:              rec.VPCID,
		ImageID:            rec.ImageID,
		Tags:               rec.Tags,
	}
	launchedAt := rec.LaunchedAt
	if launchedAt.IsZero() {
		launchedAt = now
	}
	m.LaunchedAt = &launchedAt
	return m
}
