// Package types defines the core domain model shared across hostbroker:
// templates, requests, machines, and the events they emit.
package types

import (
	"fmt"
	"regexp"
	"time"
)

// ProviderStrategy identifies which provider handler variant acquires and
// releases hosts for a Template or Request.
type ProviderStrategy string

const (
	StrategyInstantFleet     ProviderStrategy = "InstantFleet"
	StrategyManagedFleet     ProviderStrategy = "ManagedFleet"
	StrategyAutoScalingGroup ProviderStrategy = "AutoScalingGroup"
	StrategyDirectLaunch     ProviderStrategy = "DirectLaunch"
	StrategySpotFleet        ProviderStrategy = "SpotFleet"
)

// PriceTier distinguishes on-demand from spot-priced machines.
type PriceTier string

const (
	PriceOnDemand PriceTier = "OnDemand"
	PriceSpot     PriceTier = "Spot"
)

// AllocationStrategy mirrors the EC2 fleet/spot-fleet allocation strategies
// a Template may request.
type AllocationStrategy string

const (
	AllocationLowestPrice   AllocationStrategy = "lowestPrice"
	AllocationDiversified   AllocationStrategy = "diversified"
	AllocationCapacityOpt   AllocationStrategy = "capacityOptimized"
	AllocationPriceCapacity AllocationStrategy = "priceCapacityOptimized"
)

var templateIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// NetworkPlacement pins a Template to either one subnet or a set of
// candidate subnets. Exactly one of the two is populated.
type NetworkPlacement struct {
	SingleSubnet string
	SubnetSet    []string
}

// MachineTypeSpec pins a Template to either one instance type or a weighted
// map of candidate types (for fleet allocation). Exactly one is populated.
type MachineTypeSpec struct {
	SingleType string
	TypeWeight map[string]float64
}

// Template is the immutable provisioning recipe bound to a provider
// strategy, resolved image, network placement, and machine-type spec.
type Template struct {
	TemplateID         string
	Strategy           ProviderStrategy
	MaxNumber          int
	ImageID            string // direct id, or an alias resolved at read time
	Network            NetworkPlacement
	MachineType        MachineTypeSpec
	SecurityGroupIDs   []string
	KeyName            string
	UserData           string
	SpotRoleARN        string
	MaxPrice           *float64
	AllocationStrategy AllocationStrategy
	Tags               map[string]string
}

// Validate enforces the Template invariants from the data model: exactly
// one network placement, exactly one machine-type spec, positive weights,
// a role reference for spot variants, and a strictly positive max count.
func (t *Template) Validate() error {
	if !templateIDPattern.MatchString(t.TemplateID) {
		return fmt.Errorf("template id %q must be alphanumeric, hyphen, or underscore", t.TemplateID)
	}
	if t.MaxNumber <= 0 {
		return fmt.Errorf("template %q: max_number must be strictly positive", t.TemplateID)
	}
	hasSingleSubnet := t.Network.SingleSubnet != ""
	hasSubnetSet := len(t.Network.SubnetSet) > 0
	if hasSingleSubnet == hasSubnetSet {
		return fmt.Errorf("template %q: exactly one of single-subnet/subnet-set must be set", t.TemplateID)
	}
	hasSingleType := t.MachineType.SingleType != ""
	hasTypeMap := len(t.MachineType.TypeWeight) > 0
	if hasSingleType == hasTypeMap {
		return fmt.Errorf("template %q: exactly one of single-type/type-map must be set", t.TemplateID)
	}
	for instanceType, weight := range t.MachineType.TypeWeight {
		if weight <= 0 {
			return fmt.Errorf("template %q: weight for %q must be strictly positive", t.TemplateID, instanceType)
		}
	}
	if t.Strategy == StrategySpotFleet && t.SpotRoleARN == "" {
		return fmt.Errorf("template %q: spot variants require a role reference", t.TemplateID)
	}
	return nil
}

// RequestType distinguishes acquire requests from return requests; it also
// determines the request id prefix (req-/ret-).
type RequestType string

const (
	RequestTypeAcquire RequestType = "Acquire"
	RequestTypeReturn  RequestType = "Return"
)

// RequestStatus is a state in the Request lifecycle state machine
// (spec §4.3).
type RequestStatus string

const (
	RequestPending           RequestStatus = "Pending"
	RequestCreating          RequestStatus = "Creating"
	RequestRunning           RequestStatus = "Running"
	RequestComplete          RequestStatus = "Complete"
	RequestCompleteWithError RequestStatus = "CompleteWithError"
	RequestFailed            RequestStatus = "Failed"
)

// IsTerminal reports whether status is one of the three terminal states.
func (s RequestStatus) IsTerminal() bool {
	switch s {
	case RequestComplete, RequestCompleteWithError, RequestFailed:
		return true
	}
	return false
}

// Request is the mutable aggregate tracking one acquire or return operation.
type Request struct {
	RequestID             string
	Type                  RequestType
	TemplateID            string // empty for Return
	RequestedCount        int
	Strategy              ProviderStrategy
	Status                RequestStatus
	Message               string
	MachineIDs            []string
	CreatedAt             time.Time
	FirstObservationAt    *time.Time
	LastObservationAt     *time.Time
	CorrelationID         string
	TimeoutSeconds        int
	ProviderResourceID    string
	LaunchTemplateID      string
	LaunchTemplateVersion string
	Tags                  map[string]string
	Metadata              map[string]string
	Events                []Event
}

// Machine is the mutable aggregate tracking one cloud instance.
type Machine struct {
	MachineID          string
	RequestID          string
	DNSName            string
	Status             MachineStatus
	MachineType        string
	PrivateAddress     string
	PublicAddress      string
	Strategy           ProviderStrategy
	ProviderResourceID string
	PriceTier          PriceTier
	AvailabilityZone   string
	SubnetID           string
	VPCID              string
	ImageID            string
	LaunchedAt         *time.Time
	RunningAt          *time.Time
	StoppingAt         *time.Time
	StoppedAt          *time.Time
	TerminatedAt       *time.Time
	FailedAt           *time.Time
	ReturnedAt         *time.Time
	Reason             string
	Tags               map[string]string
	HealthChecks       map[string]HealthCheckRecord
	LastHealthCheck    *time.Time
	Events             []Event
}

// IsHealthy reports whether every recorded health check is currently
// healthy. A Machine with no recorded checks is considered healthy.
func (m *Machine) IsHealthy() bool {
	for _, check := range m.HealthChecks {
		if !check.Healthy {
			return false
		}
	}
	return true
}

// HealthCheckRecord is the latest result of one health check on a
// Machine, keyed by check type (instance-status, system-status, a named
// CloudWatch metric, ...). Each new result replaces the previous one for
// its check type; earlier results are not kept.
type HealthCheckRecord struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
}

// MachineStatus is a state in the machine state machine (spec §4.4).
type MachineStatus string

const (
	MachinePending      MachineStatus = "Pending"
	MachineRunning      MachineStatus = "Running"
	MachineStopping     MachineStatus = "Stopping"
	MachineStopped      MachineStatus = "Stopped"
	MachineShuttingDown MachineStatus = "ShuttingDown"
	MachineTerminated   MachineStatus = "Terminated"
	MachineFailed       MachineStatus = "Failed"
	MachineReturned     MachineStatus = "Returned"
	MachineUnknown      MachineStatus = "Unknown"
)

// Result renders the scheduler-facing derived result for a machine status
// (spec §6): running -> succeed, failed/terminated -> fail, else executing.
func (s MachineStatus) Result() string {
	switch s {
	case MachineRunning:
		return "succeed"
	case MachineFailed, MachineTerminated:
		return "fail"
	default:
		return "executing"
	}
}

// EventType tags the closed set of domain event payload variants.
type EventType string

const (
	EventRequestCreated       EventType = "request.created"
	EventRequestStatusChanged EventType = "request.status_changed"
	EventMachineCreated       EventType = "machine.created"
	EventMachineStatusChanged EventType = "machine.status_changed"
	EventMachineHealthChecked EventType = "machine.health_checked"
)

// Event is an immutable record of one domain transition, flat by
// construction: every mixin field from the original source's event
// hierarchy becomes a plain field on this single struct rather than an
// embedded "mixin".
type Event struct {
	EventID       string
	Type          EventType
	Timestamp     time.Time
	AggregateType string
	AggregateID   string
	Version       int
	Message       string
	OldStatus     string
	NewStatus     string
	Reason        string
	Metadata      map[string]string
}

// Storage collection names shared by every package that opens a
// storage.Strategy transaction against the domain aggregates.
const (
	CollectionTemplates = "Templates"
	CollectionRequests  = "Requests"
	CollectionMachines  = "Machines"
)
