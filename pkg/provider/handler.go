package provider

import (
	"context"
	"time"

	"github.com/cuemby/hostbroker/pkg/types"
)

// InstanceRecord is one provider-native instance observation returned by a
// status poll, before the machine reconciler (pkg/reconcile) maps it onto a
// Machine aggregate.
type InstanceRecord struct {
	InstanceID       string
	State            string // provider-native state string (pending, running, ...)
	DNSName          string
	PrivateAddress   string
	PublicAddress    string
	MachineType      string
	AvailabilityZone string
	SubnetID         string
	VPCID            string
	ImageID          string
	Spot             bool
	Tags             map[string]string
	LaunchedAt       time.Time
}

// Handler is the uniform contract every provider strategy variant
// implements (spec §4.6). A Request is routed to exactly one Handler for
// its entire lifetime, selected by its Strategy tag at creation.
type Handler interface {
	// CreateLaunchTemplate materializes (or looks up) a launch template for
	// tmpl and returns its id and version. Failure here is fatal to req.
	CreateLaunchTemplate(ctx context.Context, tmpl *types.Template, req *types.Request) (templateID, version string, err error)

	// AcquireHosts issues the provider call that begins fulfilling req and
	// returns an opaque provider resource id (reservation id, fleet id, or
	// group name depending on variant). Failure here is fatal to req.
	AcquireHosts(ctx context.Context, req *types.Request, tmpl *types.Template) (providerResourceID string, err error)

	// CheckHostsStatus polls the provider resource backing req and returns
	// every instance currently associated with it. A failure here is
	// reported as transient and retried by the caller at the next
	// reconciliation tick, never treated as fatal to req.
	CheckHostsStatus(ctx context.Context, req *types.Request) ([]InstanceRecord, error)

	// ReleaseHosts returns some or all of req's machines to the provider.
	// machineIDs is nil for a full release, non-nil for a partial one.
	// A resource already absent at the provider is treated as success.
	ReleaseHosts(ctx context.Context, req *types.Request, machineIDs []string) error
}
