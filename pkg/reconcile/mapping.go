package reconcile

import (
	"time"

	"github.com/cuemby/hostbroker/pkg/types"
)

// providerStateTable maps a provider-native instance state string (as
// returned by provider.InstanceRecord.State) onto the domain status table
// (spec.md §4.5). A state the table doesn't recognize maps to Unknown
// rather than erroring, since a new provider state should never abort a
// reconciliation cycle.
var providerStateTable = map[string]types.MachineStatus{
	"pending":       types.MachinePending,
	"running":       types.MachineRunning,
	"stopping":      types.MachineStopping,
	"stopped":       types.MachineStopped,
	"shutting-down": types.MachineShuttingDown,
	"terminated":    types.MachineTerminated,
}

func mapProviderState(state string) types.MachineStatus {
	if status, ok := providerStateTable[state]; ok {
		return status
	}
	return types.MachineUnknown
}

// machineTransitions is the Machine state machine (spec.md §4.4). The
// reconciler is the only writer of Machine.Status from provider-observed
// truth, so it owns this table directly rather than sharing pkg/
// lifecycle's Request-only FSM (which would otherwise import this
// package and create a cycle, since lifecycle's status reconciliation
// creates Machines through this package).
var machineTransitions = map[types.MachineStatus]map[types.MachineStatus]bool{
	types.MachinePending: {
		types.MachineRunning: true,
		types.MachineFailed:  true,
	},
	types.MachineRunning: {
		types.MachineStopping:     true,
		types.MachineShuttingDown: true,
	},
	types.MachineStopping: {
		types.MachineStopped: true,
		types.MachineFailed:  true,
	},
	types.MachineStopped: {
		types.MachineRunning:    true,
		types.MachineTerminated: true,
	},
	types.MachineShuttingDown: {
		types.MachineTerminated: true,
	},
	types.MachineTerminated: {
		types.MachineReturned: true,
	},
	types.MachineFailed:   {},
	types.MachineReturned: {},
	types.MachineUnknown: {
		types.MachinePending:    true,
		types.MachineRunning:    true,
		types.MachineStopped:    true,
		types.MachineTerminated: true,
	},
}

// validMachineTransition reports whether moving a Machine from from to to
// is allowed. Failed and Returned never transition again, and Terminated
// only ever moves on to Returned (spec.md §4.4 edge case): the
// reconciler logs and keeps the prior status rather than surfacing
// InvalidMachineStateError, since a stale provider poll racing a
// just-completed return is expected, not exceptional.
func validMachineTransition(from, to types.MachineStatus) bool {
	if from == to {
		return true
	}
	return machineTransitions[from][to]
}

// stampTransition records the timestamp for newStatus's terminal or
// milestone field, leaving every other timestamp field untouched. Each
// status owns at most one timestamp field (spec.md §4.4).
func stampTransition(m *types.Machine, newStatus types.MachineStatus, now time.Time) {
	switch newStatus {
	case types.MachineRunning:
		if m.RunningAt == nil {
			m.RunningAt = &now
		}
	case types.MachineStopping:
		m.StoppingAt = &now
	case types.MachineStopped:
		m.StoppedAt = &now
	case types.MachineTerminated:
		m.TerminatedAt = &now
	case types.MachineFailed:
		m.FailedAt = &now
	case types.MachineReturned:
		m.ReturnedAt = &now
	}
}
