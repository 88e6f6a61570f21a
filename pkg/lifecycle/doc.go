/*
Package lifecycle implements the Request lifecycle engine (spec.md §4.3).

# Create-Acquire

	load template ──► quota pre-check (optional) ──► construct Request (Pending)
	      │
	      ▼
	persist Pending ──► transition Creating ──► CreateLaunchTemplate
	                                                   │
	                                                   ▼
	                                             AcquireHosts ──► transition Running
	                                                   │
	                                             (any failure ──► transition Failed)
	      │
	      ▼
	return request id immediately — machine provisioning continues async

# Create-Return

Machines are grouped by their originating request's (provider-strategy,
resource id) pair so each handler is called exactly once per group, per
spec.md §9's authoritative resolution of the duplicated
create_return_request_all logic found in the source material. A single
new Request (type Return) is persisted referencing every released
machine, whether the caller named specific machine ids or asked for
every currently Running machine.

# Status reconciliation

StatusReconciliation is invoked on every status read (not on its own
ticker): it polls the provider through pkg/reconcile's shared Reconcile
method, derives the Request's status from its current Machine
population, and enforces the timeout measured from FirstObservationAt —
never from CreatedAt, so a request that sits queued before its first
poll doesn't burn its timeout budget waiting. An instance id seen on a
previous poll is a no-op on the next (pkg/reconcile already dedupes by
machine id); an instance population smaller than requested leaves the
Request Running; a population larger than requested (rare, re-launched
spot replacements) is accepted but capped at RequestedCount.

# State machine

The Request transition table (fsm.go) is enforced by every mutation path
in this package; an illegal move returns brokererr's InvalidStateTransition
rather than silently applying it.
*/
package lifecycle
