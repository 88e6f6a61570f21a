/*
Package reconcile implements the Machine Reconciler (spec.md §4.5).

# Cycle

The reconciler runs on a fixed poll interval, independent from the
per-Machine health-check cadence:

	┌──────────────────────────────────────────┐
	│         Reconciliation Cycle              │
	│        (every pollInterval, 10s)          │
	└────────────────┬───────────────────────────┘
	                 │
	      for each active Request
	                 │
	                 ▼
	     handler.CheckHostsStatus(req)
	                 │
	                 ▼
	   for each provider InstanceRecord
	                 │
	        ┌────────┴────────┐
	        │                 │
	   first seen?       already tracked?
	        │                 │
	        ▼                 ▼
	  create Machine    compare mapped status
	  (status Pending)   against stored status
	        │                 │
	        └────────┬────────┘
	                 ▼
	     Running && due for health check?
	                 │
	                 ▼
	         run configured Checkers

A request is "active" while its Status is Pending, Creating, or Running
(a terminal request has nothing left for the provider to report).

# Provider state mapping

InstanceRecord.State carries whatever state string the provider handler
returned (EC2's pending/running/shutting-down/terminated/stopping/stopped
for every variant backed by EC2). mapProviderState translates that into
the domain MachineStatus table; an unrecognized state maps to Unknown
rather than failing the cycle, since a provider can introduce a new
state name the reconciler has never seen.

# Health checks

Health checks run every healthCheckInterval (default 300s) while a
Machine is Running, and once more on first observation regardless of
status, mirroring spec.md §4.5's "performs an initial health check if a
cloud client is available ... on health-check failure, the Machine is
created anyway and the failed health-check is recorded." Each configured
health.Checker's result is recorded under its CheckType key in the
Machine's HealthChecks map; IsHealthy reports true only when every
recorded check is currently healthy.

# Persistence

Every Machine mutation and every Request.MachineIDs attachment goes
through a pkg/unitofwork transaction keyed per-aggregate, so a
reconciler cycle never races a concurrent lifecycle operation touching
the same Machine or Request.
*/
package reconcile
