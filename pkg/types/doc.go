/*
Package types defines the core data structures shared across hostbroker.

It holds the four aggregates every other package operates on: Template
(the immutable provisioning recipe), Request (an acquire or return
operation in flight), Machine (one provisioned cloud instance), and Event
(an immutable record of a transition on one of the above).

# Core types

Template:
  - ProviderStrategy selects which handler variant acquires/releases hosts
    for the template (InstantFleet, ManagedFleet, AutoScalingGroup,
    DirectLaunch, SpotFleet).
  - NetworkPlacement and MachineTypeSpec each hold exactly one of a single
    value or a set/map of candidates; Validate rejects both-set and
    neither-set.

Request:
  - RequestStatus forms a state machine: Pending -> Creating -> Running ->
    {Complete, CompleteWithError}, with Failed reachable from Pending,
    Creating, or Running.
  - FirstObservationAt is set at most once; LastObservationAt advances on
    every status reconciliation and is never earlier than
    FirstObservationAt.

Machine:
  - MachineStatus forms its own state machine (Pending, Running, Stopping,
    Stopped, ShuttingDown, Terminated, Failed, Returned, Unknown).
  - Result derives the scheduler-facing outcome string from Status.

Event:
  - Flat by construction: every field a subscriber might need lives
    directly on Event, not behind an embedded mixin.

# Thread safety

Types in this package carry no internal synchronization. Mutation is the
caller's responsibility; pkg/unitofwork and pkg/storage are where
concurrent access is actually arbitrated.
*/
package types
