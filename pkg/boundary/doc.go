/*
Package boundary implements hostbroker's five scheduler-facing operations
(spec.md §4.7, §6): GetAvailableTemplates, RequestMachines,
RequestReturnMachines, GetRequestStatus, GetReturnRequests.

Each operation follows the same shape: check the rate limiter, validate
input, invoke the lifecycle engine or template store, record metrics and a
correlation-id-tagged log line, and return either a typed success payload
or a *FailureEnvelope carrying one of the error_type strings spec.md §7
defines (see errorTypeFor in envelope.go). cmd/hostbroker and cmd/hostbrokerd marshal
whichever of the two is non-nil to the JSON envelope spec.md §6 describes;
behind an explicit --human flag they instead render the plain-text tables
in human.go.

Service holds the lifecycle Engine, the template Store, the raw storage
Strategy (needed by the two cross-request listing operations), and an
optional per-operation Limiter. It carries no other state except the
small TTL cache GetReturnRequests keeps for its parameterless query
(spec.md §4.7, "cached for 60s per identical query key").
*/
package boundary
