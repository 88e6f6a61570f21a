/*
Package provider implements the five AWS EC2 provider handler variants
behind one uniform Handler contract (spec §4.6), a Registry that dispatches
a Request's strategy tag to its Handler wrapped in a shared retry policy,
and the AWS error classification that turns exhausted retries into typed
terminal errors.

# Variants

DirectLaunchHandler, InstantFleetHandler, ManagedFleetHandler,
AutoScalingGroupHandler, and SpotFleetHandler each implement Handler
against a shared *AWSClient (EC2, Auto Scaling, IAM, STS). They differ only
in which AWS API shapes their AcquireHosts/CheckHostsStatus/ReleaseHosts
calls, per spec §4.6:

  - DirectLaunch: RunInstances / DescribeInstances by tag / TerminateInstances.
  - InstantFleet: synchronous CreateFleet (instances in the response) /
    DescribeFleetInstances / DeleteFleets(terminate=true).
  - ManagedFleet: asynchronous CreateFleet / DescribeFleetInstances /
    ModifyFleet(reduce capacity)+TerminateInstances or DeleteFleets.
  - AutoScalingGroup: CreateAutoScalingGroup(min=max=desired=count) /
    DescribeAutoScalingGroups / DetachInstances+TerminateInstances or
    DeleteAutoScalingGroup(force).
  - SpotFleet: like ManagedFleet with SpotOptions (allocation strategy,
    max price) and a role-ARN/service-linked-role check before acquisition.

# Retry and error classification

Registry.Dispatch wraps every returned Handler in a retryingHandler so no
variant implements retry logic itself. withRetry (retry.go) only retries a
provider call when its smithy.APIError code is in the transient whitelist
(rate-limit, throttling, capacity-insufficient, internal/unavailable);
anything else propagates on the first attempt. After the whitelist is
exhausted, classifyTerminal (errors.go) maps the AWS error code to one of
the terminal kinds (Capacity, Network, IAM, Quota, ResourceNotFound,
Validation) as a brokererr.Provider detail field, which the lifecycle
engine surfaces as the Request's Failed status message.
*/
package provider
