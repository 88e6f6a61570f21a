/*
Package health implements the three checks the Machine Reconciler
(pkg/reconcile) runs against a Running Machine (spec.md §4.4): instance
status, system status, and a small set of CloudWatch metrics.

# Architecture

	Checker interface
	├── InstanceStatusChecker — ec2:DescribeInstanceStatus, InstanceStatus field
	├── SystemStatusChecker   — ec2:DescribeInstanceStatus, SystemStatus field
	└── MetricChecker         — cloudwatch:GetMetricData against MetricThreshold list

Every check shares one Result (Healthy, Message, CheckedAt, Duration) so
the reconciler can append any of them to a Machine's HealthChecks map
uniformly, keyed by CheckType.

# Hysteresis

Status/Config/Update implement the same consecutive-failures-before-
unhealthy pattern regardless of check type: a single bad poll doesn't
flip a Machine unhealthy, it takes Config.Retries in a row.
*/
package health
