package health

import (
	"context"
	"fmt"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// cloudwatchAPI is the narrow subset of *cloudwatch.Client the
// monitoring-metric checker calls.
type cloudwatchAPI interface {
	GetMetricData(ctx context.Context, params *cloudwatch.GetMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricDataOutput, error)
}

// MetricThreshold names one CloudWatch metric this checker reads and the
// maximum value still considered healthy.
type MetricThreshold struct {
	Namespace string
	Metric    string
	Max       float64
}

// MetricChecker reads a small set of CloudWatch metrics for one EC2
// instance and reports unhealthy if any of them exceeds its configured
// threshold over the lookback window.
type MetricChecker struct {
	Client     cloudwatchAPI
	InstanceID string
	Thresholds []MetricThreshold
	Lookback   time.Duration
}

// NewMetricChecker builds a checker reading thresholds for instanceID
// over the last lookback (default 5 minutes if zero).
func NewMetricChecker(client cloudwatchAPI, instanceID string, thresholds []MetricThreshold, lookback time.Duration) *MetricChecker {
	if lookback <= 0 {
		lookback = 5 * time.Minute
	}
	return &MetricChecker{Client: client, InstanceID: instanceID, Thresholds: thresholds, Lookback: lookback}
}

func (c *MetricChecker) Check(ctx context.Context) Result {
	start := time.Now()
	if len(c.Thresholds) == 0 {
		return Result{Healthy: true, Message: "no metric thresholds configured", CheckedAt: start, Duration: time.Since(start)}
	}

	queries := make([]cwtypes.MetricDataQuery, 0, len(c.Thresholds))
	for i, th := range c.Thresholds {
		queries = append(queries, cwtypes.MetricDataQuery{
			Id: awssdk.String(fmt.Sprintf("m%d", i)),
			MetricStat: &cwtypes.MetricStat{
				Metric: &cwtypes.Metric{
					Namespace:  awssdk.String(th.Namespace),
					MetricName: awssdk.String(th.Metric),
					Dimensions: []cwtypes.Dimension{
						{Name: awssdk.String("InstanceId"), Value: awssdk.String(c.InstanceID)},
					},
				},
				Period: awssdk.Int32(int32(c.Lookback.Seconds())),
				Stat:   awssdk.String("Average"),
			},
		})
	}

	out, err := c.Client.GetMetricData(ctx, &cloudwatch.GetMetricDataInput{
		MetricDataQueries: queries,
		StartTime:         awssdk.Time(start.Add(-c.Lookback)),
		EndTime:           awssdk.Time(start),
	})
	if err != nil {
		return Result{Healthy: false, Message: fmt.Sprintf("get metric data: %v", err), CheckedAt: start, Duration: time.Since(start)}
	}

	for i, result := range out.MetricDataResults {
		if i >= len(c.Thresholds) || len(result.Values) == 0 {
			continue
		}
		th := c.Thresholds[i]
		latest := result.Values[0]
		if latest > th.Max {
			return Result{
				Healthy:   false,
				Message:   fmt.Sprintf("%s/%s = %.2f exceeds threshold %.2f", th.Namespace, th.Metric, latest, th.Max),
				CheckedAt: start,
				Duration:  time.Since(start),
			}
		}
	}

	return Result{Healthy: true, Message: "all monitored metrics within threshold", CheckedAt: start, Duration: time.Since(start)}
}

func (c *MetricChecker) Type() CheckType { return CheckTypeMetric }
