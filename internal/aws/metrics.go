package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metrics publishes checkout outcome counters to CloudWatch.
// All counts are fire-and-forget from the caller's point of view.
type Metrics struct {
	client    CloudWatchAPI
	namespace string
	nowFunc   func() time.Time
}

// NewMetrics returns a Metrics publisher under the given namespace
// (e.g. "ShopFulfillment").
func NewMetrics(client CloudWatchAPI, namespace string) *Metrics {
	return &Metrics{
		client:    client,
		namespace: namespace,
		nowFunc:   time.Now,
	}
}

// Count emits a single count metric with an optional Outcome dimension.
func (m *Metrics) Count(ctx context.Context, name, outcome string) error {
	now := m.nowFunc()
	datum := cwtypes.MetricDatum{
		MetricName: &name,
		Value:      awsFloat64(1),
		Unit:       cwtypes.StandardUnitCount,
		Timestamp:  &now,
	}
	if outcome != "" {
		datum.Dimensions = []cwtypes.Dimension{
			{Name: awsString("Outcome"), Value: &outcome},
		}
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  &m.namespace,
		MetricData: []cwtypes.MetricDatum{datum},
	})
	if err != nil {
		return fmt.Errorf("put metric data: %w", err)
	}
	return nil
}

func awsFloat64(f float64) *float64 { return &f }
