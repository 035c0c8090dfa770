package aws

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// MetricsSink publishes sync counters to CloudWatch under a single namespace.
type MetricsSink struct {
	client    CloudWatchAPI
	namespace string
	nowFunc   func() time.Time
}

func NewMetricsSink(client CloudWatchAPI, namespace string) *MetricsSink {
	return &MetricsSink{
		client:    client,
		namespace: namespace,
		nowFunc:   time.Now,
	}
}

// PublishCounts sends one Count datum per entry of counts.
func (m *MetricsSink) PublishCounts(ctx context.Context, counts map[string]int) error {
	if len(counts) == 0 {
		return nil
	}
	ts := m.nowFunc()
	data := make([]cwtypes.MetricDatum, 0, len(counts))
	for name, v := range counts {
		data = append(data, cwtypes.MetricDatum{
			MetricName: sdkaws.String(name),
			Timestamp:  &ts,
			Unit:       cwtypes.StandardUnitCount,
			Value:      sdkaws.Float64(float64(v)),
		})
	}
	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  &m.namespace,
		MetricData: data,
	})
	if err != nil {
		return fmt.Errorf("put metric data: %w", err)
	}
	return nil
}
