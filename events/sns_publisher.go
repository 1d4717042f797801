package events

import (
	"context"
	"encoding/json"
	"fmt"

	aws_pkg "github.com/yashrajoria/storefront-service/pkg/aws"
)

// SNSPublisher sends order events to an SNS topic.
type SNSPublisher struct {
	client   aws_pkg.SNSPublisher
	topicArn string
}

func NewSNSPublisher(client aws_pkg.SNSPublisher, topicArn string) *SNSPublisher {
	return &SNSPublisher{client: client, topicArn: topicArn}
}

func (p *SNSPublisher) PublishOrderCompleted(ctx context.Context, event OrderCompletedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}
	return p.client.Publish(ctx, p.topicArn, data)
}
