package publishers

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// snsSender publishes pages to a topic. Subscribers can filter on the page
// attributes, e.g. only pages with a given category.
type snsSender struct {
	topicARN string
	client   snsAPI
}

func newSNSSender(ctx context.Context, cfg *SNSConfig) (*snsSender, error) {
	awsCfg, err := loadAWSConfig(ctx, cfg.AWSAuthConfig)
	if err != nil {
		return nil, err
	}
	return &snsSender{topicARN: cfg.TopicARN, client: sns.NewFromConfig(awsCfg)}, nil
}

func (s *snsSender) Send(ctx context.Context, m message) error {
	attrs := make(map[string]types.MessageAttributeValue, len(m.attrs))
	for _, a := range m.attrs {
		attrs[a.Name] = types.MessageAttributeValue{DataType: awsDataType(a), StringValue: aws.String(a.Value)}
	}
	input := &sns.PublishInput{
		TopicArn:          aws.String(s.topicARN),
		Message:           aws.String(string(m.body)),
		MessageAttributes: attrs,
	}
	if fifo(s.topicARN) {
		input.MessageGroupId = aws.String(m.group)
		input.MessageDeduplicationId = aws.String(m.dedupe)
	}

	if _, err := s.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("publish to sns %s: %w", s.topicARN, err)
	}
	return nil
}
