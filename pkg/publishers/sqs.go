package publishers

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// sqsSender enqueues pages. FIFO queues group by source set.
type sqsSender struct {
	queueURL string
	client   sqsAPI
}

func newSQSSender(ctx context.Context, cfg *SQSConfig) (*sqsSender, error) {
	awsCfg, err := loadAWSConfig(ctx, cfg.AWSAuthConfig)
	if err != nil {
		return nil, err
	}
	return &sqsSender{queueURL: cfg.QueueURL, client: sqs.NewFromConfig(awsCfg)}, nil
}

func (s *sqsSender) Send(ctx context.Context, m message) error {
	attrs := make(map[string]types.MessageAttributeValue, len(m.attrs))
	for _, a := range m.attrs {
		attrs[a.Name] = types.MessageAttributeValue{DataType: awsDataType(a), StringValue: aws.String(a.Value)}
	}
	input := &sqs.SendMessageInput{
		QueueUrl:          aws.String(s.queueURL),
		MessageBody:       aws.String(string(m.body)),
		MessageAttributes: attrs,
	}
	if fifo(s.queueURL) {
		input.MessageGroupId = aws.String(m.group)
		input.MessageDeduplicationId = aws.String(m.dedupe)
	}

	if _, err := s.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send to sqs %s: %w", s.queueURL, err)
	}
	return nil
}
