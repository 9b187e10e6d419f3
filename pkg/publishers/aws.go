package publishers

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// loadAWSConfig resolves region, credentials and endpoint override for the
// SQS and SNS sinks.
func loadAWSConfig(ctx context.Context, auth AWSAuthConfig) (aws.Config, error) {
	opts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(auth.Region)}
	if auth.AccessKeyID != "" && auth.SecretAccessKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(auth.AccessKeyID, auth.SecretAccessKey, auth.SessionToken),
		))
	}
	if auth.Endpoint != "" {
		opts = append(opts, awscfg.WithBaseEndpoint(auth.Endpoint))
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

// awsDataType maps an attribute onto the SQS/SNS attribute data types.
func awsDataType(a Attribute) *string {
	if a.Numeric {
		return aws.String("Number")
	}
	return aws.String("String")
}

// fifo reports a FIFO queue URL or topic ARN.
func fifo(target string) bool { return strings.HasSuffix(target, ".fifo") }
