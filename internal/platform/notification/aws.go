package notification

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type AWSConfig struct {
	Region   string
	From     string
	FromName string
	SenderID string
}

// NewAWSSenders builds SES and SNS senders sharing one credential chain.
func NewAWSSenders(ctx context.Context, cfg AWSConfig) (*SESSender, *SNSSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewSESSender(ses.NewFromConfig(awsCfg), cfg.From, cfg.FromName),
		NewSNSSender(sns.NewFromConfig(awsCfg), cfg.SenderID),
		nil
}
