package notification

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESService is the subset of the SES client used here.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SESSender struct {
	client   SESService
	from     string
	fromName string
}

func NewSESSender(client SESService, from, fromName string) *SESSender {
	return &SESSender{client: client, from: from, fromName: fromName}
}

func (s *SESSender) source() string {
	if s.fromName == "" {
		return s.from
	}
	return fmt.Sprintf("%s <%s>", s.fromName, s.from)
}

func (s *SESSender) SendEmail(ctx context.Context, msg Email) (Receipt, error) {
	if s.from == "" {
		return Receipt{}, fmt.Errorf("ses: from address: %w", ErrNotConfigured)
	}
	if msg.To == "" {
		return Receipt{}, ErrNoRecipient
	}

	html := msg.HTML
	if html == "" {
		html = textToHTML(msg.Body)
	}

	out, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(msg.Body), Charset: aws.String("UTF-8")},
				Html: &types.Content{Data: aws.String(html), Charset: aws.String("UTF-8")},
			},
		},
		Source: aws.String(s.source()),
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("ses send: %w", err)
	}
	return Receipt{MessageID: aws.ToString(out.MessageId), Provider: "ses"}, nil
}
