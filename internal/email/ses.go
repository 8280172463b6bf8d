package email

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"example.com/fittrack/internal/domain"
)

// SESAPI is the slice of the SES client the sender needs.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESSender mails the plain-text rendering of a report through Amazon SES.
type SESSender struct {
	client SESAPI
	source string
}

// NewSESSender loads the default AWS configuration for region.
func NewSESSender(ctx context.Context, region, source string) (*SESSender, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSESSenderWithClient(ses.NewFromConfig(cfg), source), nil
}

// NewSESSenderWithClient wraps an existing client.
func NewSESSenderWithClient(client SESAPI, source string) *SESSender {
	return &SESSender{client: client, source: source}
}

// Send implements Sender.
func (s *SESSender) Send(ctx context.Context, report domain.WeeklyReport) error {
	input := &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{report.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(Subject(report)),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(Body(report)),
					Charset: aws.String("UTF-8"),
				},
			},
		},
		Source: aws.String(s.source),
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		deliveries.WithLabelValues(transportSES, resultError).Inc()
		return fmt.Errorf("ses send: %w", err)
	}
	deliveries.WithLabelValues(transportSES, resultOK).Inc()
	return nil
}
