package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"
)

// SES sends campaign email through AWS SES v2 and reports the account's
// 24-hour sending quota.
type SES struct {
	client *sesv2.Client
	log    *zap.Logger
}

// NewSES builds an SES transport with static credentials.
func NewSES(ctx context.Context, accessKey, secretKey, region string, log *zap.Logger) (*SES, error) {
	if region == "" {
		region = "us-east-1"
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &SES{client: sesv2.NewFromConfig(cfg), log: log}, nil
}

// Send delivers one email and classifies any SES failure into an
// *Error kind.
func (s *SES) Send(ctx context.Context, msg *Message) (*Result, error) {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.From),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	if msg.Text != "" {
		input.Content.Simple.Body.Text = &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")}
	}
	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{msg.ReplyTo}
	}
	for name, value := range msg.Headers {
		input.Content.Simple.Headers = append(input.Content.Simple.Headers, types.MessageHeader{
			Name:  aws.String(name),
			Value: aws.String(value),
		})
	}
	for name, value := range msg.Tags {
		input.EmailTags = append(input.EmailTags, types.MessageTag{
			Name:  aws.String(name),
			Value: aws.String(value),
		})
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return nil, classifySES(err)
	}

	messageID := ""
	if out.MessageId != nil {
		messageID = *out.MessageId
	}

	s.log.Debug("ses send accepted",
		zap.String("campaign_id", msg.CampaignID),
		zap.String("message_id", messageID),
	)

	return &Result{MessageID: messageID, SentAt: time.Now().UTC()}, nil
}

// DailyQuota reads the account-level 24-hour send quota.
func (s *SES) DailyQuota(ctx context.Context) (Quota, error) {
	out, err := s.client.GetAccount(ctx, &sesv2.GetAccountInput{})
	if err != nil {
		return Quota{}, classifySES(err)
	}
	q := Quota{}
	if out.SendQuota != nil {
		q.Max = int(out.SendQuota.Max24HourSend)
		q.UsedToday = int(out.SendQuota.SentLast24Hours)
	}
	return q, nil
}

// classifySES maps SES SDK errors onto the engine's error taxonomy.
func classifySES(err error) *Error {
	var (
		tooMany     *types.TooManyRequestsException
		limit       *types.LimitExceededException
		rejected    *types.MessageRejected
		notVerified *types.MailFromDomainNotVerifiedException
		suspended   *types.AccountSuspendedException
		paused      *types.SendingPausedException
		badRequest  *types.BadRequestException
	)
	switch {
	case errors.As(err, &tooMany), errors.As(err, &limit):
		return NewError(KindThrottled, "ses throttled the request", err)
	case errors.As(err, &rejected):
		return NewError(KindRejected, "ses rejected the message", err)
	case errors.As(err, &notVerified):
		return NewError(KindNotVerified, "mail-from domain is not verified", err)
	case errors.As(err, &suspended), errors.As(err, &paused):
		return NewError(KindNotVerified, "account sending is disabled", err)
	case errors.As(err, &badRequest):
		return NewError(KindInvalidRecipient, "ses refused the request payload", err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(KindTimeout, "ses call timed out", err)
	}
	return NewError(KindInternal, "ses send failed", err)
}
