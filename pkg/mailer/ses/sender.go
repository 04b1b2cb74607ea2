// Package ses delivers mail through Amazon SES v2.
package ses

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrymomot/mailroom/pkg/delivery"
	"github.com/dmitrymomot/mailroom/pkg/mailer"
)

// ErrEmptyMessageID is returned when SES accepts a message without an id.
var ErrEmptyMessageID = errors.New("ses: provider returned empty message id")

// permanentCodes are SES error codes that another attempt cannot fix.
var permanentCodes = map[string]bool{
	"MessageRejected":                    true,
	"MailFromDomainNotVerifiedException": true,
	"AccountSuspendedException":          true,
	"SendingPausedException":             true,
	"BadRequestException":                true,
	"NotFoundException":                  true,
}

// SendEmailAPI is the SES v2 operation the sender uses.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Sender implements mailer.Sender using Amazon SES v2.
// It performs a single API call per Send; retries belong to the caller.
type Sender struct {
	client    SendEmailAPI
	configSet string
}

// New loads the AWS configuration and creates an SES sender.
func New(ctx context.Context, cfg Config) (*Sender, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("ses: load aws config: %w", err)
	}

	s := NewWithClient(sesv2.NewFromConfig(awsCfg))
	s.configSet = cfg.ConfigSet
	return s, nil
}

// NewWithClient creates a sender with a custom SES client.
func NewWithClient(client SendEmailAPI) *Sender {
	return &Sender{client: client}
}

// Send implements mailer.Sender. Messages with attachments or custom
// headers go out as raw MIME, everything else uses the simple format.
func (s *Sender) Send(ctx context.Context, email *mailer.Email) (string, error) {
	var input *sesv2.SendEmailInput
	if len(email.Attachments) > 0 || len(email.Headers) > 0 {
		raw, err := buildRawMessage(email)
		if err != nil {
			return "", delivery.Permanent(fmt.Errorf("ses: build raw message: %w", err))
		}
		input = &sesv2.SendEmailInput{
			FromEmailAddress: aws.String(email.From),
			Destination:      destination(email),
			Content:          &types.EmailContent{Raw: &types.RawMessage{Data: raw}},
		}
	} else {
		input = buildSimpleInput(email)
	}
	if email.ReplyTo != "" {
		input.ReplyToAddresses = []string{email.ReplyTo}
	}
	if s.configSet != "" {
		input.ConfigurationSetName = aws.String(s.configSet)
	}
	input.EmailTags = messageTags(email.Tags)

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return "", classify(err)
	}
	if out == nil || aws.ToString(out.MessageId) == "" {
		return "", ErrEmptyMessageID
	}
	return aws.ToString(out.MessageId), nil
}

// classify marks errors that retrying cannot fix as permanent.
func classify(err error) error {
	err = fmt.Errorf("ses: send: %w", err)
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && permanentCodes[apiErr.ErrorCode()] {
		return delivery.Permanent(err)
	}
	return err
}

func destination(email *mailer.Email) *types.Destination {
	return &types.Destination{
		ToAddresses:  email.To,
		CcAddresses:  email.CC,
		BccAddresses: email.BCC,
	}
}

func buildSimpleInput(email *mailer.Email) *sesv2.SendEmailInput {
	body := &types.Body{}
	if email.HTML != "" {
		body.Html = &types.Content{Data: aws.String(email.HTML), Charset: aws.String("UTF-8")}
	}
	if email.Text != "" {
		body.Text = &types.Content{Data: aws.String(email.Text), Charset: aws.String("UTF-8")}
	}

	return &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(email.From),
		Destination:      destination(email),
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(email.Subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
	}
}

func messageTags(tags mailer.Tags) []types.MessageTag {
	if len(tags) == 0 {
		return nil
	}
	out := make([]types.MessageTag, 0, len(tags))
	for name, v := range tags {
		value := "true"
		switch val := v.(type) {
		case nil, struct{}:
		case string:
			value = val
		default:
			value = fmt.Sprint(val)
		}
		out = append(out, types.MessageTag{Name: aws.String(name), Value: aws.String(value)})
	}
	return out
}
