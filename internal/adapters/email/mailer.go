package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"warsjawa/internal/domain"
)

// MailgunConfig holds configuration for the Mailgun HTTP API.
type MailgunConfig struct {
	APIKey  string
	Domain  string
	BaseURL string
}

// SESConfig holds configuration for AWS SES.
type SESConfig struct {
	Region             string
	AccessKeyID        string
	SecretAccessKey    string
	InsecureSkipVerify bool
}

// MailerConfig holds configuration for creating a mailer.
type MailerConfig struct {
	Provider string
	Mailgun  MailgunConfig
	SES      SESConfig
}

// NewMailer creates a mailer from config. Provider "mailgun" uses the Mailgun
// HTTP API, "ses" uses AWS SES; "noop" or unknown uses a no-op mailer.
func NewMailer(config MailerConfig) (domain.Mailer, error) {
	switch config.Provider {
	case "mailgun":
		if config.Mailgun.APIKey == "" || config.Mailgun.Domain == "" {
			return nil, fmt.Errorf("mailgun provider requires api key and domain")
		}
		baseURL := config.Mailgun.BaseURL
		if baseURL == "" {
			baseURL = "https://api.mailgun.net/v2"
		}
		return &mailgunMailer{
			client:  http.DefaultClient,
			apiKey:  config.Mailgun.APIKey,
			baseURL: baseURL,
			domain:  config.Mailgun.Domain,
		}, nil
	case "ses":
		sesConfig := config.SES
		if sesConfig.InsecureSkipVerify {
			log.Printf("[MAILER] WARNING: TLS certificate verification is disabled for SES. Use only in development.")
		}
		httpClient := &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: sesConfig.InsecureSkipVerify,
					MinVersion:         tls.VersionTLS12,
				},
			},
		}
		awsCfg := aws.Config{
			Region: sesConfig.Region,
			Credentials: aws.NewCredentialsCache(
				credentials.NewStaticCredentialsProvider(
					sesConfig.AccessKeyID,
					sesConfig.SecretAccessKey,
					"",
				),
			),
			HTTPClient: httpClient,
		}
		return &sesMailer{client: ses.NewFromConfig(awsCfg)}, nil
	case "noop":
		return &noopMailer{}, nil
	default:
		log.Printf("[MAILER] Unknown email provider %q, using noop", config.Provider)
		return &noopMailer{}, nil
	}
}

type mailgunMailer struct {
	client  *http.Client
	apiKey  string
	baseURL string
	domain  string
}

func (m *mailgunMailer) Send(ctx context.Context, msg *domain.OutboundMessage) error {
	form := url.Values{}
	form.Set("to", msg.To)
	form.Set("from", msg.From)
	form.Set("subject", msg.Subject)
	// Absent body parts are omitted from the request entirely, not sent empty.
	if msg.Text != nil {
		form.Set("text", *msg.Text)
	}
	if msg.HTML != nil {
		form.Set("html", *msg.HTML)
	}

	endpoint := fmt.Sprintf("%s/%s/messages", m.baseURL, m.domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create mailgun request: %w", err)
	}
	req.SetBasicAuth("api", m.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email via mailgun: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mailgun api returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

type sesMailer struct {
	client *ses.Client
}

func (s *sesMailer) Send(ctx context.Context, msg *domain.OutboundMessage) error {
	input := &ses.SendEmailInput{
		Source: aws.String(msg.From),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(msg.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{},
		},
	}
	if msg.HTML != nil {
		input.Message.Body.Html = &types.Content{
			Data:    aws.String(*msg.HTML),
			Charset: aws.String("UTF-8"),
		}
	}
	if msg.Text != nil {
		input.Message.Body.Text = &types.Content{
			Data:    aws.String(*msg.Text),
			Charset: aws.String("UTF-8"),
		}
	}
	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email via SES: %w", err)
	}
	log.Printf("[MAILER] Email sent via SES. MessageID: %s", aws.ToString(result.MessageId))
	return nil
}

type noopMailer struct{}

func (n *noopMailer) Send(ctx context.Context, msg *domain.OutboundMessage) error {
	log.Println("[MAILER] Email would be sent (noop)", "to", msg.To, "subject", msg.Subject)
	return nil
}
