package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"

	"github.com/chowfast/chowfast-api/internal/logger"
)

// EmailService delivers transactional mail.
type EmailService interface {
	SendOTP(ctx context.Context, toEmail, code string, validity time.Duration, idempotencyKey string) error
	SendWelcome(ctx context.Context, toEmail, businessName string) error
}

// NoopEmailService logs instead of sending. Used in development.
type NoopEmailService struct{}

func (s *NoopEmailService) SendOTP(ctx context.Context, toEmail, code string, validity time.Duration, idempotencyKey string) error {
	logger.WithComponent("email").WithField("to", toEmail).Info("noop send otp")
	return nil
}

func (s *NoopEmailService) SendWelcome(ctx context.Context, toEmail, businessName string) error {
	logger.WithComponent("email").WithField("to", toEmail).Info("noop send welcome")
	return nil
}

// ResendEmailService sends mail through the Resend API.
type ResendEmailService struct {
	from    string
	replyTo string
	client  *resend.Client
	timeout time.Duration
}

func NewResendEmailService(apiKey, from, replyTo string, timeout time.Duration) (*ResendEmailService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ResendEmailService{
		from:    from,
		replyTo: replyTo,
		client:  resend.NewClient(apiKey),
		timeout: timeout,
	}, nil
}

func (s *ResendEmailService) SendOTP(ctx context.Context, toEmail, code string, validity time.Duration, idempotencyKey string) error {
	if toEmail == "" || code == "" {
		return fmt.Errorf("toEmail and code are required")
	}
	minutes := int(validity.Minutes())
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{toEmail},
		ReplyTo: s.replyTo,
		Subject: "Your ChowFast verification code",
		Text:    fmt.Sprintf("Your ChowFast verification code is %s. It expires in %d minutes.", code, minutes),
		Html: fmt.Sprintf("<p>Your ChowFast verification code is <strong>%s</strong>.</p><p>It expires in %d minutes.</p>",
			html.EscapeString(code), minutes),
		Tags: []resend.Tag{{Name: "category", Value: "otp"}},
	}
	return s.send(ctx, params, idempotencyKey)
}

func (s *ResendEmailService) SendWelcome(ctx context.Context, toEmail, businessName string) error {
	if toEmail == "" {
		return fmt.Errorf("toEmail is required")
	}
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{toEmail},
		ReplyTo: s.replyTo,
		Subject: "Welcome to ChowFast",
		Text:    fmt.Sprintf("Hi %s, your vendor profile is complete. You can now start receiving orders on ChowFast.", businessName),
		Html: fmt.Sprintf("<p>Hi %s,</p><p>Your vendor profile is complete. You can now start receiving orders on ChowFast.</p>",
			html.EscapeString(businessName)),
		Tags: []resend.Tag{{Name: "category", Value: "welcome"}},
	}
	return s.send(ctx, params, "")
}

func (s *ResendEmailService) send(ctx context.Context, params *resend.SendEmailRequest, idempotencyKey string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	options := &resend.SendEmailOptions{}
	if key := strings.TrimSpace(idempotencyKey); key != "" {
		options.IdempotencyKey = key
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		_, err := s.client.Emails.SendWithOptions(ctx, params, options)
		if err == nil {
			return nil
		}
		lastErr = err

		if wait, ok := resendRetryDelay(err, attempt); ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		return fmt.Errorf("resend send failed: %w", err)
	}

	return fmt.Errorf("resend send failed after retries: %w", lastErr)
}

func resendRetryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimitErr *resend.RateLimitError
	if errors.As(err, &rateLimitErr) {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(rateLimitErr.RetryAfter)); convErr == nil && seconds > 0 {
			if seconds > 30 {
				seconds = 30
			}
			return time.Duration(seconds) * time.Second, true
		}
		return time.Duration(attempt+1) * time.Second, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	return 0, false
}
