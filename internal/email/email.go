package email

import (
	"context"
	"fmt"
	"time"

	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/config"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/logger"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/models"

	"github.com/mailgun/mailgun-go/v5"
)

// Service sends transactional email through Mailgun. All sends are
// best-effort: callers log failures and carry on, account flows never block
// on email delivery.
type Service struct {
	client      mailgun.Mailgun
	domain      string
	senderEmail string
	senderName  string
	enabled     bool
}

func NewService(cfg *config.Config) *Service {
	enabled := cfg.MailgunDomain != "" && cfg.MailgunAPIKey != ""

	var client mailgun.Mailgun
	if enabled {
		client = mailgun.NewMailgun(cfg.MailgunAPIKey)
	}

	return &Service{
		client:      client,
		domain:      cfg.MailgunDomain,
		senderEmail: cfg.MailgunSenderEmail,
		senderName:  cfg.MailgunSenderName,
		enabled:     enabled,
	}
}

func (s *Service) IsEnabled() bool {
	return s.enabled
}

func (s *Service) SendWelcomeEmail(user *models.User) error {
	if !s.enabled {
		return fmt.Errorf("email service is not configured")
	}

	name := displayName(user)
	subject := fmt.Sprintf("Welcome to Fit Check, %s!", name)

	message := mailgun.NewMessage(
		s.domain,
		fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail),
		subject,
		s.generateWelcomeText(name, user.Email),
		user.Email,
	)
	message.SetHTML(s.generateWelcomeHTML(name, user.Email))

	return s.send(message, user.Email)
}

// SendPasswordChangedEmail notifies the account owner that their password
// was changed.
func (s *Service) SendPasswordChangedEmail(user *models.User) error {
	if !s.enabled {
		return fmt.Errorf("email service is not configured")
	}

	name := displayName(user)

	message := mailgun.NewMessage(
		s.domain,
		fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail),
		"Your Fit Check password was changed",
		s.generatePasswordChangedText(name, user.Email),
		user.Email,
	)
	message.SetHTML(s.generatePasswordChangedHTML(name, user.Email))

	return s.send(message, user.Email)
}

func (s *Service) send(message *mailgun.PlainMessage, recipient string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := s.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", recipient, err)
	}

	logger.Info("Email sent", "email", recipient, "message_id", resp)
	return nil
}

func displayName(user *models.User) string {
	if user.Name != nil && *user.Name != "" {
		return *user.Name
	}
	return "there"
}
