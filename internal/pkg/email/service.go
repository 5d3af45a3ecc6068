// internal/pkg/email/service.go
package email

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/sirupsen/logrus"

	"github.com/your-org/storefront-api/internal/config"
)

// EmailService handles all email operations
type EmailService struct {
	config    *config.Config
	templates map[EmailType]*template.Template
}

// NewEmailService creates a new email service
func NewEmailService(cfg *config.Config) *EmailService {
	service := &EmailService{
		config:    cfg,
		templates: make(map[EmailType]*template.Template),
	}

	if err := service.loadTemplates(); err != nil {
		logrus.WithError(err).Warn("Failed to load email templates")
	}

	return service
}

// SendEmail sends an email using the configured provider. When email is
// disabled the message is logged and dropped.
func (s *EmailService) SendEmail(email *Email) error {
	if !s.config.Email.Enabled {
		logrus.WithFields(logrus.Fields{
			"to":      email.To,
			"subject": email.Subject,
			"type":    email.Type,
		}).Info("Email sending disabled, dropping message")
		return nil
	}

	switch s.config.Email.Provider {
	case "smtp":
		return s.sendSMTPEmail(email)
	default:
		return fmt.Errorf("unsupported email provider: %s", s.config.Email.Provider)
	}
}

// SendWelcomeEmail sends a welcome email to new users
func (s *EmailService) SendWelcomeEmail(to, name string) error {
	data := WelcomeEmailData{
		EmailTemplateData: s.baseData(name, to),
	}

	htmlContent, err := s.renderTemplate(EmailTypeWelcome, data)
	if err != nil {
		return fmt.Errorf("failed to render welcome email: %w", err)
	}

	return s.SendEmail(&Email{
		To:          []string{to},
		Subject:     fmt.Sprintf("Welcome to %s!", s.config.Email.FromName),
		HTMLContent: htmlContent,
		Type:        EmailTypeWelcome,
	})
}

// SendPasswordResetEmail sends the password reset link with the plain token
func (s *EmailService) SendPasswordResetEmail(to, name, token string) error {
	data := PasswordResetEmailData{
		EmailTemplateData: s.baseData(name, to),
		ResetURL:          fmt.Sprintf("%s/reset-password?token=%s", s.config.App.BaseURL, token),
		ExpiresIn:         s.config.Security.PasswordResetExpiry.String(),
	}

	htmlContent, err := s.renderTemplate(EmailTypePasswordReset, data)
	if err != nil {
		return fmt.Errorf("failed to render password reset email: %w", err)
	}

	return s.SendEmail(&Email{
		To:          []string{to},
		Subject:     "Reset your password",
		HTMLContent: htmlContent,
		Type:        EmailTypePasswordReset,
	})
}

// SendOrderConfirmationEmail confirms a newly placed order. total is in cents.
func (s *EmailService) SendOrderConfirmationEmail(to, name, orderNumber string, total int64) error {
	data := OrderConfirmationEmailData{
		EmailTemplateData: s.baseData(name, to),
		OrderNumber:       orderNumber,
		Total:             fmt.Sprintf("%.2f", float64(total)/100),
	}

	htmlContent, err := s.renderTemplate(EmailTypeOrderConfirmation, data)
	if err != nil {
		return fmt.Errorf("failed to render order confirmation email: %w", err)
	}

	return s.SendEmail(&Email{
		To:          []string{to},
		Subject:     fmt.Sprintf("Order %s confirmed", orderNumber),
		HTMLContent: htmlContent,
		Type:        EmailTypeOrderConfirmation,
	})
}

func (s *EmailService) baseData(name, email string) EmailTemplateData {
	return GetBaseTemplateData(s.config.Email.FromName, s.config.App.BaseURL, name, email)
}

func (s *EmailService) renderTemplate(emailType EmailType, data interface{}) (string, error) {
	tmpl, ok := s.templates[emailType]
	if !ok {
		return "", fmt.Errorf("no template for email type %s", emailType)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *EmailService) loadTemplates() error {
	sources := map[EmailType]string{
		EmailTypeWelcome:           welcomeTemplate,
		EmailTypePasswordReset:     passwordResetTemplate,
		EmailTypeOrderConfirmation: orderConfirmationTemplate,
	}

	for emailType, src := range sources {
		tmpl, err := template.New(string(emailType)).Parse(src)
		if err != nil {
			return fmt.Errorf("failed to parse %s template: %w", emailType, err)
		}
		s.templates[emailType] = tmpl
	}

	return nil
}

const welcomeTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Welcome to {{.SiteName}}, {{.UserName}}!</h2>
  <p>Your account has been created. You can now browse the catalog and place orders.</p>
  <p><a href="{{.SiteURL}}">Start shopping</a></p>
  <p style="color: #999; font-size: 12px;">&copy; {{.Year}} {{.SiteName}}</p>
</body>
</html>`

const passwordResetTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Password reset requested</h2>
  <p>Hi {{.UserName}}, a password reset was requested for your account.</p>
  <p><a href="{{.ResetURL}}">Reset your password</a></p>
  <p>This link expires in {{.ExpiresIn}}. If you did not request a reset, ignore this email.</p>
  <p style="color: #999; font-size: 12px;">&copy; {{.Year}} {{.SiteName}}</p>
</body>
</html>`

const orderConfirmationTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Thanks for your order, {{.UserName}}!</h2>
  <p>Your order <strong>{{.OrderNumber}}</strong> has been received.</p>
  <p>Order total: <strong>${{.Total}}</strong></p>
  <p>We will let you know when it ships.</p>
  <p style="color: #999; font-size: 12px;">&copy; {{.Year}} {{.SiteName}}</p>
</body>
</html>`
