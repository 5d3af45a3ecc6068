// internal/pkg/email/types.go
package email

import (
	"time"
)

// EmailType represents the type of email being sent
type EmailType string

const (
	EmailTypeWelcome           EmailType = "welcome"
	EmailTypePasswordReset     EmailType = "password_reset"
	EmailTypeOrderConfirmation EmailType = "order_confirmation"
)

// Email represents an email message
type Email struct {
	To          []string  `json:"to"`
	Subject     string    `json:"subject"`
	HTMLContent string    `json:"html_content"`
	TextContent string    `json:"text_content,omitempty"`
	Type        EmailType `json:"type"`
}

// EmailTemplateData contains common data for all email templates
type EmailTemplateData struct {
	SiteName  string `json:"site_name"`
	SiteURL   string `json:"site_url"`
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
	Year      int    `json:"year"`
}

// WelcomeEmailData contains data for the welcome email
type WelcomeEmailData struct {
	EmailTemplateData
}

// PasswordResetEmailData contains data for the password reset email
type PasswordResetEmailData struct {
	EmailTemplateData
	ResetURL  string `json:"reset_url"`
	ExpiresIn string `json:"expires_in"`
}

// OrderConfirmationEmailData contains data for the order confirmation email
type OrderConfirmationEmailData struct {
	EmailTemplateData
	OrderNumber string `json:"order_number"`
	Total       string `json:"total"`
}

// GetBaseTemplateData builds the common template data block
func GetBaseTemplateData(siteName, siteURL, userName, userEmail string) EmailTemplateData {
	return EmailTemplateData{
		SiteName:  siteName,
		SiteURL:   siteURL,
		UserName:  userName,
		UserEmail: userEmail,
		Year:      time.Now().Year(),
	}
}
