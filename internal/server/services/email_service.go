package services

import (
	"fmt"
	"html"
	"time"

	"github.com/resendlabs/resend-go"
)

type EmailService struct {
	client    *resend.Client
	fromEmail string
	skipSend  bool
}

func NewEmailService(apiKey, fromEmail string, skipSend bool) (*EmailService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY environment variable not set")
	}
	if fromEmail == "" {
		fromEmail = "licenses@license-gateway.local"
	}

	return &EmailService{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
		skipSend:  skipSend,
	}, nil
}

// LicenseKeyEmail is the content of the message sent when a license is
// issued to a user.
type LicenseKeyEmail struct {
	To          string
	FullName    string
	LicenseKey  string
	ProductName string
	Version     string
	ExpiresAt   *time.Time
}

func (s *EmailService) SendLicenseKey(msg LicenseKeyEmail) error {
	if s.skipSend {
		return nil
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{msg.To},
		Subject: fmt.Sprintf("Your %s license key", msg.ProductName),
		Html:    renderLicenseKeyEmail(msg),
	}

	_, err := s.client.Emails.Send(params)
	return err
}

func renderLicenseKeyEmail(msg LicenseKeyEmail) string {
	greeting := "Hello,"
	if msg.FullName != "" {
		greeting = fmt.Sprintf("Hello %s,", html.EscapeString(msg.FullName))
	}

	expiry := "This license does not expire."
	if msg.ExpiresAt != nil {
		expiry = fmt.Sprintf("This license is valid until %s.", msg.ExpiresAt.UTC().Format("January 2, 2006"))
	}

	return fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
			<h2 style="color: #333;">%s %s</h2>
			<p>%s</p>
			<p>A license has been issued to you. Your license key is:</p>
			<div style="background-color: #f4f4f4; padding: 20px; text-align: center; font-size: 24px; font-weight: bold; letter-spacing: 4px; margin: 20px 0;">
				%s
			</div>
			<p style="color: #666;">%s</p>
			<p style="color: #666;">Enter this key in the application when asked to activate it.</p>
			<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">
			<p style="color: #999; font-size: 12px;">License Gateway</p>
		</div>
	`,
		html.EscapeString(msg.ProductName), html.EscapeString(msg.Version),
		greeting,
		html.EscapeString(msg.LicenseKey),
		expiry,
	)
}
