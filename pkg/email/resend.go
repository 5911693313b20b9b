package email

import (
	"fmt"
	"log"
	"os"

	"github.com/resendlabs/resend-go"
)

type EmailService struct {
	client   *resend.Client
	from     string
	fromName string
	logger   *log.Logger
}

func NewEmailService() *EmailService {
	return &EmailService{
		client:   resend.NewClient(os.Getenv("RESEND_API_KEY")),
		from:     os.Getenv("EMAIL_FROM_ADDRESS"),
		fromName: os.Getenv("EMAIL_FROM_NAME"),
		logger:   log.New(os.Stdout, "EMAIL: ", log.LstdFlags),
	}
}

// SendVerificationApprovedEmail notifies a member their membership is active.
func (s *EmailService) SendVerificationApprovedEmail(to, fullName, messName string) error {
	s.logger.Printf("Sending verification approved email to: %s", to)

	html := fmt.Sprintf(
		`<p>Hi %s,</p><p>Your payment has been verified and your membership at <b>%s</b> is now active.</p>`,
		fullName, messName)

	return s.send(to, fmt.Sprintf("Membership activated - %s", messName), html)
}

// SendVerificationRejectedEmail notifies a member their claim was rejected,
// including the owner's reason.
func (s *EmailService) SendVerificationRejectedEmail(to, fullName, messName, reason string) error {
	s.logger.Printf("Sending verification rejected email to: %s", to)

	html := fmt.Sprintf(
		`<p>Hi %s,</p><p>Your payment verification at <b>%s</b> was rejected.</p><p>Reason: %s</p>`,
		fullName, messName, reason)

	return s.send(to, fmt.Sprintf("Payment verification rejected - %s", messName), html)
}

// SendLowCreditWarningEmail warns a mess owner their balance dropped below
// the configured threshold.
func (s *EmailService) SendLowCreditWarningEmail(to, messName string, available, threshold int64) error {
	s.logger.Printf("Sending low credit warning to: %s (available=%d)", to, available)

	html := fmt.Sprintf(
		`<p>Your mess <b>%s</b> has %d credits remaining (warning threshold: %d).</p><p>Top up to keep approving new members.</p>`,
		messName, available, threshold)

	return s.send(to, fmt.Sprintf("Low credits - %s", messName), html)
}

func (s *EmailService) send(to, subject, html string) error {
	params := &resend.SendEmailRequest{
		From:    s.fromName + " <" + s.from + ">",
		To:      []string{to},
		Subject: subject,
		Html:    html,
	}

	resp, err := s.client.Emails.Send(params)
	if err != nil {
		s.logger.Printf("Failed to send email to %s: %v", to, err)
		return err
	}

	s.logger.Printf("Successfully sent email to %s (ID: %s)", to, resp.Id)
	return nil
}
