package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

type MailerSendClient struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	enabled bool
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSendClient {
	m := &MailerSendClient{
		enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}

	if m.enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}

	return m
}

func (m *MailerSendClient) SendVerificationEmail(toEmail, toName, verifyURL string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := "Verify your email"
	html := fmt.Sprintf(`
		<h2>Welcome %s!</h2>
		<p>Thank you for registering with our store.</p>
		<p>Please verify your email address by clicking the link below:</p>
		<p><a href="%s">Verify Email</a></p>
		<p>This link will expire in 24 hours.</p>
		<p>If you didn't create an account, please ignore this email.</p>
	`, toName, verifyURL)
	text := fmt.Sprintf("Please verify your email by clicking this link: %s\n\nThis link will expire in 24 hours.", verifyURL)

	return m.sendEmail(toEmail, toName, subject, text, html)
}

func (m *MailerSendClient) SendPasswordResetEmail(toEmail, toName, resetURL string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := "Password reset request"
	html := fmt.Sprintf(`
		<h2>Password Reset Request</h2>
		<p>Hi %s,</p>
		<p>You requested to reset your password. Click the link below to proceed:</p>
		<p><a href="%s">Reset Password</a></p>
		<p>This link will expire in 1 hour.</p>
		<p>If you didn't request a password reset, please ignore this email.</p>
	`, toName, resetURL)
	text := fmt.Sprintf("Reset your password by clicking this link: %s\n\nThis link will expire in 1 hour.", resetURL)

	return m.sendEmail(toEmail, toName, subject, text, html)
}

func (m *MailerSendClient) SendOrderConfirmation(toEmail, toName, orderNumber string, total float64) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := fmt.Sprintf("Order Confirmation - %s", orderNumber)
	html := fmt.Sprintf(`
		<h2>Order Confirmed!</h2>
		<p>Hi %s,</p>
		<p>Thank you for your order. We've received it and will process it shortly.</p>
		<p><strong>Order Number:</strong> %s</p>
		<p><strong>Total:</strong> $%.2f</p>
		<p>We'll send you another email when your order ships.</p>
	`, toName, orderNumber, total)
	text := fmt.Sprintf("Thank you for your order!\n\nOrder Number: %s\nTotal: $%.2f", orderNumber, total)

	return m.sendEmail(toEmail, toName, subject, text, html)
}

func (m *MailerSendClient) sendEmail(toEmail, toName, subject, text, html string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)

	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	_, err := m.client.Email.Send(ctx, msg)
	return err
}
