package mailer

import "github.com/maplecart/storefront/pkg/logger"

// DevMailer logs instead of sending. Used when no MailerSend key is set.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) SendVerificationEmail(toEmail, toName, verifyURL string) error {
	logger.Info("[dev mail] verification email",
		"to", toEmail,
		"name", toName,
		"verify_url", verifyURL,
	)
	return nil
}

func (d *DevMailer) SendPasswordResetEmail(toEmail, toName, resetURL string) error {
	logger.Info("[dev mail] password reset email",
		"to", toEmail,
		"name", toName,
		"reset_url", resetURL,
	)
	return nil
}

func (d *DevMailer) SendOrderConfirmation(toEmail, toName, orderNumber string, total float64) error {
	logger.Info("[dev mail] order confirmation",
		"to", toEmail,
		"name", toName,
		"order_number", orderNumber,
		"total", total,
	)
	return nil
}
