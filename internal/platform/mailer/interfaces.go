package mailer

// Service delivers transactional email. All sends are best-effort: callers
// log failures and carry on.
type Service interface {
	SendVerificationEmail(toEmail, toName, verifyURL string) error
	SendPasswordResetEmail(toEmail, toName, resetURL string) error
	SendOrderConfirmation(toEmail, toName, orderNumber string, total float64) error
}
