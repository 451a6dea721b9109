package sms

// Sender delivers SMS messages. Best-effort, same contract as the mailer:
// callers log failures without aborting the triggering operation.
type Sender interface {
	SendOTP(toNumber, code string) error
	SendOrderStatus(toNumber, orderNumber, status string) error
}

func statusMessage(status string) string {
	switch status {
	case "paid":
		return "Your order has been confirmed and is being processed."
	case "shipped":
		return "Your order has been shipped and is on its way!"
	case "delivered":
		return "Your order has been delivered. Thank you for shopping with us!"
	default:
		return "Your order status has been updated to: " + status
	}
}
