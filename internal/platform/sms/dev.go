package sms

import "github.com/maplecart/storefront/pkg/logger"

// DevSender logs instead of sending. Used when Twilio is not configured.
type DevSender struct{}

func NewDevSender() *DevSender {
	return &DevSender{}
}

func (d *DevSender) SendOTP(toNumber, code string) error {
	logger.Info("[dev sms] verification code",
		"to", toNumber,
		"code", code,
	)
	return nil
}

func (d *DevSender) SendOrderStatus(toNumber, orderNumber, status string) error {
	logger.Info("[dev sms] order status",
		"to", toNumber,
		"order_number", orderNumber,
		"message", statusMessage(status),
	)
	return nil
}
