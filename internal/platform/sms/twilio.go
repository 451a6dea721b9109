package sms

import (
	"fmt"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

type TwilioSender struct {
	client *twilio.RestClient
	from   string
}

func NewTwilio(accountSID, authToken, fromNumber string) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSender{client: client, from: fromNumber}
}

func (s *TwilioSender) SendOTP(toNumber, code string) error {
	body := fmt.Sprintf("Your verification code is: %s. This code will expire in 10 minutes. Do not share this code with anyone.", code)
	return s.send(toNumber, body)
}

func (s *TwilioSender) SendOrderStatus(toNumber, orderNumber, status string) error {
	body := fmt.Sprintf("Order %s: %s", orderNumber, statusMessage(status))
	return s.send(toNumber, body)
}

func (s *TwilioSender) send(toNumber, body string) error {
	params := &api.CreateMessageParams{}
	params.SetTo(toNumber)
	params.SetFrom(s.from)
	params.SetBody(body)

	_, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	return nil
}
