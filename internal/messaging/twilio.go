package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// messageCreator is the slice of the Twilio REST API the sender uses
type messageCreator interface {
	CreateMessage(params *twilioapi.CreateMessageParams) (*twilioapi.ApiV2010Message, error)
}

// TwilioSender sends SMS through the Twilio Messages resource
type TwilioSender struct {
	from string
	api  messageCreator
}

func NewTwilioSender(accountSID, authToken, from string) *TwilioSender {
	s := &TwilioSender{from: from}
	if accountSID != "" && authToken != "" {
		rest := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		})
		s.api = rest.Api
	}
	return s
}

func (s *TwilioSender) Configured() bool {
	return s.api != nil && s.from != ""
}

func (s *TwilioSender) Send(ctx context.Context, to, body string) (string, error) {
	if !s.Configured() {
		return "", errors.New("twilio is not configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetFrom(s.from)
	params.SetTo(to)
	params.SetBody(body)

	msg, err := s.api.CreateMessage(params)
	if err != nil {
		var restErr *twilioclient.TwilioRestError
		if errors.As(err, &restErr) {
			return "", fmt.Errorf("twilio error (status %d, code %d): %s", restErr.Status, restErr.Code, restErr.Message)
		}
		return "", fmt.Errorf("failed to send sms: %w", err)
	}
	if msg == nil || msg.Sid == nil {
		return "", nil
	}
	return *msg.Sid, nil
}
