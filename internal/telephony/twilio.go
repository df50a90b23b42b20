package telephony

import (
	"fmt"
	"log"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Service places outbound calls through the Twilio REST API.
type Service struct {
	client *twilio.RestClient
	from   string
}

func New(accountSID, authToken, fromNumber string) *Service {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &Service{client: client, from: fromNumber}
}

// PlaceCall dials the recipient and hands Twilio the inline TwiML to execute
// when the call connects. It returns the call SID, which keys the session.
func (s *Service) PlaceCall(to, twiml string) (string, error) {
	params := &twilioApi.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetTwiml(twiml)

	resp, err := s.client.Api.CreateCall(params)
	if err != nil {
		return "", fmt.Errorf("telephony: create call failed: %w", err)
	}
	if resp.Sid == nil {
		return "", fmt.Errorf("telephony: create call returned no SID")
	}
	log.Printf("telephony: call initiated to %s, sid=%s", to, *resp.Sid)
	return *resp.Sid, nil
}
