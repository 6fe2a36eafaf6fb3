package services

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/contactsbook/apiserver/internal/mq"
)

// VerificationEventType tags verification messages on the broker.
const VerificationEventType = "user.verification_requested"

// Publisher sends messages to a broker channel. *mq.MQ satisfies it.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// VerificationEvent asks a mailer to send the confirmation link to Email.
type VerificationEvent struct {
	Email             string `json:"email"`
	VerificationToken string `json:"verificationToken"`
	VerifyURL         string `json:"verifyURL"`
}

// VerificationEvents publishes verification requests. A nil publisher disables publishing.
type VerificationEvents struct {
	publisher Publisher
	channel   string
	baseURL   string
}

func NewVerificationEvents(publisher Publisher, channel, baseURL string) *VerificationEvents {
	return &VerificationEvents{publisher: publisher, channel: channel, baseURL: baseURL}
}

// Enabled reports whether events are actually sent.
func (e *VerificationEvents) Enabled() bool {
	return e != nil && e.publisher != nil
}

func (e *VerificationEvents) Publish(ctx context.Context, email, token string) error {
	if !e.Enabled() {
		return nil
	}
	data, err := json.Marshal(VerificationEvent{
		Email:             email,
		VerificationToken: token,
		VerifyURL:         e.baseURL + "/users/verify/" + url.PathEscape(token),
	})
	if err != nil {
		return err
	}
	_, err = e.publisher.Publish(ctx, e.channel, data, map[string]string{mq.AttrType: VerificationEventType})
	return err
}

// DecodeVerificationEvent parses a message body produced by Publish.
func DecodeVerificationEvent(data []byte) (VerificationEvent, error) {
	var event VerificationEvent
	err := json.Unmarshal(data, &event)
	return event, err
}
