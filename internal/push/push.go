// Package push delivers Web Push notifications about adjustment requests.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/dukerupert/fairshare/internal/model"
)

// ErrExpired means the browser dropped the subscription (404 or 410).
var ErrExpired = errors.New("push subscription expired")

// Payload is the JSON the service worker receives.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`

	// Urgent asks the push service to deliver right away, even to a device
	// saving battery.
	Urgent bool `json:"-"`
}

const defaultTTL = 24 * 60 * 60

type Option func(*Service)

// WithHTTPClient replaces the client used to reach push services.
func WithHTTPClient(c webpush.HTTPClient) Option {
	return func(s *Service) { s.client = c }
}

// WithSubscriber sets the VAPID contact (a mailto: or https: URL).
func WithSubscriber(sub string) Option {
	return func(s *Service) { s.subscriber = sub }
}

// Service signs and sends notifications with the household's VAPID keys.
type Service struct {
	publicKey  string
	privateKey string
	subscriber string
	client     webpush.HTTPClient
}

func NewService(publicKey, privateKey string, opts ...Option) *Service {
	s := &Service{
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: "mailto:noreply@fairshare.app",
		client:     http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enabled reports whether VAPID keys are configured. A nil Service is
// disabled.
func (s *Service) Enabled() bool {
	return s != nil && s.publicKey != "" && s.privateKey != ""
}

func (s *Service) VAPIDPublicKey() string {
	return s.publicKey
}

// Send encrypts payload for sub and posts it to the subscription's push
// service.
func (s *Service) Send(ctx context.Context, sub *model.PushSubscription, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	urgency := webpush.UrgencyNormal
	if payload.Urgent {
		urgency = webpush.UrgencyHigh
	}
	resp, err := webpush.SendNotificationWithContext(ctx, data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.P256dhKey, Auth: sub.AuthKey},
	}, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             defaultTTL,
		Urgency:         urgency,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		return ErrExpired
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}

// GenerateVAPIDKeys returns a fresh base64url-encoded P-256 key pair.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	privateKey, publicKey, err = webpush.GenerateVAPIDKeys()
	if err != nil {
		return "", "", fmt.Errorf("generate VAPID keys: %w", err)
	}
	return publicKey, privateKey, nil
}
