package model

import "time"

// Notification types sent to partners.
const (
	NotifTypeRequestCreated  = "request_created"
	NotifTypeRequestResolved = "request_resolved"
)

type PushSubscription struct {
	ID         int64     `json:"id"`
	PartnerID  string    `json:"partner_id"`
	Endpoint   string    `json:"endpoint"`
	P256dhKey  string    `json:"p256dh_key"`
	AuthKey    string    `json:"auth_key"`
	DeviceName string    `json:"device_name"`
	CreatedAt  time.Time `json:"created_at"`
}
