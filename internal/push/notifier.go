package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/fairshare/internal/metrics"
	"github.com/dukerupert/fairshare/internal/model"
	"github.com/dukerupert/fairshare/internal/store"
)

// Sender delivers one notification. *Service implements it.
type Sender interface {
	Send(ctx context.Context, sub *model.PushSubscription, payload Payload) error
}

// sendTimeout bounds one fan-out. Notifications run detached from the API
// request that triggered them.
const sendTimeout = 30 * time.Second

// Notifier tells partners about adjustment requests that need or received
// their attention.
type Notifier struct {
	sender   Sender
	subs     *store.PushStore
	partners *store.PartnerStore
	metrics  metrics.Recorder
	logger   *slog.Logger
}

func NewNotifier(sender Sender, subs *store.PushStore, partners *store.PartnerStore, rec metrics.Recorder, logger *slog.Logger) *Notifier {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Notifier{sender: sender, subs: subs, partners: partners, metrics: rec, logger: logger}
}

// RequestCreated notifies every partner asked to vote on req.
func (n *Notifier) RequestCreated(req model.AdjustmentRequest) {
	payload := Payload{
		Title: "Point change requested",
		Body: fmt.Sprintf("%s asked to %s %q by %d points",
			n.name(req.RequesterID), req.Direction, req.TaskTitle, req.Delta),
		URL:    "/requests",
		Tag:    model.NotifTypeRequestCreated + "-" + req.ID,
		Urgent: true,
	}
	for partnerID := range req.Approvals {
		n.notify(partnerID, payload)
	}
}

// RequestResolved notifies the requester of the final status.
func (n *Notifier) RequestResolved(req model.AdjustmentRequest) {
	n.notify(req.RequesterID, Payload{
		Title: "Point change " + string(req.Status),
		Body:  fmt.Sprintf("Your request for %q was %s", req.TaskTitle, req.Status),
		URL:   "/requests",
		Tag:   model.NotifTypeRequestResolved + "-" + req.ID,
	})
}

func (n *Notifier) name(partnerID string) string {
	p, err := n.partners.GetByID(partnerID)
	if err != nil || p == nil || p.Name == "" {
		return partnerID
	}
	return p.Name
}

func (n *Notifier) notify(partnerID string, payload Payload) {
	subs, err := n.subs.ListByPartner(partnerID)
	if err != nil {
		n.logger.Error("list push subscriptions", "partner_id", partnerID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	for _, sub := range subs {
		err := n.sender.Send(ctx, &sub, payload)
		switch {
		case err == nil:
			n.metrics.PushSent("ok")
		case errors.Is(err, ErrExpired):
			n.metrics.PushSent("expired")
			if err := n.subs.DeleteByEndpoint(sub.Endpoint); err != nil {
				n.logger.Error("delete expired subscription", "error", err)
			}
		default:
			n.metrics.PushSent("error")
			n.logger.Warn("send push", "partner_id", partnerID, "error", err)
		}
	}
}
