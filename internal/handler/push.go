package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/fairshare/internal/apperr"
	"github.com/dukerupert/fairshare/internal/auth"
	"github.com/dukerupert/fairshare/internal/push"
	"github.com/dukerupert/fairshare/internal/store"
)

type PushHandler struct {
	pushStore *store.PushStore
	service   *push.Service
	logger    *slog.Logger
}

func NewPushHandler(ps *store.PushStore, svc *push.Service, logger *slog.Logger) *PushHandler {
	return &PushHandler{pushStore: ps, service: svc, logger: logger}
}

type subscribeRequest struct {
	Endpoint   string `json:"endpoint"`
	P256dh     string `json:"p256dh"`
	Auth       string `json:"auth"`
	DeviceName string `json:"device_name"`
}

// Subscribe handles POST /api/push/subscribe
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.Endpoint == "" || req.P256dh == "" || req.Auth == "" {
		writeError(w, h.logger, apperr.Validation("endpoint, p256dh, and auth are required"))
		return
	}

	sub, err := h.pushStore.CreateSubscription(auth.PartnerID(r.Context()), req.Endpoint, req.P256dh, req.Auth, req.DeviceName)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// Unsubscribe handles DELETE /api/push/subscribe with {"endpoint": ...}.
// Only the caller's own subscriptions can be removed.
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	partnerID := auth.PartnerID(r.Context())
	subs, err := h.pushStore.ListByPartner(partnerID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	for _, sub := range subs {
		if sub.Endpoint == req.Endpoint {
			if err := h.pushStore.DeleteSubscription(sub.ID, partnerID); err != nil {
				writeError(w, h.logger, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, h.logger, apperr.NotFound("subscription", req.Endpoint))
}

// GetVAPIDKey handles GET /api/push/vapid-key
func (h *PushHandler) GetVAPIDKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.service.VAPIDPublicKey()})
}
