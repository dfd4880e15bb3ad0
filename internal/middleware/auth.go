package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/dukerupert/fairshare/internal/apperr"
	"github.com/dukerupert/fairshare/internal/auth"
	"github.com/dukerupert/fairshare/internal/store"
)

// RequireAuth verifies the bearer token, checks that its subject is on the
// roster and populates AuthContext.
func RequireAuth(tokens *auth.Tokens, partnerStore *store.PartnerStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.BearerToken(r.Header.Get("Authorization"))
			if token == "" {
				writeError(w, apperr.KindUnauthorized, "missing bearer token")
				return
			}

			ac, err := tokens.Verify(token)
			if err != nil {
				writeError(w, apperr.KindUnauthorized, "invalid bearer token")
				return
			}

			partner, err := partnerStore.GetByID(ac.PartnerID)
			if err != nil {
				writeError(w, "internal", "internal error")
				return
			}
			if partner == nil {
				writeError(w, apperr.KindUnauthorized, "unknown partner")
				return
			}

			notePartner(r.Context(), ac.PartnerID)
			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeError(w http.ResponseWriter, kind apperr.Kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperr.HTTPStatus(kind))
	json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": string(kind)})
}
