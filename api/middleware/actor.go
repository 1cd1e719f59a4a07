package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/partsdesk/pricing-backend/api/responses"
	pkgerrors "github.com/partsdesk/pricing-backend/pkg/errors"
	"github.com/partsdesk/pricing-backend/pkg/logger"
)

const actorIDHeader = "X-Actor-Id"

// Actor reads the back-office actor from X-Actor-Id. The header is optional;
// when present it must be a UUID. Authenticating it happens upstream.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(actorIDHeader))
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			actorID, err := uuid.Parse(raw)
			if err != nil || actorID == uuid.Nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Validation("X-Actor-Id", "X-Actor-Id must be a valid uuid"))
				return
			}

			ctx := WithActorID(r.Context(), actorID)
			if logg != nil {
				ctx = logg.WithActorID(ctx, actorID.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
