package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// HeaderName carries the shared secret on gated requests.
const HeaderName = "X-Shared-Secret"

var ErrUnauthorized = errors.New("missing or invalid shared secret")

var tracer = otel.Tracer("github.com/WailSalutem-Health-Care/recall-service/auth")

// MetricsRecorder interface for recording auth metrics
type MetricsRecorder interface {
	RecordAuthFailure(ctx context.Context, reason string)
}

// SharedSecret gates a route on the X-Shared-Secret header. An empty secret
// leaves the gate open.
func SharedSecret(secret string) func(http.Handler) http.Handler {
	return SharedSecretWithMetrics(secret, nil)
}

// SharedSecretWithMetrics is SharedSecret with failure metrics
func SharedSecretWithMetrics(secret string, metrics MetricsRecorder) func(http.Handler) http.Handler {
	expected := []byte(secret)

	return func(next http.Handler) http.Handler {
		if len(expected) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(r.Context(), "auth.SharedSecret",
				trace.WithSpanKind(trace.SpanKindInternal),
			)
			defer span.End()

			supplied := r.Header.Get(HeaderName)
			reason := ""
			switch {
			case supplied == "":
				reason = "missing_secret"
			case subtle.ConstantTimeCompare([]byte(supplied), expected) != 1:
				reason = "invalid_secret"
			}

			if reason != "" {
				span.SetStatus(codes.Error, "unauthorized")
				span.SetAttributes(attribute.String("error.type", reason))
				if metrics != nil {
					metrics.RecordAuthFailure(ctx, reason)
				}
				log.Warn().Str("reason", reason).Str("path", r.URL.Path).Str("remote", r.RemoteAddr).Msg("rejected gated request")
				respondUnauthorized(w)
				return
			}

			span.SetStatus(codes.Ok, "shared secret accepted")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func respondUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   "unauthorized",
		"message": ErrUnauthorized.Error(),
	})
}
