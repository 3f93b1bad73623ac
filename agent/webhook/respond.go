package webhook

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

func respond(ctx context.Context, rw http.ResponseWriter, status int, data any) {
	_, span := otel.GetTracerProvider().Tracer("").Start(ctx, "webhook.respond")
	span.SetAttributes(attribute.Int("http.status", status))
	defer span.End()

	if status == http.StatusNoContent || data == nil {
		rw.WriteHeader(status)
		return
	}

	raw, err := json.Marshal(data)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("encode response")
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}

	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_, _ = rw.Write(raw)
}

func respondErr(ctx context.Context, rw http.ResponseWriter, status int, msg string) {
	respond(ctx, rw, status, map[string]string{"error": msg})
}
