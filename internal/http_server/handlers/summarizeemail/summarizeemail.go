package summarizeemail

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	resp "mail_agent/internal/lib/api/response"
	sl "mail_agent/internal/lib/logger"
	"mail_agent/internal/models"
	"mail_agent/internal/pipeline"
	"mail_agent/internal/storage"
)

// Request carries the fetch stage output. Content may be empty; the
// formatter is total over any string.
type Request struct {
	Content string `json:"content"`
}

type Response struct {
	resp.Response
	Summary string `json:"summary"`
}

type ConfigProvider interface {
	AgentConfig(ctx context.Context) (models.AgentConfig, error)
}

func New(log *slog.Logger, store ConfigProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.summarizeemail.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		cfg, err := store.AgentConfig(r.Context())
		if err != nil {
			if errors.Is(err, storage.ErrAgentConfigMissing) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Agent is not configured"))

				return
			}

			log.Error("failed to load agent settings", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		summary := pipeline.NewFormatter(cfg).FormatAsPlainText(req.Content)

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Summary:  summary.Summary,
		})
	}
}
