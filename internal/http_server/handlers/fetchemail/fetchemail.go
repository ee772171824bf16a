package fetchemail

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"mail_agent/internal/assistant"
	resp "mail_agent/internal/lib/api/response"
	sl "mail_agent/internal/lib/logger"
	"mail_agent/internal/models"
	"mail_agent/internal/pipeline"
	"mail_agent/internal/storage"
)

type Response struct {
	resp.Response
	Content string `json:"content"`
}

type ConfigProvider interface {
	AgentConfig(ctx context.Context) (models.AgentConfig, error)
}

// New runs the fetch stage. The collaborator call is bounded only by
// its own client timeout, per the pipeline contract.
func New(log *slog.Logger, store ConfigProvider, asst assistant.Assistant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.fetchemail.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

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

		fetcher := pipeline.NewFetcher(asst, cfg)

		content, err := fetcher.FetchEmail(r.Context())
		if err != nil {
			log.Error("fetch stage failed", sl.Err(err))

			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, resp.Error("Failed to fetch email"))

			return
		}

		log.Info("email fetched", slog.Int("content_len", len(content.Content)))

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Content:  content.Content,
		})
	}
}
