package settings

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	resp "mail_agent/internal/lib/api/response"
	sl "mail_agent/internal/lib/logger"
	"mail_agent/internal/models"
	"mail_agent/internal/storage"
)

// maxFormMemory bounds the in-memory part of the multipart parse; the
// optional training file spills to disk beyond this.
const maxFormMemory = 10 << 20

type ConfigStore interface {
	AgentConfig(ctx context.Context) (models.AgentConfig, error)
	UpsertAgentConfig(ctx context.Context, cfg models.AgentConfig) error
}

type UpdateResponse struct {
	resp.Response
	Message string `json:"message"`
}

type GetResponse struct {
	resp.Response
	models.AgentConfig
}

// Update handles the multipart settings form. The optional training
// file is accepted and discarded; nothing downstream consumes it.
func Update(log *slog.Logger, store ConfigStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.settings.Update"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			log.Error("Failed to parse form", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to parse form"))

			return
		}

		cfg := models.AgentConfig{
			Name:               r.FormValue("name"),
			Description:        r.FormValue("description"),
			PromptTemplate:     r.FormValue("promptTemplate"),
			CustomInstructions: r.FormValue("customInstructions"),
		}

		if file, header, err := r.FormFile("file"); err == nil {
			file.Close()
			log.Info("training file received, ignoring",
				slog.String("filename", header.Filename),
				slog.Int64("size", header.Size),
			)
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := store.UpsertAgentConfig(ctx, cfg); err != nil {
			log.Error("failed to save agent settings", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("agent settings saved", slog.String("name", cfg.Name))

		render.JSON(w, r, UpdateResponse{
			Response: resp.OK(),
			Message:  "Agent settings saved",
		})
	}
}

func Get(log *slog.Logger, store ConfigStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.settings.Get"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		cfg, err := store.AgentConfig(ctx)
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

		render.JSON(w, r, GetResponse{
			Response:    resp.OK(),
			AgentConfig: cfg,
		})
	}
}
