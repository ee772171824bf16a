package sendemail

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"mail_agent/internal/assistant"
	"mail_agent/internal/http_server/middleware/authn"
	resp "mail_agent/internal/lib/api/response"
	sl "mail_agent/internal/lib/logger"
	"mail_agent/internal/models"
	"mail_agent/internal/pipeline"
	"mail_agent/internal/storage"
)

// Request carries the summary to dispatch. Recipient and subject fall
// back to the configured defaults when omitted. The recipient gets no
// format validation; the collaborator deals with whatever it is.
type Request struct {
	Summary   string `json:"summary" validate:"required"`
	Recipient string `json:"recipient,omitempty"`
	Subject   string `json:"subject,omitempty"`
}

type Response struct {
	resp.Response
	Message string `json:"message"`
}

type ConfigProvider interface {
	AgentConfig(ctx context.Context) (models.AgentConfig, error)
}

type NotificationPublisher interface {
	SendNotification(ctx context.Context, msg models.RunNotification) error
}

type Defaults struct {
	Recipient string
	Subject   string
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	store ConfigProvider,
	asst assistant.Assistant,
	publisher NotificationPublisher,
	defaults Defaults,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.sendemail.New"

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

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

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

		recipient := req.Recipient
		if recipient == "" {
			recipient = defaults.Recipient
		}

		subject := req.Subject
		if subject == "" {
			subject = defaults.Subject
		}

		sender := pipeline.NewSender(asst, cfg)

		if err := sender.SendEmail(r.Context(), recipient, subject, req.Summary); err != nil {
			log.Error("send stage failed", sl.Err(err))

			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, resp.Error("Failed to send email"))

			return
		}

		log.Info("email sent", slog.String("recipient", recipient))

		if user, ok := authn.UserFromContext(r.Context()); ok && publisher != nil {
			notification := models.RunNotification{
				Email:  user.Email,
				Stage:  "send",
				Detail: "Your agent sent a summary to " + recipient,
			}

			if err := publisher.SendNotification(r.Context(), notification); err != nil {
				log.Warn("failed to publish run notification", sl.Err(err))
			}
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Message:  "Email sent",
		})
	}
}
