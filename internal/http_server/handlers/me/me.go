package me

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"mail_agent/internal/http_server/middleware/authn"
	resp "mail_agent/internal/lib/api/response"
)

type Response struct {
	resp.Response
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

func New(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.me.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		user, ok := authn.UserFromContext(r.Context())
		if !ok {
			log.Error("no user in request context")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Invalid credentials"))

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			ID:       user.ID,
			Email:    user.Email,
		})
	}
}
