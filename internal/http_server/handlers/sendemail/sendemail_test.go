package sendemail

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mail_agent/internal/assistant"
	"mail_agent/internal/http_server/middleware/authn"
	"mail_agent/internal/models"
	"mail_agent/internal/storage"
)

type fakeStore struct {
	cfg     models.AgentConfig
	present bool
}

func (f *fakeStore) AgentConfig(_ context.Context) (models.AgentConfig, error) {
	if !f.present {
		return models.AgentConfig{}, storage.ErrAgentConfigMissing
	}
	return f.cfg, nil
}

type fakeAssistant struct {
	gotInstruction string
	err            error
}

func (f *fakeAssistant) Run(_ context.Context, _ []assistant.Action, instruction string, _ bool) (string, error) {
	f.gotInstruction = instruction
	return "done", f.err
}

type fakePublisher struct {
	published []models.RunNotification
}

func (f *fakePublisher) SendNotification(_ context.Context, msg models.RunNotification) error {
	f.published = append(f.published, msg)
	return nil
}

type fakeResolver struct {
	user models.User
}

func (f fakeResolver) ResolveToken(_ context.Context, _ string) (models.User, error) {
	return f.user, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func authed(handler http.HandlerFunc) http.Handler {
	resolver := fakeResolver{user: models.User{ID: 1, Email: "owner@example.com"}}
	return authn.New(testLogger(), resolver)(handler)
}

func defaults() Defaults {
	return Defaults{
		Recipient: "default@example.com",
		Subject:   "Sažetak emaila",
	}
}

func TestNew_NotConfigured(t *testing.T) {
	handler := authed(New(testLogger(), validator.New(), &fakeStore{}, &fakeAssistant{}, &fakePublisher{}, defaults()))

	req := httptest.NewRequest(http.MethodPost, "/send-email", strings.NewReader(`{"summary":"s"}`))
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNew_MissingSummary(t *testing.T) {
	handler := authed(New(testLogger(), validator.New(), &fakeStore{present: true}, &fakeAssistant{}, &fakePublisher{}, defaults()))

	req := httptest.NewRequest(http.MethodPost, "/send-email", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNew_SendsWithDefaults(t *testing.T) {
	asst := &fakeAssistant{}
	publisher := &fakePublisher{}
	store := &fakeStore{
		cfg:     models.AgentConfig{CustomInstructions: "Sign as Bot"},
		present: true,
	}

	handler := authed(New(testLogger(), validator.New(), store, asst, publisher, defaults()))

	req := httptest.NewRequest(http.MethodPost, "/send-email", strings.NewReader(`{"summary":"the summary"}`))
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	assert.Contains(t, asst.gotInstruction, "default@example.com")
	assert.Contains(t, asst.gotInstruction, "the summary")
	assert.Contains(t, asst.gotInstruction, "Sign as Bot")

	require.Len(t, publisher.published, 1)
	assert.Equal(t, "owner@example.com", publisher.published[0].Email)
	assert.Equal(t, "send", publisher.published[0].Stage)
}

func TestNew_ExplicitRecipient(t *testing.T) {
	asst := &fakeAssistant{}
	store := &fakeStore{present: true}

	handler := authed(New(testLogger(), validator.New(), store, asst, &fakePublisher{}, defaults()))

	body := `{"summary":"s","recipient":"other@example.com","subject":"Custom"}`
	req := httptest.NewRequest(http.MethodPost, "/send-email", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, asst.gotInstruction, "other@example.com")
	assert.Contains(t, asst.gotInstruction, `"Custom"`)
}

func TestNew_CollaboratorFailure(t *testing.T) {
	asst := &fakeAssistant{err: errors.New("boom")}
	publisher := &fakePublisher{}
	store := &fakeStore{present: true}

	handler := authed(New(testLogger(), validator.New(), store, asst, publisher, defaults()))

	req := httptest.NewRequest(http.MethodPost, "/send-email", strings.NewReader(`{"summary":"s"}`))
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Empty(t, publisher.published)
}
