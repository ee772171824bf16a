package pipeline

import (
	"context"
	"errors"
	"fmt"

	"mail_agent/internal/assistant"
	"mail_agent/internal/models"
)

var (
	ErrFetchFailed = errors.New("email fetch failed")
	ErrSendFailed  = errors.New("email send failed")
)

// summaryHeader opens every formatted summary. Kept in Croatian to
// match the emails the agent produces for its users.
const summaryHeader = "Sažetak emaila:"

type Fetcher interface {
	FetchEmail(ctx context.Context) (models.EmailContent, error)
}

type Sender interface {
	SendEmail(ctx context.Context, recipient, subject, body string) error
}

// AssistantFetcher asks the collaborator to read the mailbox,
// following the configured prompt template and custom instructions.
type AssistantFetcher struct {
	assistant assistant.Assistant
	config    models.AgentConfig
}

var _ Fetcher = (*AssistantFetcher)(nil)

func NewFetcher(a assistant.Assistant, cfg models.AgentConfig) *AssistantFetcher {
	return &AssistantFetcher{
		assistant: a,
		config:    cfg,
	}
}

func (f *AssistantFetcher) FetchEmail(ctx context.Context) (models.EmailContent, error) {
	instruction := f.config.PromptTemplate + "\n" + f.config.CustomInstructions

	out, err := f.assistant.Run(ctx, []assistant.Action{assistant.ActionFetchEmails}, instruction, false)
	if err != nil {
		return models.EmailContent{}, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	return models.EmailContent{Content: out}, nil
}

// Formatter composes the plain-text summary body. Pure and local: the
// content is embedded unchanged, with no HTML or markdown handling.
type Formatter struct {
	config models.AgentConfig
}

func NewFormatter(cfg models.AgentConfig) *Formatter {
	return &Formatter{config: cfg}
}

func (f *Formatter) FormatAsPlainText(content string) models.EmailSummary {
	body := fmt.Sprintf("%s\n\n%s\n\n%s", summaryHeader, content, f.config.CustomInstructions)

	return models.EmailSummary{Summary: body}
}

// AssistantSender instructs the collaborator to compose and dispatch
// the message. The instruction is plain language; how it maps onto a
// MIME message is the collaborator's business.
type AssistantSender struct {
	assistant assistant.Assistant
	config    models.AgentConfig
}

var _ Sender = (*AssistantSender)(nil)

func NewSender(a assistant.Assistant, cfg models.AgentConfig) *AssistantSender {
	return &AssistantSender{
		assistant: a,
		config:    cfg,
	}
}

func (s *AssistantSender) SendEmail(ctx context.Context, recipient, subject, body string) error {
	instruction := fmt.Sprintf(
		"Send an email to %s with the subject %q and the following plain text body:\n\n%s\n\n%s",
		recipient, subject, body, s.config.CustomInstructions,
	)

	_, err := s.assistant.Run(ctx, []assistant.Action{assistant.ActionSendEmail}, instruction, false)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	return nil
}
