package assistant

import "context"

// Action identifies one email operation the collaborator is allowed
// to perform during a run.
type Action string

const (
	ActionFetchEmails Action = "GMAIL_FETCH_EMAILS"
	ActionSendEmail   Action = "GMAIL_SEND_EMAIL"
)

// Assistant is the single capability the pipeline needs from an AI
// integration: run a natural-language instruction restricted to a set
// of allowed actions and return the free-text result.
type Assistant interface {
	Run(ctx context.Context, actions []Action, instruction string, streaming bool) (string, error)
}
