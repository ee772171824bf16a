package models

import "time"

type User struct {
	ID       int64
	Email    string
	PassHash []byte
}

type RefreshToken struct {
	TokenHash []byte
	UserID    int64
	ExpiresAt time.Time
}

// AgentConfig is the singleton agent profile that parameterizes the
// email pipeline. Settings updates overwrite all four fields in place.
type AgentConfig struct {
	Name               string `json:"name"`
	Description        string `json:"description"`
	PromptTemplate     string `json:"promptTemplate"`
	CustomInstructions string `json:"customInstructions"`
}

// EmailContent is the fetch stage output. Not persisted.
type EmailContent struct {
	Content string `json:"content"`
}

// EmailSummary is the format stage output. Not persisted.
type EmailSummary struct {
	Summary string `json:"summary"`
}

// RunNotification is published to the notification queue after a
// pipeline run and consumed by the notifier worker.
type RunNotification struct {
	Email  string `json:"to"`
	Stage  string `json:"stage"`
	Detail string `json:"detail"`
}
