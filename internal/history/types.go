package history

import (
	"context"
	"time"
)

// Record is one translated utterance in the session log.
type Record struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Seq         uint64    `json:"sequence"`
	Transcript  string    `json:"transcription"`
	Translation string    `json:"translation"`
	SourceLang  string    `json:"source_language"`
	TargetLang  string    `json:"target_language"`
	Model       string    `json:"model"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists the translation log.
type Store interface {
	Save(ctx context.Context, record Record) error
	Recent(ctx context.Context, sessionID string, limit int) ([]Record, error)
	Close() error
}
