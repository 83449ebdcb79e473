package history

import (
	"context"

	"github.com/antoniostano/traduttore/internal/pipeline"
)

// Sink adapts a Store to the pipeline's history interface.
type Sink struct {
	store Store
}

func NewSink(store Store) *Sink {
	return &Sink{store: store}
}

func (s *Sink) Save(ctx context.Context, entry pipeline.HistoryEntry) error {
	return s.store.Save(ctx, Record{
		SessionID:   entry.SessionID,
		Seq:         entry.Seq,
		Transcript:  entry.Transcript,
		Translation: entry.Translation,
		SourceLang:  entry.SourceLang,
		TargetLang:  entry.TargetLang,
		Model:       entry.Model,
		CreatedAt:   entry.CreatedAt,
	})
}
