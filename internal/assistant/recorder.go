package assistant

import (
	"context"

	"github.com/kalambet/folio/internal/storage"
)

// InteractionSaver persists interaction metadata. *storage.Store satisfies it.
type InteractionSaver interface {
	SaveInteraction(i storage.Interaction) (storage.Interaction, error)
}

// StoreRecorder writes interactions to the interaction log.
type StoreRecorder struct {
	store InteractionSaver
}

// NewStoreRecorder creates a Recorder backed by store.
func NewStoreRecorder(store InteractionSaver) *StoreRecorder {
	return &StoreRecorder{store: store}
}

func (r *StoreRecorder) RecordInteraction(_ context.Context, in Interaction) error {
	_, err := r.store.SaveInteraction(storage.Interaction{
		CreatedAt:  in.At,
		Kind:       string(in.Kind),
		Status:     in.Status.String(),
		Attempts:   in.Attempts,
		DurationMs: in.Duration.Milliseconds(),
	})
	return err
}
