package history

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/devwiki/wikitools/internal/batch"
)

// Recorder writes runs to a Store as they happen. Storage errors are logged
// and never affect the run.
type Recorder struct {
	store  *Store
	wiki   string
	logger *zap.Logger
}

var _ batch.Observer = (*Recorder)(nil)

// NewRecorder creates a Recorder tagging runs with the wiki endpoint.
func NewRecorder(store *Store, wiki string, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, wiki: wiki, logger: logger}
}

func (r *Recorder) RunStarted(run *batch.Run) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.store.CreateRun(ctx, run, r.wiki); err != nil {
		r.logger.Error("recording run start", zap.String("run_id", run.ID), zap.Error(err))
	}
}

func (r *Recorder) EntryAdded(run *batch.Run, e batch.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// Observers run right after the entry is appended, so the log length is
	// its position.
	if err := r.store.AppendEntry(ctx, run.ID, run.Log.Len(), e); err != nil {
		r.logger.Error("recording run entry", zap.String("run_id", run.ID), zap.Error(err))
	}
}

func (r *Recorder) RunFinished(run *batch.Run) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.store.FinishRun(ctx, run); err != nil {
		r.logger.Error("recording run finish", zap.String("run_id", run.ID), zap.Error(err))
	}
}
