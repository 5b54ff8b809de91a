// Package sink persists enriched bills once a run has finished.
package sink

import (
	"context"
	"log/slog"

	"github.com/DeafMist/bills-enricher/internal/logger"
	"github.com/DeafMist/bills-enricher/internal/models"
)

// Sink receives the complete result set.
type Sink interface {
	Name() string
	Persist(ctx context.Context, bills models.Bills) error
}

// Fanout writes to a primary sink and then to optional secondaries. Only a
// primary failure is returned; secondary failures are logged.
type Fanout struct {
	Primary     Sink
	Secondaries []Sink
	Log         *slog.Logger
}

// Persist implements enrich.PersistFunc.
func (f *Fanout) Persist(ctx context.Context, bills models.Bills) error {
	log := f.Log
	if log == nil {
		log = logger.Discard()
	}

	if err := f.Primary.Persist(ctx, bills); err != nil {
		return err
	}
	log.Info("output saved", slog.String("sink", f.Primary.Name()), slog.Int("rows", len(bills)))

	for _, s := range f.Secondaries {
		if err := s.Persist(ctx, bills); err != nil {
			log.Error("secondary sink failed", slog.String("sink", s.Name()), slog.Any("err", err))
			continue
		}
		log.Info("output published", slog.String("sink", s.Name()), slog.Int("rows", len(bills)))
	}
	return nil
}
