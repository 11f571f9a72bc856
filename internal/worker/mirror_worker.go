package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"keuangan/internal/amqp"
	"keuangan/internal/core"
	"keuangan/internal/log"
	"keuangan/internal/sheets"
)

// ExportSource yields the full export table, header first.
// *storage.EntryRepository satisfies it.
type ExportSource interface {
	ExportRows(ctx context.Context, opts core.ListOptions) ([][]string, error)
}

// MirrorWorker keeps a sheet equal to the entry export. Every change event
// triggers a full rewrite, so lost or reordered events heal on the next one.
type MirrorWorker struct {
	source ExportSource
	sheet  sheets.TableWriter
	logger *log.Logger

	mu sync.Mutex // serializes sheet rewrites
}

func NewMirrorWorker(source ExportSource, sheet sheets.TableWriter, logger *log.Logger) *MirrorWorker {
	return &MirrorWorker{
		source: source,
		sheet:  sheet,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent processes one change event from AMQP.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev amqp.Event) error {
	w.logger.InfoContext(ctx, "Processing change event", log.FieldEvent, ev.Event, "id", ev.ID)
	if err := w.Mirror(ctx); err != nil {
		return fmt.Errorf("mirror after %s %d: %w", ev.Event, ev.ID, err)
	}
	return nil
}

// StartupSync mirrors once at startup to recover from events missed while
// the worker was down.
func (w *MirrorWorker) StartupSync(ctx context.Context) error {
	if err := w.Mirror(ctx); err != nil {
		return fmt.Errorf("startup mirror: %w", err)
	}
	return nil
}

// RunPeriodic mirrors every interval until ctx ends, catching up on
// events dropped by the broker. Failures are logged and retried on the
// next tick.
func (w *MirrorWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.Mirror(ctx); err != nil && ctx.Err() == nil {
				w.logger.WarnContext(ctx, "Periodic mirror failed", log.FieldError, err.Error())
			}
		}
	}
}

// Mirror rewrites the sheet with the current export table.
func (w *MirrorWorker) Mirror(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := time.Now()
	rows, err := w.source.ExportRows(ctx, core.ListOptions{All: true})
	if err != nil {
		return fmt.Errorf("export rows: %w", err)
	}
	if err := w.sheet.ReplaceTable(ctx, rows); err != nil {
		w.logger.LogError(ctx, "Failed to write sheet", err, log.OpMirror, nil)
		return fmt.Errorf("replace table: %w", err)
	}

	w.logger.InfoContext(ctx, "Sheet mirrored",
		log.FieldRows, len(rows)-1,
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}
