package services

import (
	"context"
	"fmt"
	"io"

	"keuangan/internal/amqp"
	"keuangan/internal/core"
	"keuangan/internal/log"
	"keuangan/internal/storage"
)

// EntryService orchestrates entry operations across SQLite and AMQP.
type EntryService struct {
	entries   *storage.EntryRepository
	publisher Publisher
	logger    *log.Logger
}

// NewEntryService wires the repository with an optional publisher; a nil
// publisher disables change events.
func NewEntryService(entries *storage.EntryRepository, publisher Publisher, logger *log.Logger) *EntryService {
	return &EntryService{
		entries:   entries,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentEntry),
	}
}

func (s *EntryService) List(ctx context.Context, opts core.ListOptions) ([]core.Entry, error) {
	return s.entries.List(ctx, opts)
}

func (s *EntryService) Get(ctx context.Context, id int64) (core.Entry, error) {
	return s.entries.Get(ctx, id)
}

func (s *EntryService) Totals(ctx context.Context, f core.Filter) (core.Balance, error) {
	return s.entries.Totals(ctx, f)
}

func (s *EntryService) TotalsByType(ctx context.Context, typeRef int64) (core.Balance, error) {
	return s.entries.TotalsByType(ctx, typeRef)
}

func (s *EntryService) Export(ctx context.Context, w io.Writer, opts core.ListOptions) (int, error) {
	return s.entries.Export(ctx, w, opts)
}

// Create saves the entry and announces it.
func (s *EntryService) Create(ctx context.Context, in core.EntryInput) (storage.CreateResult, error) {
	res, err := s.entries.Create(ctx, in)
	if err != nil {
		return storage.CreateResult{}, fmt.Errorf("create entry: %w", err)
	}
	notify(ctx, s.publisher, s.logger, amqp.EventEntryCreated, res.InsertID)
	return res, nil
}

// Update applies the patch; an event is sent only when a row changed.
func (s *EntryService) Update(ctx context.Context, id int64, p core.EntryPatch) (int64, error) {
	affected, err := s.entries.Update(ctx, id, p)
	if err != nil {
		return 0, fmt.Errorf("update entry: %w", err)
	}
	if affected > 0 {
		notify(ctx, s.publisher, s.logger, amqp.EventEntryUpdated, id)
	}
	return affected, nil
}

func (s *EntryService) Remove(ctx context.Context, id int64) (int64, error) {
	affected, err := s.entries.Remove(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("delete entry: %w", err)
	}
	if affected > 0 {
		notify(ctx, s.publisher, s.logger, amqp.EventEntryDeleted, id)
	}
	return affected, nil
}
