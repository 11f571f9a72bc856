package services

import (
	"context"
	"fmt"

	"keuangan/internal/amqp"
	"keuangan/internal/core"
	"keuangan/internal/log"
	"keuangan/internal/storage"
)

// TypeService manages transaction types and announces label changes,
// which alter the labelled export.
type TypeService struct {
	types     *storage.TypeRepository
	publisher Publisher
	logger    *log.Logger
}

func NewTypeService(types *storage.TypeRepository, publisher Publisher, logger *log.Logger) *TypeService {
	return &TypeService{
		types:     types,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentType),
	}
}

func (s *TypeService) List(ctx context.Context) ([]core.Type, error) {
	return s.types.List(ctx)
}

func (s *TypeService) Get(ctx context.Context, id int64) (core.Type, error) {
	return s.types.Get(ctx, id)
}

func (s *TypeService) Create(ctx context.Context, label string) (int64, error) {
	id, err := s.types.Create(ctx, label)
	if err != nil {
		return 0, fmt.Errorf("create type: %w", err)
	}
	notify(ctx, s.publisher, s.logger, amqp.EventTypeCreated, id)
	return id, nil
}

func (s *TypeService) Update(ctx context.Context, id int64, label string) (int64, error) {
	affected, err := s.types.Update(ctx, id, label)
	if err != nil {
		return 0, fmt.Errorf("update type: %w", err)
	}
	if affected > 0 {
		notify(ctx, s.publisher, s.logger, amqp.EventTypeUpdated, id)
	}
	return affected, nil
}

func (s *TypeService) Remove(ctx context.Context, id int64) (int64, error) {
	affected, err := s.types.Remove(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("delete type: %w", err)
	}
	if affected > 0 {
		notify(ctx, s.publisher, s.logger, amqp.EventTypeDeleted, id)
	}
	return affected, nil
}
