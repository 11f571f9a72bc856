package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"keuangan/internal/amqp"
	"keuangan/internal/core"
	"keuangan/internal/log"
	"keuangan/internal/storage"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []amqp.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, ev amqp.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, ev := range p.events {
		out = append(out, ev.Event)
	}
	return out
}

func newServices(t *testing.T, pub Publisher) (*EntryService, *TypeService) {
	t.Helper()
	db, err := storage.Open(context.Background(), storage.Config{Path: filepath.Join(t.TempDir(), "svc.db")}, log.Discard())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	logger := log.Discard()
	return NewEntryService(storage.NewEntryRepository(db, logger), pub, logger),
		NewTypeService(storage.NewTypeRepository(db, logger), pub, logger)
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestEntryService_PublishesAfterWrites(t *testing.T) {
	pub := &recordingPublisher{}
	entries, types := newServices(t, pub)
	ctx := context.Background()

	typeID, err := types.Create(ctx, "Bank")
	if err != nil {
		t.Fatalf("create type: %v", err)
	}
	res, err := entries.Create(ctx, core.EntryInput{AmountIn: core.Money{Cents: 100}, TypeRef: &typeID})
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}

	note := "n"
	if _, err := entries.Update(ctx, res.InsertID, core.EntryPatch{Note: core.Set(&note)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	// No-op writes stay silent.
	entries.Update(ctx, res.InsertID+1, core.EntryPatch{Note: core.Set(&note)})
	entries.Remove(ctx, res.InsertID+1)

	if _, err := entries.Remove(ctx, res.InsertID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	want := []string{amqp.EventTypeCreated, amqp.EventEntryCreated, amqp.EventEntryUpdated, amqp.EventEntryDeleted}
	if got := pub.names(); !equal(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	if pub.events[1].ID != res.InsertID {
		t.Fatalf("event id = %d, want %d", pub.events[1].ID, res.InsertID)
	}
}

func TestEntryService_RejectedCreateIsSilent(t *testing.T) {
	pub := &recordingPublisher{}
	entries, types := newServices(t, pub)
	ctx := context.Background()

	typeID, _ := types.Create(ctx, "Empty")
	_, err := entries.Create(ctx, core.EntryInput{AmountOut: core.Money{Cents: 1}, TypeRef: &typeID})
	if !errors.Is(err, core.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if got := pub.names(); !equal(got, []string{amqp.EventTypeCreated}) {
		t.Fatalf("events = %v", got)
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	entries, types := newServices(t, pub)
	ctx := context.Background()

	if _, err := types.Create(ctx, "X"); err != nil {
		t.Fatalf("type create should succeed: %v", err)
	}
	if _, err := entries.Create(ctx, core.EntryInput{AmountIn: core.Money{Cents: 5}}); err != nil {
		t.Fatalf("entry create should succeed: %v", err)
	}
}

func TestNilPublisher(t *testing.T) {
	entries, types := newServices(t, nil)
	ctx := context.Background()

	id, err := types.Create(ctx, "Solo")
	if err != nil {
		t.Fatalf("create type: %v", err)
	}
	if _, err := types.Update(ctx, id, "Duo"); err != nil {
		t.Fatalf("update type: %v", err)
	}
	if _, err := entries.Create(ctx, core.EntryInput{}); err != nil {
		t.Fatalf("create entry: %v", err)
	}
}

func TestTypeService_RemoveInUse(t *testing.T) {
	pub := &recordingPublisher{}
	entries, types := newServices(t, pub)
	ctx := context.Background()

	id, _ := types.Create(ctx, "Used")
	entries.Create(ctx, core.EntryInput{TypeRef: &id})

	if _, err := types.Remove(ctx, id); !errors.Is(err, core.ErrTypeInUse) {
		t.Fatalf("expected ErrTypeInUse, got %v", err)
	}
	for _, name := range pub.names() {
		if name == amqp.EventTypeDeleted {
			t.Fatal("delete event sent for a refused delete")
		}
	}
}
