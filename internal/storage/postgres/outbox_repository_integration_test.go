package postgres

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

func TestOutboxRepository_PostgresFlow(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store)

	first, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   "order-1",
		EventType:     "order.created",
		Payload:       []byte(`{"id":"order-1"}`),
	})
	if err != nil {
		t.Fatalf("enqueue without id: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected generated id for outbox message")
	}

	second, err := repo.Enqueue(domain.OutboxMessage{
		ID:            "outbox-fixed-id",
		AggregateType: "order",
		AggregateID:   "order-1",
		EventType:     "order.status_changed",
		Payload:       []byte(`{"id":"order-1","status":"paid"}`),
	})
	if err != nil {
		t.Fatalf("enqueue with id: %v", err)
	}
	if second.ID != "outbox-fixed-id" {
		t.Fatalf("expected fixed id, got %q", second.ID)
	}

	pending, err := repo.PullPending(0)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != first.ID {
		t.Fatalf("unexpected pending batch: %+v", pending)
	}

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PendingCount != 2 || stats.OldestPendingAt.IsZero() {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if err := repo.MarkSent(first.ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if err := repo.MarkFailed(second.ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	stats, err = repo.Stats()
	if err != nil {
		t.Fatalf("stats after marks: %v", err)
	}
	if stats.PendingCount != 0 || !stats.OldestPendingAt.IsZero() {
		t.Fatalf("expected empty backlog, got %+v", stats)
	}

	if err := repo.MarkSent("missing"); !errors.Is(err, domain.ErrOutboxPublish) {
		t.Fatalf("expected ErrOutboxPublish for missing message, got %v", err)
	}
}
