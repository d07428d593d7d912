package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/metrics"
	"github.com/vladislavdragonenkov/orders/internal/storage/memory"
)

func orderEvent(id, orderID string) domain.OutboxMessage {
	return domain.OutboxMessage{
		ID:            id,
		AggregateType: "order",
		AggregateID:   orderID,
		EventType:     "order.status_changed",
		Payload:       []byte(`{"status":"paid"}`),
	}
}

func newTestWorker(repo domain.OutboxRepository, publisher domain.OutboxPublisher, opts ...Option) *Worker {
	base := []Option{
		WithRetryBaseDelay(0),
		WithMaxAttempts(3),
		WithMetrics(metrics.NewOutboxMetricsWithRegisterer(prometheus.NewRegistry())),
	}
	return NewWorker(repo, publisher, append(base, opts...)...)
}

func TestWorker_ProcessOnce_MarkSent(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	_, err := repo.Enqueue(orderEvent("msg-1", "order-1"))
	require.NoError(t, err)
	publisher := &stubPublisher{}

	sent := newTestWorker(repo, publisher).ProcessOnce(context.Background())

	require.Equal(t, 1, sent)
	require.Equal(t, 1, publisher.calls())
	require.Empty(t, repo.AllPending())
}

func TestWorker_ProcessOnce_MarkFailedAndDLQAfterRetries(t *testing.T) {
	t.Parallel()

	repo := &stubOutboxRepo{pending: []domain.OutboxMessage{orderEvent("msg-2", "order-2")}}
	publisher := &stubPublisher{err: errors.New("publish failed")}
	dlqPublisher := &stubPublisher{}

	sent := newTestWorker(repo, publisher, WithDLQPublisher(dlqPublisher)).ProcessOnce(context.Background())

	require.Zero(t, sent)
	require.Equal(t, 3, publisher.calls())
	require.Empty(t, repo.sentIDs)
	require.Equal(t, []string{"msg-2"}, repo.failedIDs)
	require.Equal(t, 1, dlqPublisher.calls())

	dlq := dlqPublisher.last()
	require.Equal(t, "msg-2", dlq.ID)
	require.Equal(t, "order-2", dlq.AggregateID)

	var body map[string]any
	require.NoError(t, json.Unmarshal(dlq.Payload, &body))
	require.Equal(t, "msg-2", body["outbox_id"])
	require.Contains(t, body["publish_error"], "publish failed")
}

func TestWorker_ProcessOnce_SuccessAfterRetry(t *testing.T) {
	t.Parallel()

	repo := &stubOutboxRepo{pending: []domain.OutboxMessage{orderEvent("msg-3", "order-3")}}
	publisher := &stubPublisher{
		sequenceErrors: []error{errors.New("attempt 1"), errors.New("attempt 2"), nil},
	}

	sent := newTestWorker(repo, publisher).ProcessOnce(context.Background())

	require.Equal(t, 1, sent)
	require.Equal(t, 3, publisher.calls())
	require.Equal(t, []string{"msg-3"}, repo.sentIDs)
	require.Empty(t, repo.failedIDs)
}

func TestWorker_ProcessOnce_PullError(t *testing.T) {
	t.Parallel()

	repo := &stubOutboxRepo{pullErr: errors.New("db down")}
	publisher := &stubPublisher{}

	require.Zero(t, newTestWorker(repo, publisher).ProcessOnce(context.Background()))
	require.Zero(t, publisher.calls())
}

func TestWorker_ProcessOnce_CanceledContext(t *testing.T) {
	t.Parallel()

	repo := &stubOutboxRepo{pending: []domain.OutboxMessage{orderEvent("msg-4", "order-4")}}
	publisher := &stubPublisher{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Zero(t, newTestWorker(repo, publisher).ProcessOnce(ctx))
	require.Zero(t, publisher.calls())
}

func TestWorker_DefaultsForInvalidOptions(t *testing.T) {
	t.Parallel()

	w := NewWorker(nil, nil,
		WithPollInterval(0),
		WithBatchSize(-1),
		WithMaxAttempts(0),
		WithRetryBaseDelay(-time.Second),
	)
	require.Equal(t, defaultPollInterval, w.opts.PollInterval)
	require.Equal(t, defaultBatchSize, w.opts.BatchSize)
	require.Equal(t, defaultMaxAttempts, w.opts.MaxAttempts)
	require.Zero(t, w.opts.RetryBaseDelay)
}

func TestRetryBackoff(t *testing.T) {
	t.Parallel()

	require.Zero(t, retryBackoff(0, 3))
	require.Equal(t, 50*time.Millisecond, retryBackoff(50*time.Millisecond, 1))
	require.Equal(t, 100*time.Millisecond, retryBackoff(50*time.Millisecond, 2))
	require.Equal(t, 200*time.Millisecond, retryBackoff(50*time.Millisecond, 3))
	require.Equal(t, maxRetryDelay, retryBackoff(time.Second, 10))
	require.Equal(t, maxRetryDelay, retryBackoff(time.Second, 200))
}

func TestWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	worker := newTestWorker(&stubOutboxRepo{}, &stubPublisher{}, WithPollInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	time.Sleep(15 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}

func TestWorker_Run_DisabledWithoutPublisher(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		NewWorker(&stubOutboxRepo{}, nil).Run(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled worker must return immediately")
	}
}

type stubOutboxRepo struct {
	pending   []domain.OutboxMessage
	pullErr   error
	sentIDs   []string
	failedIDs []string
}

func (s *stubOutboxRepo) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	s.pending = append(s.pending, msg)
	return msg, nil
}

func (s *stubOutboxRepo) PullPending(limit int) ([]domain.OutboxMessage, error) {
	if s.pullErr != nil {
		return nil, s.pullErr
	}
	if limit <= 0 || limit >= len(s.pending) {
		return append([]domain.OutboxMessage(nil), s.pending...), nil
	}
	return append([]domain.OutboxMessage(nil), s.pending[:limit]...), nil
}

func (s *stubOutboxRepo) Stats() (domain.OutboxStats, error) {
	stats := domain.OutboxStats{PendingCount: len(s.pending)}
	if len(s.pending) > 0 {
		stats.OldestPendingAt = time.Now().UTC().Add(-time.Second)
	}
	return stats, nil
}

func (s *stubOutboxRepo) MarkSent(id string) error {
	s.sentIDs = append(s.sentIDs, id)
	return nil
}

func (s *stubOutboxRepo) MarkFailed(id string) error {
	s.failedIDs = append(s.failedIDs, id)
	return nil
}

type stubPublisher struct {
	mu             sync.Mutex
	err            error
	sequenceErrors []error
	published      []domain.OutboxMessage
}

func (s *stubPublisher) Publish(event domain.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.published = append(s.published, event)
	if len(s.sequenceErrors) > 0 {
		err := s.sequenceErrors[0]
		s.sequenceErrors = s.sequenceErrors[1:]
		return err
	}
	return s.err
}

func (s *stubPublisher) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.published)
}

func (s *stubPublisher) last() domain.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.published[len(s.published)-1]
}

var _ domain.OutboxRepository = (*stubOutboxRepo)(nil)
var _ domain.OutboxPublisher = (*stubPublisher)(nil)
