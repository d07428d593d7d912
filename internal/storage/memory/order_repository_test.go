package memory_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/storage/memory"
)

func newOrder(id string, createdAt time.Time) domain.Order {
	return domain.Order{
		ID:          id,
		Status:      domain.OrderStatusPending,
		TotalAmount: decimal.NewFromInt(500),
		TotalItems:  5,
		Items: []domain.OrderItem{
			{ID: id + "-item-1", ProductID: 1, Quantity: 5, Price: decimal.NewFromInt(100)},
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestOrderRepository_CreateGet(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	order := newOrder("order-1", time.Now().UTC())

	require.NoError(t, repo.Create(ctx, order))

	stored, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, order.ID, stored.ID)
	require.Len(t, stored.Items, 1)
	require.True(t, stored.Items[0].Price.Equal(decimal.NewFromInt(100)))

	// Изменения копии не должны влиять на хранилище.
	stored.Items[0].Quantity = 99
	again, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)
	require.EqualValues(t, 5, again.Items[0].Quantity)
}

func TestOrderRepository_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	order := newOrder("order-1", time.Now().UTC())

	require.NoError(t, repo.Create(ctx, order))
	require.ErrorIs(t, repo.Create(ctx, order), domain.ErrOrderAlreadyExists)
}

func TestOrderRepository_GetMissing(t *testing.T) {
	_, err := memory.NewOrderRepository().Get(context.Background(), "missing")
	require.True(t, errors.Is(err, domain.ErrOrderNotFound))
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	order := newOrder("order-1", time.Now().UTC().Add(-time.Minute))
	require.NoError(t, repo.Create(ctx, order))

	updated, err := repo.UpdateStatus(ctx, order.ID, domain.OrderStatusDelivered)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusDelivered, updated.Status)
	require.True(t, updated.TotalAmount.Equal(order.TotalAmount))
	require.True(t, updated.UpdatedAt.After(order.UpdatedAt))

	// Обратный переход разрешён.
	updated, err = repo.UpdateStatus(ctx, order.ID, domain.OrderStatusPending)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusPending, updated.Status)

	stored, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)

	_, err = repo.UpdateStatus(ctx, "missing", domain.OrderStatusPaid)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOrderRepository_CountAndList(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	base := time.Now().UTC()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, newOrder(fmt.Sprintf("order-%d", i), base.Add(time.Duration(i)*time.Second))))
	}
	_, err := repo.UpdateStatus(ctx, "order-1", domain.OrderStatusPaid)
	require.NoError(t, err)
	_, err = repo.UpdateStatus(ctx, "order-3", domain.OrderStatusPaid)
	require.NoError(t, err)

	total, err := repo.Count(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 5, total)

	paid, err := repo.Count(ctx, domain.OrderStatusPaid)
	require.NoError(t, err)
	require.Equal(t, 2, paid)

	page, err := repo.List(ctx, domain.OrderFilter{Offset: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "order-2", page[0].ID)
	require.Equal(t, "order-3", page[1].ID)
	require.Nil(t, page[0].Items)

	paidPage, err := repo.List(ctx, domain.OrderFilter{Status: domain.OrderStatusPaid, Limit: 10})
	require.NoError(t, err)
	require.Len(t, paidPage, 2)
	require.Equal(t, "order-1", paidPage[0].ID)

	beyond, err := repo.List(ctx, domain.OrderFilter{Offset: 10, Limit: 10})
	require.NoError(t, err)
	require.Empty(t, beyond)
}

func TestOrderRepository_ConcurrentStatusChanges(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	require.NoError(t, repo.Create(ctx, newOrder("order-1", time.Now().UTC())))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := domain.OrderStatuses[i%len(domain.OrderStatuses)]
			_, err := repo.UpdateStatus(ctx, "order-1", status)
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stored, err := repo.Get(ctx, "order-1")
	require.NoError(t, err)
	require.True(t, stored.Status.Valid())
}
