package products

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// StaticCatalog: in-memory каталог товаров для локального запуска и тестов.
// Err позволяет сымитировать отказ каталога.
type StaticCatalog struct {
	mu       sync.RWMutex
	products map[int64]domain.CatalogProduct
	err      error

	calls   int
	lastIDs []int64
}

// NewStaticCatalog создаёт каталог с заданными товарами.
func NewStaticCatalog(products ...domain.CatalogProduct) *StaticCatalog {
	c := &StaticCatalog{products: make(map[int64]domain.CatalogProduct, len(products))}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

// NewDevCatalog возвращает небольшой набор товаров для запуска без сервиса каталога.
func NewDevCatalog() *StaticCatalog {
	return NewStaticCatalog(
		domain.CatalogProduct{ID: 1, Name: "Keyboard", Price: decimal.RequireFromString("49.90")},
		domain.CatalogProduct{ID: 2, Name: "Mouse", Price: decimal.RequireFromString("19.50")},
		domain.CatalogProduct{ID: 3, Name: "Monitor", Price: decimal.RequireFromString("189.00")},
		domain.CatalogProduct{ID: 4, Name: "USB-C cable", Price: decimal.RequireFromString("7.25")},
	)
}

// Put добавляет или заменяет товар.
func (c *StaticCatalog) Put(product domain.CatalogProduct) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[product.ID] = product
}

// Remove удаляет товар из каталога.
func (c *StaticCatalog) Remove(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.products, id)
}

// FailWith заставляет следующие вызовы возвращать err; nil возвращает успешный режим.
func (c *StaticCatalog) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Calls возвращает число вызовов ValidateProductIDs.
func (c *StaticCatalog) Calls() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.calls
}

// LastIDs возвращает идентификаторы из последнего вызова.
func (c *StaticCatalog) LastIDs() []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]int64(nil), c.lastIDs...)
}

// ValidateProductIDs возвращает существующие товары в порядке запроса, без дублей.
func (c *StaticCatalog) ValidateProductIDs(ctx context.Context, ids []int64) ([]domain.CatalogProduct, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls++
	c.lastIDs = append([]int64(nil), ids...)
	if c.err != nil {
		return nil, c.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(ids))
	result := make([]domain.CatalogProduct, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := c.products[id]; ok {
			result = append(result, p)
		}
	}
	return result, nil
}

var _ domain.ProductValidator = (*StaticCatalog)(nil)
