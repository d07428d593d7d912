package domain

import "github.com/shopspring/decimal"

// CatalogProduct: снимок товара из внешнего каталога. Не сохраняется этим сервисом.
type CatalogProduct struct {
	ID    int64
	Name  string
	Price decimal.Decimal
}

// Catalog индексирует ответ каталога по идентификатору товара.
type Catalog map[int64]CatalogProduct

// NewCatalog строит индекс; при дублях побеждает последняя запись.
func NewCatalog(products []CatalogProduct) Catalog {
	catalog := make(Catalog, len(products))
	for _, p := range products {
		catalog[p.ID] = p
	}
	return catalog
}

// PriceOf возвращает цену товара или ноль, если каталог его не вернул.
func (c Catalog) PriceOf(productID int64) decimal.Decimal {
	if p, ok := c[productID]; ok {
		return p.Price
	}
	return decimal.Zero
}

// NameOf возвращает название товара или пустую строку.
func (c Catalog) NameOf(productID int64) string {
	return c[productID].Name
}
