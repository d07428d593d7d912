package domain

import "fmt"

const (
	// DefaultPage: страница по умолчанию для списков.
	DefaultPage = 1
	// DefaultLimit: размер страницы по умолчанию.
	DefaultLimit = 10
)

// PaginationMeta: навигационные данные постраничного ответа. Не сохраняются.
type PaginationMeta struct {
	TotalItems   int
	CurrentPage  int
	TotalPages   int
	NextPageURL  *string
	PrevPageURL  *string
	FirstPageURL *string
	LastPageURL  *string
}

// BuildPaginationMeta считает метаданные пагинации.
// Вызывающая сторона гарантирует limit > 0.
func BuildPaginationMeta(limit, page, totalItems int, baseURL string) PaginationMeta {
	totalPages := (totalItems + limit - 1) / limit

	meta := PaginationMeta{
		TotalItems:  totalItems,
		CurrentPage: page,
		TotalPages:  totalPages,
	}
	if page < totalPages {
		meta.NextPageURL = pageURL(baseURL, page+1, limit)
	}
	if page > 1 {
		meta.PrevPageURL = pageURL(baseURL, page-1, limit)
	}
	if totalPages > 0 {
		meta.FirstPageURL = pageURL(baseURL, 1, limit)
		meta.LastPageURL = pageURL(baseURL, totalPages, limit)
	}

	return meta
}

func pageURL(baseURL string, page, limit int) *string {
	url := fmt.Sprintf("%s?page=%d&limit=%d", baseURL, page, limit)
	return &url
}
