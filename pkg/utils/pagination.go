package utils

import (
	"errors"
	"net/url"
	"strconv"
)

var (
	ErrInvalidPage     = errors.New("page must be a positive integer")
	ErrInvalidPageSize = errors.New("page_size is out of range")
)

// PageParams ограничения постраничного запроса
type PageParams struct {
	DefaultSize int
	MaxSize     int
}

// Pagination сведения о странице в meta ответа
type Pagination struct {
	Page       int  `json:"page"`        // Номер страницы (начиная с 1)
	PageSize   int  `json:"page_size"`   // Размер страницы
	TotalItems int  `json:"total_items"` // Общее количество элементов
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// ParsePagination читает page и page_size из query.
// Отсутствующие параметры заменяются на 1 и DefaultSize.
func ParsePagination(q url.Values, params PageParams) (*Pagination, error) {
	p := &Pagination{Page: 1, PageSize: params.DefaultSize}

	if raw := q.Get("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return nil, ErrInvalidPage
		}
		p.Page = v
	}

	if raw := q.Get("page_size"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || (params.MaxSize > 0 && v > params.MaxSize) {
			return nil, ErrInvalidPageSize
		}
		p.PageSize = v
	}

	return p, nil
}

// SetTotal пересчитывает число страниц и флаги соседних страниц
func (p *Pagination) SetTotal(totalItems int) {
	p.TotalItems = totalItems
	if p.PageSize > 0 {
		p.TotalPages = (totalItems + p.PageSize - 1) / p.PageSize
	}
	p.HasNext = p.Page < p.TotalPages
	p.HasPrev = p.Page > 1
}
