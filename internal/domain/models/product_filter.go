package models

// ProductFilter фильтр для выборки товаров из хранилища
type ProductFilter struct {
	// ProviderID пустая строка означает товары всех поставщиков
	ProviderID string `json:"provider_id,omitempty"`

	// Published nil - любые, true/false - только опубликованные/неопубликованные в хабе
	Published *bool `json:"published,omitempty"`

	// Пагинация, Page начинается с 1. PageSize 0 - без ограничения
	Page     int `json:"page,omitempty"`
	PageSize int `json:"page_size,omitempty"`
}

// ToMap преобразует ProductFilter в map, используется как часть ключа кэша
func (f *ProductFilter) ToMap() map[string]interface{} {
	result := make(map[string]interface{})

	if f.ProviderID != "" {
		result["provider_id"] = f.ProviderID
	}

	if f.Published != nil {
		result["published"] = *f.Published
	}

	if f.Page > 0 {
		result["page"] = f.Page
	}

	if f.PageSize > 0 {
		result["page_size"] = f.PageSize
	}

	return result
}

// Offset смещение для выборки с учетом пагинации
func (f *ProductFilter) Offset() int {
	if f.Page <= 1 || f.PageSize <= 0 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}
