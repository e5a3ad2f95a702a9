package models

import "time"

// Marketplace представляет маркетплейс, куда публикуется каталог.
// ProductCount - количество товаров, опубликованных на площадке.
type Marketplace struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Slug         string           `json:"slug"`
	Description  string           `json:"description,omitempty"`
	Status       ConnectionStatus `json:"status"`
	ProductCount int              `json:"product_count"`
	APIURL       string           `json:"api_url,omitempty"`
	APIKeyRef    string           `json:"-"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// HubConnection единственное общее подключение к хабу, через который
// товары всех поставщиков уходят на маркетплейсы
type HubConnection struct {
	Name      string           `json:"name"`
	Status    ConnectionStatus `json:"status"`
	UpdatedAt time.Time        `json:"updated_at"`
}
