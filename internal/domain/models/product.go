package models

import (
	"errors"
	"fmt"
	"time"
)

// DefaultCurrency валюта по умолчанию для цен поставщиков
const DefaultCurrency = "MXN"

// Product представляет товар из каталога поставщика.
// Каждый товар принадлежит ровно одному поставщику, SKU уникален в его пределах.
type Product struct {
	ID          string   `json:"id"`
	ProviderID  string   `json:"provider_id"`
	SKU         string   `json:"sku"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Brand       string   `json:"brand,omitempty"`
	Category    string   `json:"category,omitempty"`
	Price       float64  `json:"price"`
	Currency    string   `json:"currency"`
	Stock       int      `json:"stock"`
	Images      []string `json:"images,omitempty"`
	// Metadata непрозрачные данные поставщика
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	// SyncedToHub товар уже опубликован в хабе
	SyncedToHub bool      `json:"synced_to_hub"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate проверяет инварианты товара
func (p *Product) Validate() error {
	if p.ProviderID == "" {
		return errors.New("product provider id is empty")
	}
	if p.SKU == "" {
		return errors.New("product sku is empty")
	}
	if p.Price < 0 {
		return fmt.Errorf("product %s: negative price %v", p.SKU, p.Price)
	}
	if p.Stock < 0 {
		return fmt.Errorf("product %s: negative stock %d", p.SKU, p.Stock)
	}
	return nil
}
