package models

import (
	"errors"
	"fmt"
	"time"
)

// Provider представляет поставщика, из которого скачивается каталог
type Provider struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Slug         string           `json:"slug"`
	Description  string           `json:"description"`
	Status       ConnectionStatus `json:"status"`
	ProductCount int              `json:"product_count"`
	APIURL       string           `json:"api_url,omitempty"`
	// APIKeyRef ссылка на секрет, сам ключ в памяти не хранится
	APIKeyRef string     `json:"-"`
	LastSync  *time.Time `json:"last_sync"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Validate проверяет инварианты поставщика
func (p *Provider) Validate() error {
	if p.ID == "" {
		return errors.New("provider id is empty")
	}
	if !p.Status.IsValid() {
		return fmt.Errorf("provider %s: invalid status %q", p.ID, p.Status)
	}
	if p.ProductCount < 0 {
		return fmt.Errorf("provider %s: negative product count %d", p.ID, p.ProductCount)
	}
	if !p.CreatedAt.IsZero() && p.UpdatedAt.Before(p.CreatedAt) {
		return fmt.Errorf("provider %s: updated_at before created_at", p.ID)
	}
	return nil
}

// Clone возвращает копию, не разделяющую указатель LastSync
func (p Provider) Clone() Provider {
	if p.LastSync != nil {
		ts := *p.LastSync
		p.LastSync = &ts
	}
	return p
}
