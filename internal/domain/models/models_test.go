package models

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConnectionStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    ConnectionStatus
		wantErr bool
	}{
		{raw: "disconnected", want: StatusDisconnected},
		{raw: "connected", want: StatusConnected},
		{raw: "syncing", want: StatusSyncing},
		{raw: "error", want: StatusError},
		{raw: "Connected", wantErr: true},
		{raw: "", wantErr: true},
		{raw: "pending", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			got, err := ParseConnectionStatus(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConnectionStatus_CanStartOperation(t *testing.T) {
	t.Parallel()

	assert.True(t, StatusDisconnected.CanStartOperation())
	assert.True(t, StatusConnected.CanStartOperation())
	assert.True(t, StatusError.CanStartOperation())
	assert.False(t, StatusSyncing.CanStartOperation())
	assert.False(t, ConnectionStatus("bogus").CanStartOperation())
}

func TestProvider_Validate(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		p       Provider
		wantErr bool
	}{
		{name: "valid", p: Provider{ID: "cva", Status: StatusConnected, CreatedAt: created, UpdatedAt: created}},
		{name: "empty id", p: Provider{Status: StatusConnected}, wantErr: true},
		{name: "bad status", p: Provider{ID: "cva", Status: "x"}, wantErr: true},
		{name: "negative count", p: Provider{ID: "cva", Status: StatusError, ProductCount: -1}, wantErr: true},
		{
			name:    "updated before created",
			p:       Provider{ID: "cva", Status: StatusError, CreatedAt: created, UpdatedAt: created.Add(-time.Second)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProvider_CloneDoesNotShareLastSync(t *testing.T) {
	t.Parallel()

	ts := time.Now()
	p := Provider{ID: "cva", LastSync: &ts}
	c := p.Clone()
	*c.LastSync = ts.Add(time.Hour)

	assert.True(t, p.LastSync.Equal(ts))
}

func TestProduct_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		p       Product
		wantErr bool
	}{
		{name: "valid", p: Product{ProviderID: "cva", SKU: "A", Price: 10, Stock: 1}},
		{name: "free item", p: Product{ProviderID: "cva", SKU: "A"}},
		{name: "no provider", p: Product{SKU: "A"}, wantErr: true},
		{name: "no sku", p: Product{ProviderID: "cva"}, wantErr: true},
		{name: "negative price", p: Product{ProviderID: "cva", SKU: "A", Price: -0.01}, wantErr: true},
		{name: "negative stock", p: Product{ProviderID: "cva", SKU: "A", Stock: -1}, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProductFilter_Offset(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, (&ProductFilter{}).Offset())
	assert.Equal(t, 0, (&ProductFilter{Page: 1, PageSize: 20}).Offset())
	assert.Equal(t, 40, (&ProductFilter{Page: 3, PageSize: 20}).Offset())
	assert.Equal(t, 0, (&ProductFilter{Page: 3}).Offset())
}

func TestErrorTaxonomy(t *testing.T) {
	t.Parallel()

	storeErr := fmt.Errorf("wrapped: %w", NewStoreError(StoreConflict, "increment", errors.New("boom")))
	assert.True(t, IsStoreError(storeErr, StoreConflict))
	assert.True(t, IsStoreError(storeErr, ""))
	assert.False(t, IsStoreError(storeErr, StoreNotFound))
	assert.False(t, IsRemoteError(storeErr, ""))

	remoteErr := NewRemoteError(RemoteTimeout, "fetch", context.DeadlineExceeded)
	assert.True(t, IsRemoteError(remoteErr, RemoteTimeout))
	assert.True(t, errors.Is(remoteErr, context.DeadlineExceeded))
	assert.Contains(t, remoteErr.Error(), "timeout")

	var pe error = &PreconditionError{Kind: AlreadyInFlight, EntityID: "cva"}
	assert.True(t, errors.Is(pe, ErrAlreadyInFlight))
	assert.False(t, errors.Is(pe, ErrEntityNotFound))
	assert.True(t, IsPreconditionError(fmt.Errorf("ctx: %w", pe)))
	assert.False(t, IsPreconditionError(storeErr))
}
