package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/FerDeNetlab/auramarket/internal/domain/models"
)

const (
	// maxResponseSize ограничение на размер ответа внешнего API
	maxResponseSize = 32 * 1024 * 1024
	userAgent       = "aura-hub/1.0"
)

// SecretResolver возвращает API-ключ по ссылке APIKeyRef
type SecretResolver func(ref string) string

// HTTPOptions параметры HTTP клиента
type HTTPOptions struct {
	HubURL    string
	HubAPIKey string
	// Timeout таймаут транспорта, общий дедлайн задает контекст вызова
	Timeout time.Duration
	Secrets SecretResolver
}

// HTTPClient ходит в реальные API поставщиков и хаба
type HTTPClient struct {
	client  *http.Client
	hubURL  string
	hubKey  string
	secrets SecretResolver
}

func NewHTTPClient(opts HTTPOptions) *HTTPClient {
	secrets := opts.Secrets
	if secrets == nil {
		secrets = func(string) string { return "" }
	}
	return &HTTPClient{
		client:  &http.Client{Timeout: opts.Timeout},
		hubURL:  strings.TrimRight(opts.HubURL, "/"),
		hubKey:  opts.HubAPIKey,
		secrets: secrets,
	}
}

type fetchResponse struct {
	Count    int              `json:"count"`
	Products []models.Product `json:"products"`
}

type publishRequest struct {
	ProviderID string           `json:"provider_id"`
	Products   []models.Product `json:"products"`
}

type publishResponse struct {
	Count int `json:"count"`
}

func (c *HTTPClient) FetchFromProvider(ctx context.Context, provider models.Provider) (FetchResult, error) {
	if provider.APIURL == "" {
		return FetchResult{}, models.NewRemoteError(models.RemoteRejected, OpFetch,
			fmt.Errorf("provider %s has no api url", provider.ID))
	}

	url := strings.TrimRight(provider.APIURL, "/") + "/products"
	var resp fetchResponse
	if err := c.do(ctx, OpFetch, http.MethodGet, url, c.secrets(provider.APIKeyRef), nil, &resp); err != nil {
		return FetchResult{}, err
	}

	count := resp.Count
	if count == 0 {
		count = len(resp.Products)
	}
	return FetchResult{Count: count, Products: resp.Products}, nil
}

func (c *HTTPClient) PublishToHub(ctx context.Context, providerID string, products []models.Product) (PublishResult, error) {
	url := fmt.Sprintf("%s/providers/%s/products", c.hubURL, providerID)
	body := publishRequest{ProviderID: providerID, Products: products}

	var resp publishResponse
	if err := c.do(ctx, OpPublish, http.MethodPost, url, c.hubKey, body, &resp); err != nil {
		return PublishResult{}, err
	}
	return PublishResult{Count: resp.Count}, nil
}

func (c *HTTPClient) do(ctx context.Context, op, method, url, apiKey string, in, out interface{}) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return models.NewRemoteError(models.RemoteUnknown, op, fmt.Errorf("failed to encode request: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return models.NewRemoteError(models.RemoteUnknown, op, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxError(op, ctxErr)
		}
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return models.NewRemoteError(models.RemoteTimeout, op, err)
		}
		return models.NewRemoteError(models.RemoteUnknown, op, fmt.Errorf("failed to execute request: %w", err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxError(op, ctxErr)
		}
		return models.NewRemoteError(models.RemoteUnknown, op, fmt.Errorf("failed to read response body: %w", err))
	}
	if len(body) > maxResponseSize {
		return models.NewRemoteError(models.RemoteUnknown, op,
			fmt.Errorf("response exceeds %d bytes", maxResponseSize))
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return models.NewRemoteError(models.RemoteRejected, op,
			fmt.Errorf("%s %s: %s", method, url, resp.Status))
	default:
		return models.NewRemoteError(models.RemoteUnknown, op,
			fmt.Errorf("%s %s: %s", method, url, resp.Status))
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return models.NewRemoteError(models.RemoteUnknown, op, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

var (
	_ Fetcher   = (*HTTPClient)(nil)
	_ Publisher = (*HTTPClient)(nil)
)
