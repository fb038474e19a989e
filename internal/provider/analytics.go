package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"
)

// Analytics fetches per-account analytics from the provider.
type Analytics struct {
	client
}

// NewAnalytics creates an analytics client.
func NewAnalytics(baseURL string, timeout time.Duration) *Analytics {
	return &Analytics{client: newClient(baseURL, timeout)}
}

// SyncAccount pulls the latest analytics snapshot for accountID.
func (a *Analytics) SyncAccount(ctx context.Context, credential, accountID string) (json.RawMessage, error) {
	data, err := a.do(ctx, http.MethodGet, "/api/analytics/"+url.PathEscape(accountID), credential, nil)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, nil
	}
	return json.RawMessage(data), nil
}
