package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"reelhub-api/internal/model"
)

// Request carries the identifiers and body of one provider action.
type Request struct {
	PostID    string
	AccountID string
	Body      json.RawMessage
}

// Publisher talks to the multi-platform posting API.
type Publisher struct {
	client
}

// NewPublisher creates a publishing client.
func NewPublisher(baseURL string, timeout time.Duration) *Publisher {
	return &Publisher{client: newClient(baseURL, timeout)}
}

// PerformAction issues action under credential. Provider failures come back as *Error
// with the provider's message.
func (p *Publisher) PerformAction(ctx context.Context, credential string, action model.Action, req Request) (model.ProviderResult, error) {
	method, path, err := route(action, req)
	if err != nil {
		return model.ProviderResult{}, err
	}

	var body []byte
	if method != http.MethodGet && method != http.MethodDelete {
		body = req.Body
	}
	data, err := p.do(ctx, method, path, credential, body)
	if err != nil {
		return model.ProviderResult{}, err
	}
	return parseResult(data, req.PostID), nil
}

func route(action model.Action, req Request) (string, string, error) {
	switch action {
	case model.ActionPublish:
		return http.MethodPost, "/api/posts", nil
	case model.ActionRetry:
		if req.PostID == "" {
			return "", "", fmt.Errorf("retry requires a post id: %w", model.ErrInvalidInput)
		}
		return http.MethodPost, "/api/posts/" + url.PathEscape(req.PostID) + "/retry", nil
	case model.ActionLogs:
		if req.PostID == "" {
			return "", "", fmt.Errorf("logs require a post id: %w", model.ErrInvalidInput)
		}
		return http.MethodGet, "/api/posts/" + url.PathEscape(req.PostID) + "/logs", nil
	case model.ActionDelete:
		if req.AccountID == "" {
			return "", "", fmt.Errorf("delete requires an account id: %w", model.ErrInvalidInput)
		}
		return http.MethodDelete, "/api/accounts/" + url.PathEscape(req.AccountID), nil
	default:
		return "", "", fmt.Errorf("unknown action %q: %w", action, model.ErrInvalidInput)
	}
}

func parseResult(data []byte, postID string) model.ProviderResult {
	res := model.ProviderResult{PostID: postID}
	if len(data) > 0 && json.Valid(data) {
		res.Raw = json.RawMessage(data)
	}

	var parsed struct {
		PostID    string `json:"post_id"`
		RequestID string `json:"request_id"`
		Status    string `json:"status"`
	}
	if json.Unmarshal(data, &parsed) == nil {
		switch {
		case parsed.PostID != "":
			res.PostID = parsed.PostID
		case parsed.RequestID != "" && res.PostID == "":
			res.PostID = parsed.RequestID
		}
		res.Status = parsed.Status
	}
	return res
}
