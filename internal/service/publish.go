package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"reelhub-api/internal/credential"
	"reelhub-api/internal/model"
	"reelhub-api/internal/provider"
	"reelhub-api/internal/repository"
	"reelhub-api/pkg/logger"
	"reelhub-api/pkg/uid"
)

// Publisher is the publishing provider collaborator.
type Publisher interface {
	PerformAction(ctx context.Context, credential string, action model.Action, req provider.Request) (model.ProviderResult, error)
}

// ConfigResolver yields the effective configuration of a job.
type ConfigResolver interface {
	EffectiveConfig(ctx context.Context, jobID string) (model.EffectiveConfig, error)
}

// PublishRouter routes publish actions to the pooled credential bound to a post.
// A post keeps the credential it was created with for every later action.
type PublishRouter struct {
	pool      *credential.Pool
	publisher Publisher
	bindings  repository.BindingRepository
	configs   ConfigResolver
	log       *zap.Logger
}

// NewPublishRouter creates a router. configs may be nil, in which case dispatch
// sends the client payload as is.
func NewPublishRouter(pool *credential.Pool, publisher Publisher, bindings repository.BindingRepository, configs ConfigResolver) *PublishRouter {
	return &PublishRouter{
		pool:      pool,
		publisher: publisher,
		bindings:  bindings,
		configs:   configs,
		log:       logger.Named("publish_router"),
	}
}

// DispatchRequest is a fresh publish of a job.
type DispatchRequest struct {
	JobID string
	// CredentialIndex selects the pooled credential; nil means credential.DefaultIndex.
	CredentialIndex *int
	Payload         json.RawMessage
}

// Dispatch publishes a job and durably binds the resulting post to the credential used.
func (r *PublishRouter) Dispatch(ctx context.Context, req DispatchRequest) (*model.PublishOutcome, error) {
	index := credential.DefaultIndex
	if req.CredentialIndex != nil {
		index = *req.CredentialIndex
	}
	key, err := r.pool.Resolve(index)
	if err != nil {
		return nil, err
	}

	body, err := r.buildPublishBody(ctx, req)
	if err != nil {
		return nil, err
	}

	res, err := r.publisher.PerformAction(ctx, key, model.ActionPublish, provider.Request{Body: body})
	if err != nil {
		r.log.Warn("publish failed", zap.String("job_id", req.JobID), zap.Int("credential_index", index), zap.Error(err))
		return nil, model.NewExternalError("publisher", err)
	}

	postID := res.PostID
	if postID == "" {
		postID = uid.WithPrefix("local")
		res.PostID = postID
	}
	binding := model.CredentialBinding{PostID: postID, JobID: req.JobID, CredentialIndex: index, CreatedAt: time.Now()}
	if err := r.bindings.SaveCredentialIndexForPost(ctx, binding); err != nil {
		// The post exists upstream; surface the failure so the caller knows
		// later actions would fall back to the default credential.
		return nil, fmt.Errorf("post %s published but binding not saved: %w", postID, err)
	}

	r.log.Info("post dispatched", zap.String("post_id", postID), zap.String("job_id", req.JobID), zap.Int("credential_index", index))
	return &model.PublishOutcome{PostID: postID, CredentialIndex: index, Result: res}, nil
}

// Retry reissues a post under the credential it was bound to, or the default
// index when no binding was recorded.
func (r *PublishRouter) Retry(ctx context.Context, postID string, payload json.RawMessage) (*model.PublishOutcome, error) {
	return r.actOnPost(ctx, model.ActionRetry, postID, payload)
}

// Logs fetches the provider's log for a post using its bound credential.
func (r *PublishRouter) Logs(ctx context.Context, postID string) (*model.PublishOutcome, error) {
	return r.actOnPost(ctx, model.ActionLogs, postID, nil)
}

// Delete removes an account from the provider with the caller-supplied credential index.
func (r *PublishRouter) Delete(ctx context.Context, accountID string, index int) (*model.PublishOutcome, error) {
	if r.pool.Size() == 0 {
		return nil, fmt.Errorf("no publishing credentials: %w", model.ErrNotConfigured)
	}
	if accountID == "" {
		return nil, fmt.Errorf("account id is required: %w", model.ErrInvalidInput)
	}
	key, err := r.pool.Resolve(index)
	if err != nil {
		return nil, err
	}

	res, err := r.publisher.PerformAction(ctx, key, model.ActionDelete, provider.Request{AccountID: accountID})
	if err != nil {
		return nil, model.NewExternalError("publisher", err)
	}
	return &model.PublishOutcome{CredentialIndex: index, Result: res}, nil
}

// BoundIndex returns the credential index bound to postID, falling back to the default.
func (r *PublishRouter) BoundIndex(ctx context.Context, postID string) (int, error) {
	idx, err := r.bindings.GetCredentialIndexForPost(ctx, postID)
	if errors.Is(err, model.ErrNotFound) {
		return credential.DefaultIndex, nil
	}
	if err != nil {
		return 0, err
	}
	return idx, nil
}

func (r *PublishRouter) actOnPost(ctx context.Context, action model.Action, postID string, payload json.RawMessage) (*model.PublishOutcome, error) {
	if postID == "" {
		return nil, fmt.Errorf("post id is required: %w", model.ErrInvalidInput)
	}
	index, err := r.BoundIndex(ctx, postID)
	if err != nil {
		return nil, err
	}
	key, err := r.pool.Resolve(index)
	if err != nil {
		return nil, err
	}

	res, err := r.publisher.PerformAction(ctx, key, action, provider.Request{PostID: postID, Body: payload})
	if err != nil {
		r.log.Warn("post action failed", zap.String("action", string(action)), zap.String("post_id", postID),
			zap.Int("credential_index", index), zap.Error(err))
		return nil, model.NewExternalError("publisher", err)
	}
	return &model.PublishOutcome{PostID: postID, CredentialIndex: index, Result: res}, nil
}

// buildPublishBody merges the job's effective configuration over the client payload.
func (r *PublishRouter) buildPublishBody(ctx context.Context, req DispatchRequest) (json.RawMessage, error) {
	body := map[string]interface{}{}
	if len(req.Payload) > 0 {
		if err := json.Unmarshal(req.Payload, &body); err != nil {
			return nil, fmt.Errorf("payload must be a JSON object: %w", model.ErrInvalidInput)
		}
	}

	if req.JobID != "" && r.configs != nil {
		eff, err := r.configs.EffectiveConfig(ctx, req.JobID)
		if err != nil {
			return nil, err
		}
		body["caption"] = eff.Caption
		body["publish_mode"] = eff.PublishMode
		body["timezone"] = eff.Timezone
		if eff.ScheduledFor != nil {
			body["scheduled_for"] = eff.ScheduledFor
		} else {
			delete(body, "scheduled_for")
		}
		body["job_id"] = req.JobID
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return data, nil
}
