package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/postpilot/internal/platform"
	"github.com/maheshrc27/postpilot/internal/service"
)

// credentialMargin is the minimum token lifetime demanded before a publish
// attempt starts.
const credentialMargin = 5 * time.Minute

// HandlePublishPostTask publishes one post. The handler is idempotent:
// deleted, already published, or concurrently claimed posts drop the task
// without error. Transient failures are returned to asynq for backoff retry;
// permanent ones are wrapped with SkipRetry.
func (q *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("bad payload: %v: %w", err, asynq.SkipRetry)
	}

	post, claimed, err := q.ps.BeginPublish(ctx, payload.PostID, payload.ScheduledAt)
	if err != nil {
		return err
	}
	if !claimed {
		log.Printf("Dropping publish task for post %d: nothing to do", payload.PostID)
		return nil
	}

	account, err := q.as.Credentials(ctx, post.AccountID, credentialMargin)
	if err != nil {
		if failErr := q.ps.RecordFailure(ctx, post.ID, err.Error()); failErr != nil {
			log.Printf("Error recording failure for post %d: %v", post.ID, failErr)
		}
		if errors.Is(err, service.ErrReconnectRequired) || errors.Is(err, service.ErrNotFound) {
			return fmt.Errorf("credentials for post %d: %v: %w", post.ID, err, asynq.SkipRetry)
		}
		return err
	}

	adapter, err := q.registry.ForName(account.Platform)
	if err != nil {
		if failErr := q.ps.RecordFailure(ctx, post.ID, err.Error()); failErr != nil {
			log.Printf("Error recording failure for post %d: %v", post.ID, failErr)
		}
		return fmt.Errorf("resolve platform for post %d: %v: %w", post.ID, err, asynq.SkipRetry)
	}

	req := &platform.PublishRequest{
		Title:       post.Title,
		Description: post.Description,
		Hashtags:    post.Hashtags,
		VideoURL:    q.r2.PublicURL(post.VideoPath),
		AccessToken: account.AccessToken,
		PlatformUID: account.PlatformUserID,
	}
	if post.ThumbnailPath != "" {
		req.ThumbnailURL = q.r2.PublicURL(post.ThumbnailPath)
	}

	remotePostID, err := adapter.Publish(ctx, req)
	if err != nil {
		if failErr := q.ps.RecordFailure(ctx, post.ID, err.Error()); failErr != nil {
			log.Printf("Error recording failure for post %d: %v", post.ID, failErr)
		}

		var pubErr *platform.PublishError
		if errors.As(err, &pubErr) && pubErr.Retryable {
			return err
		}
		return fmt.Errorf("publish post %d: %v: %w", post.ID, err, asynq.SkipRetry)
	}

	return q.ps.RecordSuccess(ctx, post.ID, remotePostID)
}
