package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer books publish tasks. It satisfies service.PublishEnqueuer so the
// post service never depends on asynq directly.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

func (e *Enqueuer) EnqueuePublish(ctx context.Context, postID int64, at time.Time) error {
	payload := PublishPostPayload{
		PostID:      postID,
		ScheduledAt: at,
	}

	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}

	task := asynq.NewTask(TaskTypePublishPost, taskPayload)

	_, err = e.client.EnqueueContext(ctx, task, asynq.ProcessIn(delay), asynq.MaxRetry(maxPublishRetries))
	if err != nil {
		return err
	}

	log.Printf("Publish task scheduled: %+v", payload)
	return nil
}
