package queue

import (
	"time"

	"github.com/maheshrc27/postpilot/internal/platform"
	"github.com/maheshrc27/postpilot/internal/service"
)

const TaskTypePublishPost = "publish:post"

// maxPublishRetries bounds asynq's retry ladder for transient publish
// failures.
const maxPublishRetries = 5

type PublishPostPayload struct {
	PostID      int64     `json:"post_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// AdapterResolver looks up the publishing adapter for a platform name.
// Satisfied by platform.Registry.
type AdapterResolver interface {
	ForName(name string) (platform.Adapter, error)
}

// Queue executes publish tasks pulled from asynq.
type Queue struct {
	ps       service.PostService
	as       service.AccountService
	registry AdapterResolver
	r2       service.ObjectStorage
}

func NewQueue(
	ps service.PostService,
	as service.AccountService,
	registry AdapterResolver,
	r2 service.ObjectStorage) *Queue {
	return &Queue{
		ps:       ps,
		as:       as,
		registry: registry,
		r2:       r2,
	}
}
