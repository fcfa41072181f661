package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/repository"
	"github.com/maheshrc27/postpilot/internal/transfer"
)

const scheduleTimeLayout = "2006-01-02T15:04"

// PublishEnqueuer hands a post to the task queue for publishing at the given
// time. Implemented by the queue package.
type PublishEnqueuer interface {
	EnqueuePublish(ctx context.Context, postID int64, at time.Time) error
}

type PostService interface {
	Create(ctx context.Context, userID int64, pc *transfer.PostCreation) (int64, error)
	Update(ctx context.Context, userID, postID int64, pu *transfer.PostUpdate) error
	Schedule(ctx context.Context, userID, postID int64, scheduledAt string) error
	PublishNow(ctx context.Context, userID, postID int64) error
	PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error)
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	CalendarEvents(ctx context.Context, userID int64, start, end time.Time) ([]*transfer.CalendarEvent, error)
	Remove(ctx context.Context, userID, postID int64) error

	BeginPublish(ctx context.Context, postID int64, scheduledFor time.Time) (*models.Post, bool, error)
	RecordSuccess(ctx context.Context, postID int64, remotePostID string) error
	RecordFailure(ctx context.Context, postID int64, reason string) error
}

type postService struct {
	pr repository.PostRepository
	ar repository.AccountRepository
	r2 ObjectStorage
	q  PublishEnqueuer
}

func NewPostService(pr repository.PostRepository, ar repository.AccountRepository, r2 ObjectStorage, q PublishEnqueuer) PostService {
	return &postService{
		pr: pr,
		ar: ar,
		r2: r2,
		q:  q,
	}
}

func (s *postService) Create(ctx context.Context, userID int64, pc *transfer.PostCreation) (int64, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Info(err.Error())
		return 0, err
	}
	if pc.Title == "" {
		err := errors.New("title cannot be empty")
		slog.Info(err.Error())
		return 0, err
	}
	if pc.VideoPath == "" {
		err := errors.New("no video attached to the post")
		slog.Info(err.Error())
		return 0, err
	}
	if len(pc.Hashtags) > models.MaxHashtags {
		err := fmt.Errorf("at most %d hashtags are allowed", models.MaxHashtags)
		slog.Info(err.Error())
		return 0, err
	}

	exists, err := s.ar.CheckByOwnerID(ctx, pc.AccountID, userID)
	if err != nil {
		return 0, err
	}
	if !exists {
		err = errors.New("account doesn't exist")
		slog.Info(err.Error())
		return 0, err
	}

	post := models.Post{
		OwnerID:       userID,
		AccountID:     pc.AccountID,
		Title:         pc.Title,
		Description:   pc.Description,
		Hashtags:      pc.Hashtags,
		VideoPath:     pc.VideoPath,
		ThumbnailPath: pc.ThumbnailPath,
	}

	postID, err := s.pr.Create(ctx, nil, &post)
	if err != nil {
		return 0, fmt.Errorf("error creating post: %w", err)
	}

	if pc.PublishNow {
		if err := s.q.EnqueuePublish(ctx, postID, time.Time{}); err != nil {
			return 0, err
		}
		return postID, nil
	}

	if pc.ScheduledAt != "" {
		if err := s.Schedule(ctx, userID, postID, pc.ScheduledAt); err != nil {
			return 0, err
		}
	}

	return postID, nil
}

func (s *postService) Update(ctx context.Context, userID, postID int64, pu *transfer.PostUpdate) error {
	post, err := s.owned(ctx, userID, postID)
	if err != nil {
		return err
	}

	if post.Status == models.PostStatusPublished || post.Status == models.PostStatusProcessing {
		return ErrIllegalTransition
	}

	if len(pu.Hashtags) > models.MaxHashtags {
		err := fmt.Errorf("at most %d hashtags are allowed", models.MaxHashtags)
		slog.Info(err.Error())
		return err
	}

	post.Title = pu.Title
	post.Description = pu.Description
	post.Hashtags = pu.Hashtags
	post.ThumbnailPath = pu.ThumbnailPath

	return s.pr.UpdateContent(ctx, post)
}

// Schedule moves the post to scheduled and books the delayed publish task.
func (s *postService) Schedule(ctx context.Context, userID, postID int64, scheduledAt string) error {
	if _, err := s.owned(ctx, userID, postID); err != nil {
		return err
	}

	at, err := time.Parse(scheduleTimeLayout, scheduledAt)
	if err != nil {
		err = fmt.Errorf("invalid scheduled time format: %w", err)
		slog.Info(err.Error())
		return err
	}

	if at.Before(time.Now()) {
		err = errors.New("scheduled time is in the past")
		slog.Info(err.Error())
		return err
	}

	ok, err := s.pr.SetSchedule(ctx, postID, at)
	if err != nil {
		return err
	}
	if !ok {
		return ErrIllegalTransition
	}

	return s.q.EnqueuePublish(ctx, postID, at)
}

func (s *postService) PublishNow(ctx context.Context, userID, postID int64) error {
	post, err := s.owned(ctx, userID, postID)
	if err != nil {
		return err
	}

	if post.Status == models.PostStatusPublished || post.Status == models.PostStatusProcessing {
		return ErrIllegalTransition
	}

	return s.q.EnqueuePublish(ctx, postID, time.Time{})
}

func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error) {
	return s.owned(ctx, userID, postID)
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	posts, err := s.pr.ListByOwnerID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting posts: %w", err)
	}
	return posts, nil
}

func (s *postService) CalendarEvents(ctx context.Context, userID int64, start, end time.Time) ([]*transfer.CalendarEvent, error) {
	posts, err := s.pr.ListByTimeRange(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	accounts, err := s.ar.ListByOwnerID(ctx, userID)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*models.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	events := make([]*transfer.CalendarEvent, 0, len(posts))
	for _, post := range posts {
		event := &transfer.CalendarEvent{
			ID:     post.ID,
			Title:  post.Title,
			Status: post.Status,
			Color:  statusColor(post.Status),
		}

		if post.ScheduledAt.Valid {
			event.Start = post.ScheduledAt.Time.Format(time.RFC3339)
		} else {
			event.Start = post.CreatedAt.Format(time.RFC3339)
		}

		if a, ok := byID[post.AccountID]; ok {
			event.Platform = a.Platform
			event.AccountLabel = a.Nickname
			if event.AccountLabel == "" {
				event.AccountLabel = a.Username
			}
		}

		events = append(events, event)
	}
	return events, nil
}

func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	post, err := s.owned(ctx, userID, postID)
	if err != nil {
		return err
	}

	// Object cleanup is best effort, the row disappears either way.
	if post.VideoPath != "" {
		if err := s.r2.Delete(ctx, post.VideoPath); err != nil {
			slog.Info(err.Error())
		}
	}
	if post.ThumbnailPath != "" {
		if err := s.r2.Delete(ctx, post.ThumbnailPath); err != nil {
			slog.Info(err.Error())
		}
	}

	return s.pr.SoftRemove(ctx, postID)
}

// BeginPublish revalidates the post and claims it for processing. A false
// result with a nil error means the task should be dropped silently: the post
// is gone, already published, superseded by a re-schedule, or another worker
// holds the claim. scheduledFor is the time the task was booked for; zero
// means an immediate publish.
func (s *postService) BeginPublish(ctx context.Context, postID int64, scheduledFor time.Time) (*models.Post, bool, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, false, err
	}
	if post == nil {
		return nil, false, nil
	}

	if post.Status == models.PostStatusPublished || post.RemotePostID != "" {
		return nil, false, nil
	}

	// Re-scheduling books a new task but cannot cancel the old one, so a
	// task whose booked time no longer matches the row is stale.
	if !scheduledFor.IsZero() && post.ScheduledAt.Valid && !post.ScheduledAt.Time.Equal(scheduledFor) {
		return nil, false, nil
	}

	claimed, err := s.pr.ClaimForPublish(ctx, postID)
	if err != nil {
		return nil, false, err
	}
	if !claimed {
		return nil, false, nil
	}

	return post, true, nil
}

func (s *postService) RecordSuccess(ctx context.Context, postID int64, remotePostID string) error {
	ok, err := s.pr.MarkPublished(ctx, postID, remotePostID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrIllegalTransition
	}
	return nil
}

func (s *postService) RecordFailure(ctx context.Context, postID int64, reason string) error {
	ok, err := s.pr.MarkFailed(ctx, postID, reason)
	if err != nil {
		return err
	}
	if !ok {
		return ErrIllegalTransition
	}
	return nil
}

func (s *postService) owned(ctx context.Context, userID, postID int64) (*models.Post, error) {
	isValid, err := s.pr.CheckByOwnerID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if !isValid {
		return nil, ErrNotFound
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrNotFound
	}
	return post, nil
}

func statusColor(status string) string {
	switch status {
	case models.PostStatusScheduled:
		return "#3b82f6"
	case models.PostStatusProcessing:
		return "#f59e0b"
	case models.PostStatusPublished:
		return "#22c55e"
	case models.PostStatusFailed:
		return "#ef4444"
	default:
		return "#9ca3af"
	}
}
