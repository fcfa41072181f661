package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/platform"
	"github.com/maheshrc27/postpilot/internal/repository"
	"github.com/maheshrc27/postpilot/internal/transfer"
)

type fakeStateStore struct {
	mu     sync.Mutex
	states map[string]string
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{states: map[string]string{}}
}

func (s *fakeStateStore) Put(ctx context.Context, nonce, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[nonce] = value
	return nil
}

func (s *fakeStateStore) Consume(ctx context.Context, nonce string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.states[nonce]
	if ok {
		delete(s.states, nonce)
	}
	return value, ok, nil
}

type fakeAdapter struct {
	name         string
	grant        *platform.TokenGrant
	exchangeErr  error
	refreshGrant *platform.TokenGrant
	refreshErr   error
	publishID    string
	publishErr   error
	published    []*platform.PublishRequest
	revoked      []string
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) BuildAuthorizationURL(state string) string {
	return "https://auth.example.com/authorize?state=" + state
}

func (a *fakeAdapter) ExchangeCode(ctx context.Context, code string) (*platform.TokenGrant, error) {
	if a.exchangeErr != nil {
		return nil, a.exchangeErr
	}
	return a.grant, nil
}

func (a *fakeAdapter) RefreshToken(ctx context.Context, refreshToken string) (*platform.TokenGrant, error) {
	if a.refreshErr != nil {
		return nil, a.refreshErr
	}
	return a.refreshGrant, nil
}

func (a *fakeAdapter) Publish(ctx context.Context, req *platform.PublishRequest) (string, error) {
	a.published = append(a.published, req)
	if a.publishErr != nil {
		return "", a.publishErr
	}
	return a.publishID, nil
}

func (a *fakeAdapter) Revoke(ctx context.Context, platformUID, accessToken string) error {
	a.revoked = append(a.revoked, platformUID)
	return nil
}

type fakeResolver struct {
	adapters map[string]platform.Adapter
	disabled map[string]bool
}

func (r *fakeResolver) ForName(name string) (platform.Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, &platform.UnsupportedPlatformError{Platform: name}
	}
	return a, nil
}

func (r *fakeResolver) Enabled(name string) bool {
	_, ok := r.adapters[name]
	return ok && !r.disabled[name]
}

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[int64]*models.Account
	nextID   int64
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: map[int64]*models.Account{}}
}

func (r *fakeAccountRepo) Create(ctx context.Context, tx *sql.Tx, a *models.Account) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	stored := *a
	stored.ID = r.nextID
	r.accounts[stored.ID] = &stored
	return stored.ID, nil
}

func (r *fakeAccountRepo) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	clone := *a
	return &clone, nil
}

func (r *fakeAccountRepo) GetByPlatformUserID(ctx context.Context, platformName, platformUserID string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Platform == platformName && a.PlatformUserID == platformUserID {
			clone := *a
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeAccountRepo) ListByOwnerID(ctx context.Context, ownerID int64) ([]*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var accounts []*models.Account
	for _, a := range r.accounts {
		if a.OwnerID == ownerID {
			clone := *a
			accounts = append(accounts, &clone)
		}
	}
	return accounts, nil
}

func (r *fakeAccountRepo) ListExpiring(ctx context.Context, initialTime, finalTime time.Time) ([]*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var accounts []*models.Account
	for _, a := range r.accounts {
		if a.Status == models.AccountStatusActive && a.TokenExpiresAt.Before(finalTime) {
			clone := *a
			accounts = append(accounts, &clone)
		}
	}
	return accounts, nil
}

func (r *fakeAccountRepo) CountByOwnerAndPlatform(ctx context.Context, ownerID int64, platformName string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, a := range r.accounts {
		if a.OwnerID == ownerID && a.Platform == platformName {
			count++
		}
	}
	return count, nil
}

func (r *fakeAccountRepo) CheckByOwnerID(ctx context.Context, accountID, ownerID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[accountID]
	return ok && a.OwnerID == ownerID, nil
}

func (r *fakeAccountRepo) UpdateOnReconnect(ctx context.Context, a *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.accounts[a.ID]
	if !ok {
		return errors.New("account not found for reconnect")
	}
	existing.Username = a.Username
	existing.DisplayName = a.DisplayName
	existing.AvatarURL = a.AvatarURL
	existing.AccessToken = a.AccessToken
	existing.RefreshToken = a.RefreshToken
	existing.TokenExpiresAt = a.TokenExpiresAt
	existing.Scopes = a.Scopes
	existing.Status = a.Status
	return nil
}

func (r *fakeAccountRepo) SetDefault(ctx context.Context, ownerID int64, platformName string, accountID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.accounts[accountID]
	if !ok || target.OwnerID != ownerID || target.Platform != platformName {
		return errors.New("account not found for set default")
	}
	for _, a := range r.accounts {
		if a.OwnerID == ownerID && a.Platform == platformName {
			a.IsDefault = false
		}
	}
	target.IsDefault = true
	return nil
}

func (r *fakeAccountRepo) SetNickname(ctx context.Context, id int64, nickname string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		a.Nickname = nickname
	}
	return nil
}

func (r *fakeAccountRepo) SetStatus(ctx context.Context, id int64, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		a.Status = status
	}
	return nil
}

func (r *fakeAccountRepo) SetToken(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return errors.New("no rows affected; account may not exist")
	}
	if accessToken != "" {
		a.AccessToken = accessToken
	}
	if refreshToken != "" {
		a.RefreshToken = refreshToken
	}
	a.TokenExpiresAt = expiresAt
	a.Status = models.AccountStatusActive
	return nil
}

func (r *fakeAccountRepo) SoftRemove(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.accounts, id)
	return nil
}

type fakePostRepo struct {
	mu      sync.Mutex
	posts   map[int64]*models.Post
	nextID  int64
	listErr error
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: map[int64]*models.Post{}}
}

func (r *fakePostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	stored := *post
	stored.ID = r.nextID
	stored.Status = models.PostStatusDraft
	stored.CreatedAt = time.Now()
	r.posts[stored.ID] = &stored
	return stored.ID, nil
}

func (r *fakePostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	clone := *post
	return &clone, nil
}

func (r *fakePostRepo) ListByOwnerID(ctx context.Context, ownerID int64) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var posts []*models.Post
	for _, post := range r.posts {
		if post.OwnerID == ownerID {
			clone := *post
			posts = append(posts, &clone)
		}
	}
	return posts, nil
}

func (r *fakePostRepo) ListByTimeRange(ctx context.Context, ownerID int64, start, end time.Time) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var posts []*models.Post
	for _, post := range r.posts {
		if post.OwnerID != ownerID {
			continue
		}
		at := post.CreatedAt
		if post.ScheduledAt.Valid {
			at = post.ScheduledAt.Time
		}
		if !at.Before(start) && !at.After(end) {
			clone := *post
			posts = append(posts, &clone)
		}
	}
	return posts, nil
}

func (r *fakePostRepo) CheckByOwnerID(ctx context.Context, postID, ownerID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[postID]
	return ok && post.OwnerID == ownerID, nil
}

func (r *fakePostRepo) UpdateContent(ctx context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.posts[post.ID]
	if !ok {
		return nil
	}
	stored.Title = post.Title
	stored.Description = post.Description
	stored.Hashtags = post.Hashtags
	stored.ThumbnailPath = post.ThumbnailPath
	return nil
}

func (r *fakePostRepo) SetSchedule(ctx context.Context, id int64, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok {
		return false, nil
	}
	if post.Status != models.PostStatusDraft && post.Status != models.PostStatusScheduled {
		return false, nil
	}
	post.ScheduledAt = sql.NullTime{Time: at, Valid: true}
	post.Status = models.PostStatusScheduled
	return true, nil
}

func (r *fakePostRepo) ClaimForPublish(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok {
		return false, nil
	}
	switch post.Status {
	case models.PostStatusDraft, models.PostStatusScheduled, models.PostStatusFailed:
		post.Status = models.PostStatusProcessing
		post.AttemptCount++
		return true, nil
	}
	return false, nil
}

func (r *fakePostRepo) MarkPublished(ctx context.Context, id int64, remotePostID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok || post.Status != models.PostStatusProcessing {
		return false, nil
	}
	post.Status = models.PostStatusPublished
	post.RemotePostID = remotePostID
	post.FailureReason = ""
	return true, nil
}

func (r *fakePostRepo) MarkFailed(ctx context.Context, id int64, reason string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok || post.Status != models.PostStatusProcessing {
		return false, nil
	}
	post.Status = models.PostStatusFailed
	post.FailureReason = reason
	return true, nil
}

func (r *fakePostRepo) SoftRemove(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.posts, id)
	return nil
}

type fakeMediaAssetRepo struct {
	mu     sync.Mutex
	assets map[int64]*models.MediaAsset
	nextID int64
}

func newFakeMediaAssetRepo() *fakeMediaAssetRepo {
	return &fakeMediaAssetRepo{assets: map[int64]*models.MediaAsset{}}
}

func (r *fakeMediaAssetRepo) Create(ctx context.Context, tx *sql.Tx, ma *models.MediaAsset) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	stored := *ma
	stored.ID = r.nextID
	r.assets[stored.ID] = &stored
	return stored.ID, nil
}

func (r *fakeMediaAssetRepo) GetByID(ctx context.Context, id int64) (*models.MediaAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ma, ok := r.assets[id]
	if !ok {
		return nil, nil
	}
	clone := *ma
	return &clone, nil
}

func (r *fakeMediaAssetRepo) GetByFileName(ctx context.Context, fileName string) (*models.MediaAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ma := range r.assets {
		if ma.FileName == fileName {
			clone := *ma
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeMediaAssetRepo) Remove(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.assets, id)
	return nil
}

type fakeStorage struct {
	mu      sync.Mutex
	uploads map[string][]byte
	deleted []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{uploads: map[string][]byte{}}
}

func (s *fakeStorage) Upload(ctx context.Context, key string, file []byte, filetype string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads[key] = file
	return nil
}

func (s *fakeStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *fakeStorage) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

type enqueuedTask struct {
	postID int64
	at     time.Time
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []enqueuedTask
}

func (e *fakeEnqueuer) EnqueuePublish(ctx context.Context, postID int64, at time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tasks = append(e.tasks, enqueuedTask{postID: postID, at: at})
	return nil
}

type fakeProber struct {
	metadata  *transfer.VideoMetadata
	probeErr  error
	thumbnail []byte
	thumbErr  error
}

func (p *fakeProber) Probe(ctx context.Context, path string) (*transfer.VideoMetadata, error) {
	if p.probeErr != nil {
		return nil, p.probeErr
	}
	return p.metadata, nil
}

func (p *fakeProber) Thumbnail(ctx context.Context, path string, atSeconds float64) ([]byte, error) {
	if p.thumbErr != nil {
		return nil, p.thumbErr
	}
	return p.thumbnail, nil
}

type fakeMetricRepo struct {
	mu      sync.Mutex
	metrics []*models.Metric
}

func (r *fakeMetricRepo) Upsert(ctx context.Context, m *models.Metric) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, m)
	return nil
}

func (r *fakeMetricRepo) Totals(ctx context.Context, f repository.MetricFilter) (*transfer.MetricTotals, error) {
	return &transfer.MetricTotals{}, nil
}

func (r *fakeMetricRepo) TotalsPerPlatform(ctx context.Context, f repository.MetricFilter) ([]*transfer.PlatformTotals, error) {
	return nil, nil
}

func (r *fakeMetricRepo) TotalsPerDay(ctx context.Context, f repository.MetricFilter) ([]*transfer.DailyTotals, error) {
	return nil, nil
}
