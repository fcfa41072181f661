package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/service"
)

type TokenRefreshJob struct {
	as service.AccountService
}

func NewTokenRefreshJob(as service.AccountService) *TokenRefreshJob {
	return &TokenRefreshJob{as: as}
}

// RefreshTokens sweeps accounts whose tokens expire within the next half
// hour (or already did) and refreshes them with bounded concurrency.
func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	accounts, err := c.as.ListExpiring(ctx, 30*time.Minute)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, acc := range accounts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.Account) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := c.as.Refresh(ctx, acc.ID); err != nil {
				slog.Info("Unable to refresh tokens for " + acc.Platform)
			}
		}(acc)
	}

	wg.Wait()
}
