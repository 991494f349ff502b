package job

import (
	"context"

	"github.com/compasshq/compass/internal/service"
)

type FeedRefreshJob struct {
	feeds *service.FeedService
}

func NewFeedRefreshJob(feeds *service.FeedService) *FeedRefreshJob {
	return &FeedRefreshJob{feeds: feeds}
}

func (j *FeedRefreshJob) Name() string {
	return "feed_refresh"
}

func (j *FeedRefreshJob) Run(ctx context.Context) error {
	return j.feeds.RefreshAll(ctx)
}
