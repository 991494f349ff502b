package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/compasshq/compass/internal/model"
	appErr "github.com/compasshq/compass/internal/pkg/errors"
	"github.com/compasshq/compass/internal/repo"
)

// FeedService keeps the episodes table in sync with subscribed podcast RSS
// feeds. Only what transcription needs is captured: title, description and
// the audio enclosure URL.
type FeedService struct {
	podcasts *repo.PodcastRepo
	episodes *repo.EpisodeRepo
	parser   *gofeed.Parser
}

func NewFeedService(podcasts *repo.PodcastRepo, episodes *repo.EpisodeRepo) *FeedService {
	return &FeedService{
		podcasts: podcasts,
		episodes: episodes,
		parser:   gofeed.NewParser(),
	}
}

// Subscribe registers a feed and pulls its current episodes.
func (s *FeedService) Subscribe(ctx context.Context, feedURL string) (*model.Podcast, error) {
	feedURL = strings.TrimSpace(feedURL)
	if feedURL == "" {
		return nil, appErr.ErrInvalid
	}
	feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	now := time.Now().UnixMilli()
	podcast := &model.Podcast{
		ID:      uuid.NewString(),
		Title:   feed.Title,
		FeedURL: feedURL,
		Ctime:   now,
		Mtime:   now,
	}
	if existing, err := s.podcasts.GetByFeedURL(ctx, feedURL); err == nil {
		podcast.ID = existing.ID
		podcast.Ctime = existing.Ctime
	}
	if err := s.podcasts.Upsert(ctx, podcast); err != nil {
		return nil, err
	}
	s.ingestItems(ctx, podcast, feed)
	return podcast, nil
}

// RefreshAll polls every subscribed feed. Per-feed failures are logged and
// do not stop the sweep.
func (s *FeedService) RefreshAll(ctx context.Context) error {
	podcasts, err := s.podcasts.List(ctx)
	if err != nil {
		return err
	}
	for _, podcast := range podcasts {
		feed, err := s.parser.ParseURLWithContext(podcast.FeedURL, ctx)
		if err != nil {
			logutil.GetLogger(ctx).Warn("feed refresh failed",
				zap.String("feed_url", podcast.FeedURL), zap.Error(err))
			continue
		}
		s.ingestItems(ctx, &podcast, feed)
	}
	return nil
}

func (s *FeedService) ingestItems(ctx context.Context, podcast *model.Podcast, feed *gofeed.Feed) {
	now := time.Now().UnixMilli()
	added := 0
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		guid := item.GUID
		if guid == "" {
			guid = item.Link
		}
		if guid == "" {
			continue
		}
		episode := &model.Episode{
			ID:          uuid.NewString(),
			PodcastID:   podcast.ID,
			GUID:        guid,
			Title:       item.Title,
			Description: item.Description,
			AudioURL:    audioEnclosure(item),
			Ctime:       now,
			Mtime:       now,
		}
		if item.PublishedParsed != nil {
			episode.PublishedAt = item.PublishedParsed.UnixMilli()
		}
		err := s.episodes.Create(ctx, episode)
		if errors.Is(err, appErr.ErrConflict) {
			continue
		}
		if err != nil {
			logutil.GetLogger(ctx).Warn("episode insert failed",
				zap.String("guid", guid), zap.Error(err))
			continue
		}
		added++
	}
	if added > 0 {
		logutil.GetLogger(ctx).Info("feed ingested",
			zap.String("podcast", podcast.Title), zap.Int("new_episodes", added))
	}
}

func audioEnclosure(item *gofeed.Item) string {
	for _, enclosure := range item.Enclosures {
		if enclosure == nil {
			continue
		}
		if strings.HasPrefix(enclosure.Type, "audio/") || enclosure.Type == "" {
			return enclosure.URL
		}
	}
	return ""
}
