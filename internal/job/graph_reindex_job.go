package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/compasshq/compass/internal/repo"
	"github.com/compasshq/compass/internal/service"
)

// GraphReindexJob pushes transcribed episodes whose transcript is newer than
// their last indexing run back into the knowledge graph. It also serves as
// the retry path for index-queue entries that were dropped or failed.
type GraphReindexJob struct {
	episodes  *repo.EpisodeRepo
	indexer   *service.IndexService
	batchSize int
}

func NewGraphReindexJob(episodes *repo.EpisodeRepo, indexer *service.IndexService, batchSize int) *GraphReindexJob {
	return &GraphReindexJob{episodes: episodes, indexer: indexer, batchSize: batchSize}
}

func (j *GraphReindexJob) Name() string {
	return "graph_reindex"
}

func (j *GraphReindexJob) Run(ctx context.Context) error {
	episodes, err := j.episodes.ListUnindexed(ctx, j.batchSize)
	if err != nil {
		return err
	}
	for _, episode := range episodes {
		content := episode.Title + "\n" + episode.Description
		if episode.Transcript != "" {
			content += "\n" + episode.Transcript
		}
		_, err := j.indexer.Index(ctx, service.IndexInput{
			EntityID:      episode.ID,
			EntityType:    "episode",
			Content:       content,
			CanonicalName: episode.Title,
			Metadata: map[string]interface{}{
				"podcast_id":   episode.PodcastID,
				"published_at": episode.PublishedAt,
			},
		})
		if err != nil {
			logutil.GetLogger(ctx).Warn("episode reindex failed",
				zap.String("episode_id", episode.ID), zap.Error(err))
			continue
		}
		if err := j.episodes.MarkIndexed(ctx, episode.ID, time.Now().UnixMilli()); err != nil {
			logutil.GetLogger(ctx).Warn("mark indexed failed",
				zap.String("episode_id", episode.ID), zap.Error(err))
		}
	}
	return nil
}
