package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/compasshq/compass/internal/service"
)

// TranscriptionSweepJob enqueues episodes that have audio but no transcript.
type TranscriptionSweepJob struct {
	transcription *service.TranscriptionService
	limit         int
}

func NewTranscriptionSweepJob(transcription *service.TranscriptionService, limit int) *TranscriptionSweepJob {
	return &TranscriptionSweepJob{transcription: transcription, limit: limit}
}

func (j *TranscriptionSweepJob) Name() string {
	return "transcription_sweep"
}

func (j *TranscriptionSweepJob) Run(ctx context.Context) error {
	episodes, err := j.transcription.ListUntranscribed(ctx, j.limit)
	if err != nil {
		return err
	}
	for _, episode := range episodes {
		if !j.transcription.Enqueue(episode.ID, service.TranscribeOptions{}) {
			logutil.GetLogger(ctx).Info("transcription queue full, sweep stopped",
				zap.String("episode_id", episode.ID))
			return nil
		}
	}
	return nil
}
