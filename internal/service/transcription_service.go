package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/compasshq/compass/internal/filestore"
	"github.com/compasshq/compass/internal/model"
	appErr "github.com/compasshq/compass/internal/pkg/errors"
	"github.com/compasshq/compass/internal/transcribe"
)

// EpisodeStore is the slice of the episode repository the transcription
// service needs.
type EpisodeStore interface {
	GetByID(ctx context.Context, id string) (*model.Episode, error)
	SaveTranscript(ctx context.Context, id string, transcript *model.Transcript, now int64) error
	ListUntranscribed(ctx context.Context, limit int) ([]model.Episode, error)
	Stats(ctx context.Context) (*model.TranscriptionStats, error)
}

type TranscribeOptions struct {
	Language string `json:"language"`
	BeamSize int    `json:"beam_size"`
	Force    bool   `json:"force"`
}

type BatchResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type transcribeRequest struct {
	episodeID string
	opts      TranscribeOptions
}

// TranscriptionService runs the download -> speech-to-text -> diarization ->
// alignment pipeline and persists the result. Inference is long-running and
// handled off the request path by a single worker; the underlying models are
// shared and expensive, so episodes are processed one at a time.
type TranscriptionService struct {
	episodes     EpisodeStore
	models       transcribe.Models
	downloader   transcribe.Downloader
	archive      filestore.Store
	archiveAudio bool
	defaultBeam  int
	queue        chan transcribeRequest
}

func NewTranscriptionService(
	episodes EpisodeStore,
	models transcribe.Models,
	downloader transcribe.Downloader,
	archive filestore.Store,
	archiveAudio bool,
	defaultBeam int,
	queueSize int,
) *TranscriptionService {
	if defaultBeam <= 0 {
		defaultBeam = 5
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &TranscriptionService{
		episodes:     episodes,
		models:       models,
		downloader:   downloader,
		archive:      archive,
		archiveAudio: archiveAudio,
		defaultBeam:  defaultBeam,
		queue:        make(chan transcribeRequest, queueSize),
	}
}

// Transcribe produces and persists the transcript for one episode. With an
// existing transcript and force unset it is an idempotent no-op returning the
// stored episode. The transcript is written only after the whole pipeline
// succeeds; an interrupted run leaves no partial state.
func (s *TranscriptionService) Transcribe(ctx context.Context, episodeID string, opts TranscribeOptions) (*model.Episode, error) {
	episode, err := s.episodes.GetByID(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	if episode.TranscriptGenerated && !opts.Force {
		return episode, nil
	}
	if episode.AudioURL == "" {
		return nil, appErr.ErrNoAudio
	}
	if opts.BeamSize <= 0 {
		opts.BeamSize = s.defaultBeam
	}
	logger := logutil.GetLogger(ctx).With(zap.String("episode_id", episodeID))

	audioPath, cleanup, err := s.downloader.Download(ctx, episode.AudioURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrDownloadFailed, err)
	}
	defer cleanup()

	speech, err := s.models.Speech(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrTranscribeFailed, err)
	}
	started := time.Now()
	result, err := speech.Transcribe(ctx, audioPath, transcribe.Options{
		Language: opts.Language,
		BeamSize: opts.BeamSize,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrTranscribeFailed, err)
	}
	logger.Info("speech-to-text done",
		zap.Int("segments", len(result.Segments)),
		zap.String("language", result.Language),
		zap.Duration("elapsed", time.Since(started)),
	)

	var turns []transcribe.DiarizationTurn
	diarizer, err := s.models.Diarizer(ctx)
	if err != nil {
		logger.Warn("diarizer unavailable, transcript will be unlabeled", zap.Error(err))
	} else if diarizer != nil {
		turns, err = diarizer.Diarize(ctx, audioPath)
		if err != nil {
			logger.Warn("diarization failed, transcript will be unlabeled", zap.Error(err))
			turns = nil
		}
	}

	segments, speakers := transcribe.Align(result.Segments, turns)
	transcript := &model.Transcript{
		Segments: segments,
		Speakers: speakers,
		Language: result.Language,
		Duration: result.Duration,
	}

	// A cancelled run must look like it never happened.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.episodes.SaveTranscript(ctx, episodeID, transcript, time.Now().UnixMilli()); err != nil {
		return nil, err
	}
	s.archiveAudioFile(ctx, episodeID, audioPath)
	return s.episodes.GetByID(ctx, episodeID)
}

// TranscribeBatch processes episodes strictly one after another: the speech
// model is a shared single-inference resource. One episode failing never
// aborts the rest.
func (s *TranscriptionService) TranscribeBatch(ctx context.Context, episodeIDs []string, opts TranscribeOptions) map[string]BatchResult {
	out := make(map[string]BatchResult, len(episodeIDs))
	for _, id := range episodeIDs {
		if _, err := s.Transcribe(ctx, id, opts); err != nil {
			logutil.GetLogger(ctx).Warn("batch transcription item failed",
				zap.String("episode_id", id), zap.Error(err))
			out[id] = BatchResult{Success: false, Error: err.Error()}
			continue
		}
		out[id] = BatchResult{Success: true}
	}
	return out
}

func (s *TranscriptionService) Stats(ctx context.Context) (*model.TranscriptionStats, error) {
	return s.episodes.Stats(ctx)
}

func (s *TranscriptionService) ListUntranscribed(ctx context.Context, limit int) ([]model.Episode, error) {
	return s.episodes.ListUntranscribed(ctx, limit)
}

// Enqueue schedules an episode for background transcription. Returns false
// when the queue is full.
func (s *TranscriptionService) Enqueue(episodeID string, opts TranscribeOptions) bool {
	select {
	case s.queue <- transcribeRequest{episodeID: episodeID, opts: opts}:
		return true
	default:
		return false
	}
}

// StartWorker consumes the transcription queue until ctx is cancelled.
func (s *TranscriptionService) StartWorker(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case req := <-s.queue:
				if _, err := s.Transcribe(ctx, req.episodeID, req.opts); err != nil {
					logutil.GetLogger(ctx).Error("background transcription failed",
						zap.String("episode_id", req.episodeID), zap.Error(err))
				}
			}
		}
	}()
}

func (s *TranscriptionService) archiveAudioFile(ctx context.Context, episodeID, audioPath string) {
	if !s.archiveAudio || s.archive == nil {
		return
	}
	file, err := os.Open(audioPath)
	if err != nil {
		logutil.GetLogger(ctx).Warn("audio archive skipped", zap.Error(err))
		return
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		logutil.GetLogger(ctx).Warn("audio archive skipped", zap.Error(err))
		return
	}
	key := "episode-" + episodeID + ".audio"
	if err := s.archive.Save(ctx, key, file, info.Size()); err != nil {
		logutil.GetLogger(ctx).Warn("audio archive failed",
			zap.String("episode_id", episodeID), zap.Error(err))
	}
}
