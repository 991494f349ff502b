package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/compasshq/compass/internal/model"
	appErr "github.com/compasshq/compass/internal/pkg/errors"
	"github.com/compasshq/compass/internal/transcribe"
)

type fakeEpisodeStore struct {
	episodes map[string]*model.Episode
	saved    map[string]*model.Transcript
}

func newFakeEpisodeStore(episodes ...*model.Episode) *fakeEpisodeStore {
	store := &fakeEpisodeStore{
		episodes: make(map[string]*model.Episode),
		saved:    make(map[string]*model.Transcript),
	}
	for _, episode := range episodes {
		store.episodes[episode.ID] = episode
	}
	return store
}

func (f *fakeEpisodeStore) GetByID(ctx context.Context, id string) (*model.Episode, error) {
	episode, ok := f.episodes[id]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	clone := *episode
	return &clone, nil
}

func (f *fakeEpisodeStore) SaveTranscript(ctx context.Context, id string, transcript *model.Transcript, now int64) error {
	episode, ok := f.episodes[id]
	if !ok {
		return appErr.ErrNotFound
	}
	f.saved[id] = transcript
	episode.Transcript = transcript.PlainText()
	episode.TranscriptData = transcript
	episode.TranscriptGenerated = true
	episode.TranscriptGeneratedAt = now
	return nil
}

func (f *fakeEpisodeStore) ListUntranscribed(ctx context.Context, limit int) ([]model.Episode, error) {
	var out []model.Episode
	for _, episode := range f.episodes {
		if !episode.TranscriptGenerated && episode.AudioURL != "" {
			out = append(out, *episode)
		}
	}
	return out, nil
}

func (f *fakeEpisodeStore) Stats(ctx context.Context) (*model.TranscriptionStats, error) {
	stats := &model.TranscriptionStats{}
	for _, episode := range f.episodes {
		stats.TotalEpisodes++
		if episode.TranscriptGenerated {
			stats.Transcribed++
		} else {
			stats.Pending++
		}
	}
	return stats, nil
}

type fakeSpeech struct {
	result *transcribe.Result
	err    error
	calls  int
}

func (f *fakeSpeech) Transcribe(ctx context.Context, audioPath string, opts transcribe.Options) (*transcribe.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeDiarizer struct {
	turns []transcribe.DiarizationTurn
	err   error
}

func (f *fakeDiarizer) Diarize(ctx context.Context, audioPath string) ([]transcribe.DiarizationTurn, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.turns, nil
}

type fakeModels struct {
	speech   *fakeSpeech
	diarizer *fakeDiarizer
}

func (f *fakeModels) Speech(ctx context.Context) (transcribe.SpeechModel, error) {
	return f.speech, nil
}

func (f *fakeModels) Diarizer(ctx context.Context) (transcribe.Diarizer, error) {
	if f.diarizer == nil {
		return nil, nil
	}
	return f.diarizer, nil
}

type fakeDownloader struct {
	err      error
	cleaned  int
	requests []string
}

func (f *fakeDownloader) Download(ctx context.Context, url string) (string, func(), error) {
	if f.err != nil {
		return "", nil, f.err
	}
	f.requests = append(f.requests, url)
	return "/tmp/fake.audio", func() { f.cleaned++ }, nil
}

func speechResult() *transcribe.Result {
	return &transcribe.Result{
		Segments: []transcribe.RawSegment{
			{Start: 0, End: 4, Text: "welcome to the show"},
			{Start: 4, End: 9, Text: "thanks for having me"},
		},
		Language: "en",
		Duration: 9,
	}
}

func pendingEpisode(id string) *model.Episode {
	return &model.Episode{ID: id, AudioURL: "https://example.com/" + id + ".mp3"}
}

func newTestTranscription(store *fakeEpisodeStore, models transcribe.Models, downloader transcribe.Downloader) *TranscriptionService {
	return NewTranscriptionService(store, models, downloader, nil, false, 5, 4)
}

func TestTranscribePipeline(t *testing.T) {
	store := newFakeEpisodeStore(pendingEpisode("ep-1"))
	models := &fakeModels{
		speech: &fakeSpeech{result: speechResult()},
		diarizer: &fakeDiarizer{turns: []transcribe.DiarizationTurn{
			{Start: 0, End: 4.5, SpeakerID: "SPEAKER_00"},
			{Start: 4.5, End: 9, SpeakerID: "SPEAKER_01"},
		}},
	}
	downloader := &fakeDownloader{}
	svc := newTestTranscription(store, models, downloader)

	episode, err := svc.Transcribe(context.Background(), "ep-1", TranscribeOptions{})
	require.NoError(t, err)
	require.True(t, episode.TranscriptGenerated)
	require.Equal(t, 1, downloader.cleaned)

	transcript := store.saved["ep-1"]
	require.Len(t, transcript.Segments, 2)
	require.Equal(t, "SPEAKER_00", *transcript.Segments[0].Speaker)
	require.Equal(t, "SPEAKER_01", *transcript.Segments[1].Speaker)
	require.Equal(t, "en", transcript.Language)
	require.Len(t, transcript.Speakers, 2)
}

func TestTranscribeIdempotent(t *testing.T) {
	episode := pendingEpisode("ep-1")
	episode.TranscriptGenerated = true
	episode.Transcript = "already there"
	store := newFakeEpisodeStore(episode)
	models := &fakeModels{speech: &fakeSpeech{result: speechResult()}}
	svc := newTestTranscription(store, models, &fakeDownloader{})

	got, err := svc.Transcribe(context.Background(), "ep-1", TranscribeOptions{})
	require.NoError(t, err)
	require.Equal(t, "already there", got.Transcript)
	require.Zero(t, models.speech.calls)
}

func TestTranscribeForceRetranscribes(t *testing.T) {
	episode := pendingEpisode("ep-1")
	episode.TranscriptGenerated = true
	store := newFakeEpisodeStore(episode)
	models := &fakeModels{speech: &fakeSpeech{result: speechResult()}}
	svc := newTestTranscription(store, models, &fakeDownloader{})

	_, err := svc.Transcribe(context.Background(), "ep-1", TranscribeOptions{Force: true})
	require.NoError(t, err)
	require.Equal(t, 1, models.speech.calls)
	require.NotNil(t, store.saved["ep-1"])
}

func TestTranscribeNoAudio(t *testing.T) {
	store := newFakeEpisodeStore(&model.Episode{ID: "ep-1"})
	svc := newTestTranscription(store, &fakeModels{speech: &fakeSpeech{}}, &fakeDownloader{})

	_, err := svc.Transcribe(context.Background(), "ep-1", TranscribeOptions{})
	require.ErrorIs(t, err, appErr.ErrNoAudio)
}

func TestTranscribeDownloadFailureIsDistinguishable(t *testing.T) {
	store := newFakeEpisodeStore(pendingEpisode("ep-1"))
	downloader := &fakeDownloader{err: errStoreDown}
	svc := newTestTranscription(store, &fakeModels{speech: &fakeSpeech{}}, downloader)

	_, err := svc.Transcribe(context.Background(), "ep-1", TranscribeOptions{})
	require.ErrorIs(t, err, appErr.ErrDownloadFailed)
	require.NotErrorIs(t, err, appErr.ErrTranscribeFailed)
}

func TestTranscribeSpeechFailure(t *testing.T) {
	store := newFakeEpisodeStore(pendingEpisode("ep-1"))
	models := &fakeModels{speech: &fakeSpeech{err: errStoreDown}}
	downloader := &fakeDownloader{}
	svc := newTestTranscription(store, models, downloader)

	_, err := svc.Transcribe(context.Background(), "ep-1", TranscribeOptions{})
	require.ErrorIs(t, err, appErr.ErrTranscribeFailed)
	require.Empty(t, store.saved)
	// temp audio is removed on the failure path too
	require.Equal(t, 1, downloader.cleaned)
}

func TestTranscribeDiarizationFailureKeepsTranscript(t *testing.T) {
	store := newFakeEpisodeStore(pendingEpisode("ep-1"))
	models := &fakeModels{
		speech:   &fakeSpeech{result: speechResult()},
		diarizer: &fakeDiarizer{err: errStoreDown},
	}
	svc := newTestTranscription(store, models, &fakeDownloader{})

	_, err := svc.Transcribe(context.Background(), "ep-1", TranscribeOptions{})
	require.NoError(t, err)

	transcript := store.saved["ep-1"]
	require.Len(t, transcript.Segments, 2)
	require.Nil(t, transcript.Segments[0].Speaker)
	require.Empty(t, transcript.Speakers)
}

func TestTranscribeWithoutDiarizer(t *testing.T) {
	store := newFakeEpisodeStore(pendingEpisode("ep-1"))
	models := &fakeModels{speech: &fakeSpeech{result: speechResult()}}
	svc := newTestTranscription(store, models, &fakeDownloader{})

	_, err := svc.Transcribe(context.Background(), "ep-1", TranscribeOptions{})
	require.NoError(t, err)
	require.Nil(t, store.saved["ep-1"].Segments[0].Speaker)
}

func TestTranscribeCancelledPersistsNothing(t *testing.T) {
	store := newFakeEpisodeStore(pendingEpisode("ep-1"))
	models := &fakeModels{speech: &fakeSpeech{result: speechResult()}}
	svc := newTestTranscription(store, models, &fakeDownloader{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Transcribe(ctx, "ep-1", TranscribeOptions{})
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, store.saved)
}

func TestTranscribeBatchContinuesPastFailures(t *testing.T) {
	noAudio := &model.Episode{ID: "ep-2"}
	store := newFakeEpisodeStore(pendingEpisode("ep-1"), noAudio, pendingEpisode("ep-3"))
	models := &fakeModels{speech: &fakeSpeech{result: speechResult()}}
	svc := newTestTranscription(store, models, &fakeDownloader{})

	results := svc.TranscribeBatch(context.Background(), []string{"ep-1", "ep-2", "ep-3"}, TranscribeOptions{})
	require.Len(t, results, 3)
	require.True(t, results["ep-1"].Success)
	require.False(t, results["ep-2"].Success)
	require.NotEmpty(t, results["ep-2"].Error)
	require.True(t, results["ep-3"].Success)
	require.Equal(t, 2, models.speech.calls)
}

func TestTranscriptionStats(t *testing.T) {
	done := pendingEpisode("ep-1")
	done.TranscriptGenerated = true
	store := newFakeEpisodeStore(done, pendingEpisode("ep-2"))
	svc := newTestTranscription(store, &fakeModels{speech: &fakeSpeech{}}, &fakeDownloader{})

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.TotalEpisodes)
	require.Equal(t, int64(1), stats.Transcribed)
	require.Equal(t, int64(1), stats.Pending)
}
