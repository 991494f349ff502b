package transcribe

import (
	"context"
	"sync"

	"github.com/compasshq/compass/internal/config"
)

// Models hands out the shared speech and diarization models. Implementations
// must be safe for concurrent callers.
type Models interface {
	Speech(ctx context.Context) (SpeechModel, error)
	// Diarizer returns (nil, nil) when diarization is disabled.
	Diarizer(ctx context.Context) (Diarizer, error)
}

// Pool lazily constructs the configured models on first use and caches them
// for the process lifetime. Inference on each model is serialized: the
// underlying runtimes load one expensive model instance and are not assumed
// to support concurrent inference.
type Pool struct {
	cfg config.TranscribeConfig

	mu       sync.Mutex
	speech   SpeechModel
	diarizer Diarizer
}

func NewPool(cfg config.TranscribeConfig) *Pool {
	return &Pool{cfg: cfg}
}

func (p *Pool) Speech(ctx context.Context) (SpeechModel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.speech != nil {
		return p.speech, nil
	}
	modelArgs := p.cfg.Data
	speech, err := NewSpeechModel(p.cfg.Provider, modelArgs)
	if err != nil {
		return nil, err
	}
	p.speech = &serializedSpeech{next: speech}
	return p.speech, nil
}

func (p *Pool) Diarizer(ctx context.Context) (Diarizer, error) {
	if !p.cfg.EnableDiarization {
		return nil, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.diarizer != nil {
		return p.diarizer, nil
	}
	diarizer, err := NewDiarizer(p.cfg.DiarizerProvider, p.cfg.DiarizerData)
	if err != nil {
		return nil, err
	}
	p.diarizer = &serializedDiarizer{next: diarizer}
	return p.diarizer, nil
}

type serializedSpeech struct {
	mu   sync.Mutex
	next SpeechModel
}

func (s *serializedSpeech) Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.Transcribe(ctx, audioPath, opts)
}

type serializedDiarizer struct {
	mu   sync.Mutex
	next Diarizer
}

func (s *serializedDiarizer) Diarize(ctx context.Context, audioPath string) ([]DiarizationTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.Diarize(ctx, audioPath)
}
