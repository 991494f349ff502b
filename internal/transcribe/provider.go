package transcribe

import (
	"encoding/json"
	"fmt"
	"strings"
)

type SpeechFactory func(args interface{}) (SpeechModel, error)

type DiarizerFactory func(args interface{}) (Diarizer, error)

var (
	speechRegistry   = map[string]SpeechFactory{}
	diarizerRegistry = map[string]DiarizerFactory{}
)

func RegisterSpeech(name string, factory SpeechFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	speechRegistry[key] = factory
}

func RegisterDiarizer(name string, factory DiarizerFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	diarizerRegistry[key] = factory
}

func NewSpeechModel(name string, args interface{}) (SpeechModel, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("transcription.provider is required")
	}
	factory := speechRegistry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported speech provider: %s", name)
	}
	return factory(args)
}

func NewDiarizer(name string, args interface{}) (Diarizer, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("transcription.diarizer_provider is required")
	}
	factory := diarizerRegistry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported diarizer provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("transcription provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode transcription provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode transcription provider config: %w", err)
	}
	return nil
}
