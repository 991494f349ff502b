package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// pyannoteDiarizer calls a pyannote-audio sidecar service that answers
// "who spoke when" for an audio file.
type pyannoteConfig struct {
	Endpoint       string `json:"endpoint"`
	TimeoutMinutes int    `json:"timeout_minutes"`
}

type pyannoteDiarizer struct {
	endpoint string
	client   *http.Client
}

type pyannoteTurn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

func (d *pyannoteDiarizer) Diarize(ctx context.Context, audioPath string) ([]DiarizationTurn, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
		if err == nil {
			_, err = io.Copy(part, file)
		}
		if closeErr := writer.Close(); err == nil {
			err = closeErr
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint+"/diarize", pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("diarization failed: status=%d body=%s", resp.StatusCode, string(data))
	}
	var turns []pyannoteTurn
	if err := json.NewDecoder(resp.Body).Decode(&turns); err != nil {
		return nil, fmt.Errorf("decode diarization response: %w", err)
	}
	out := make([]DiarizationTurn, 0, len(turns))
	for _, turn := range turns {
		out = append(out, DiarizationTurn{
			Start:     turn.Start,
			End:       turn.End,
			SpeakerID: turn.Speaker,
		})
	}
	return out, nil
}

func createPyannote(args interface{}) (Diarizer, error) {
	cfg := &pyannoteConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("pyannote endpoint is required")
	}
	if cfg.TimeoutMinutes <= 0 {
		cfg.TimeoutMinutes = 30
	}
	return &pyannoteDiarizer{
		endpoint: strings.TrimSuffix(strings.TrimSpace(cfg.Endpoint), "/"),
		client:   &http.Client{Timeout: time.Duration(cfg.TimeoutMinutes) * time.Minute},
	}, nil
}

func init() {
	RegisterDiarizer("pyannote", createPyannote)
}
