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
	"strconv"
	"strings"
	"time"
)

// whisperCppModel talks to a whisper.cpp server (or any endpoint speaking the
// same verbose_json transcription API). The model itself lives in the server
// process; loading happens there once, on its first inference.
type whisperCppConfig struct {
	Endpoint       string `json:"endpoint"`
	TimeoutMinutes int    `json:"timeout_minutes"`
}

type whisperCppModel struct {
	endpoint string
	client   *http.Client
}

type whisperSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type whisperResponse struct {
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
	Segments []whisperSegment `json:"segments"`
	Error    string           `json:"error"`
}

func (m *whisperCppModel) Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	// Stream the multipart body so a multi-hundred-MB episode is never
	// buffered in memory.
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		err := writeInferenceForm(writer, file, filepath.Base(audioPath), opts)
		if closeErr := writer.Close(); err == nil {
			err = closeErr
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint+"/inference", pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("whisper inference failed: status=%d body=%s", resp.StatusCode, string(data))
	}
	var decoded whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode whisper response: %w", err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("whisper inference failed: %s", decoded.Error)
	}

	result := &Result{
		Language: decoded.Language,
		Duration: decoded.Duration,
		Segments: make([]RawSegment, 0, len(decoded.Segments)),
	}
	for _, seg := range decoded.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		result.Segments = append(result.Segments, RawSegment{
			Start: seg.Start,
			End:   seg.End,
			Text:  text,
		})
	}
	if result.Duration == 0 && len(result.Segments) > 0 {
		result.Duration = result.Segments[len(result.Segments)-1].End
	}
	return result, nil
}

func writeInferenceForm(writer *multipart.Writer, file io.Reader, filename string, opts Options) error {
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	if err := writer.WriteField("response_format", "verbose_json"); err != nil {
		return err
	}
	if opts.Language != "" {
		if err := writer.WriteField("language", opts.Language); err != nil {
			return err
		}
	}
	if opts.BeamSize > 0 {
		if err := writer.WriteField("beam_size", strconv.Itoa(opts.BeamSize)); err != nil {
			return err
		}
	}
	return nil
}

func createWhisperCpp(args interface{}) (SpeechModel, error) {
	cfg := &whisperCppConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("whispercpp endpoint is required")
	}
	if cfg.TimeoutMinutes <= 0 {
		cfg.TimeoutMinutes = 30
	}
	return &whisperCppModel{
		endpoint: strings.TrimSuffix(strings.TrimSpace(cfg.Endpoint), "/"),
		client:   &http.Client{Timeout: time.Duration(cfg.TimeoutMinutes) * time.Minute},
	}, nil
}

func init() {
	RegisterSpeech("whispercpp", createWhisperCpp)
}
