package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// teiProvider talks to a local text-embeddings-inference server, which hosts
// a sentence-embedding model behind a small HTTP API.
type teiConfig struct {
	Endpoint       string `json:"endpoint"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type teiProvider struct {
	endpoint string
	client   *http.Client
}

func (p *teiProvider) Name() string {
	return "tei"
}

type teiEmbedRequest struct {
	Inputs    string `json:"inputs"`
	Normalize bool   `json:"normalize"`
}

func (p *teiProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	_ = model // the tei server hosts exactly one model
	_ = taskType
	if p.endpoint == "" {
		return nil, ErrUnavailable
	}
	body, err := json.Marshal(teiEmbedRequest{Inputs: text, Normalize: true})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("tei embed failed: status=%d body=%s", resp.StatusCode, string(data))
	}
	var out [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode tei response: %w", err)
	}
	if len(out) == 0 || len(out[0]) == 0 {
		return nil, fmt.Errorf("no embedding values returned")
	}
	return out[0], nil
}

func createTEIFactory(args interface{}) (IEmbedProvider, error) {
	cfg := &teiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 30
	}
	return &teiProvider{
		endpoint: strings.TrimSuffix(strings.TrimSpace(cfg.Endpoint), "/"),
		client:   &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
	}, nil
}

func init() {
	Register("tei", createTEIFactory)
}
