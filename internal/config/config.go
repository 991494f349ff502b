package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port          int              `json:"port"`
	CORSAllowlist []string         `json:"cors_allowlist"`
	LogConfig     logger.LogConfig `json:"log_config"`
	Database      DatabaseConfig   `json:"database"`
	Graph         GraphConfig      `json:"graph"`
	Embedding     EmbeddingConfig  `json:"embedding"`
	Transcription TranscribeConfig `json:"transcription"`
	AudioStore    AudioStoreConfig `json:"audio_store"`
	Jobs          JobsConfig       `json:"jobs"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type GraphConfig struct {
	URI              string `json:"uri"`
	Username         string `json:"username"`
	Password         string `json:"password"`
	Database         string `json:"database"`
	VectorDimensions int    `json:"vector_dimensions"`
}

type EmbeddingConfig struct {
	Provider        string      `json:"provider"`
	Model           string      `json:"model"`
	Data            interface{} `json:"data"`
	CacheSize       int         `json:"cache_size"`
	CacheTTLMinutes int         `json:"cache_ttl_minutes"`
	TimeoutSeconds  int         `json:"timeout_seconds"`
	IndexQueueSize  int         `json:"index_queue_size"`
}

type TranscribeConfig struct {
	Provider          string      `json:"provider"`
	Data              interface{} `json:"data"`
	DiarizerProvider  string      `json:"diarizer_provider"`
	DiarizerData      interface{} `json:"diarizer_data"`
	EnableDiarization bool        `json:"enable_diarization"`
	BeamSize          int         `json:"beam_size"`
	DownloadDir       string      `json:"download_dir"`
	DownloadTimeout   int         `json:"download_timeout_seconds"`
	QueueSize         int         `json:"queue_size"`
	ArchiveAudio      bool        `json:"archive_audio"`
}

type AudioStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type JobsConfig struct {
	FeedRefreshSpec       string `json:"feed_refresh_spec"`
	TranscribeSweepSpec   string `json:"transcribe_sweep_spec"`
	GraphReindexSpec      string `json:"graph_reindex_spec"`
	CacheCleanupSpec      string `json:"cache_cleanup_spec"`
	CacheKeepDays         int    `json:"cache_keep_days"`
	TranscribeSweepLimit  int    `json:"transcribe_sweep_limit"`
	GraphReindexBatchSize int    `json:"graph_reindex_batch_size"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.Graph.URI == "" {
		return nil, fmt.Errorf("graph.uri is required")
	}
	if cfg.Graph.VectorDimensions == 0 {
		cfg.Graph.VectorDimensions = 768
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Embedding.Provider == "" {
		return nil, fmt.Errorf("embedding.provider is required")
	}
	if cfg.Embedding.Model == "" {
		return nil, fmt.Errorf("embedding.model is required")
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.CacheTTLMinutes == 0 {
		cfg.Embedding.CacheTTLMinutes = 120
	}
	if cfg.Embedding.IndexQueueSize == 0 {
		cfg.Embedding.IndexQueueSize = 1024
	}
	if cfg.Transcription.Provider == "" {
		cfg.Transcription.Provider = "whispercpp"
	}
	if cfg.Transcription.BeamSize == 0 {
		cfg.Transcription.BeamSize = 5
	}
	if cfg.Transcription.DownloadTimeout == 0 {
		cfg.Transcription.DownloadTimeout = 600
	}
	if cfg.Transcription.QueueSize == 0 {
		cfg.Transcription.QueueSize = 64
	}
	if cfg.Transcription.EnableDiarization && cfg.Transcription.DiarizerProvider == "" {
		return nil, fmt.Errorf("transcription.diarizer_provider is required when diarization is enabled")
	}
	if cfg.AudioStore.Type == "" {
		cfg.AudioStore.Type = "local"
		cfg.AudioStore.Data = map[string]interface{}{"dir": os.TempDir()}
	}
	if cfg.Jobs.CacheKeepDays == 0 {
		cfg.Jobs.CacheKeepDays = 30
	}
	if cfg.Jobs.TranscribeSweepLimit == 0 {
		cfg.Jobs.TranscribeSweepLimit = 10
	}
	if cfg.Jobs.GraphReindexBatchSize == 0 {
		cfg.Jobs.GraphReindexBatchSize = 50
	}
	return &cfg, nil
}
