package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"database": {"host": "localhost", "user": "compass", "dbname": "compass"},
		"graph": {"uri": "neo4j://localhost:7687"},
		"embedding": {"provider": "gemini", "model": "text-embedding-004"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 768, cfg.Graph.VectorDimensions)
	require.Equal(t, "info", cfg.LogConfig.Level)
	require.Equal(t, 10000, cfg.Embedding.CacheSize)
	require.Equal(t, 120, cfg.Embedding.CacheTTLMinutes)
	require.Equal(t, 1024, cfg.Embedding.IndexQueueSize)
	require.Equal(t, "whispercpp", cfg.Transcription.Provider)
	require.Equal(t, 5, cfg.Transcription.BeamSize)
	require.Equal(t, 600, cfg.Transcription.DownloadTimeout)
	require.Equal(t, 64, cfg.Transcription.QueueSize)
	require.Equal(t, "local", cfg.AudioStore.Type)
	require.Equal(t, 30, cfg.Jobs.CacheKeepDays)
	require.Equal(t, 10, cfg.Jobs.TranscribeSweepLimit)
	require.Equal(t, 50, cfg.Jobs.GraphReindexBatchSize)
}

func TestLoadValidation(t *testing.T) {
	cases := []string{
		`{}`,
		`{"port": 8080}`,
		`{"port": 8080, "database": {"host": "h"}}`,
		`{"port": 8080, "database": {"host": "h"}, "graph": {"uri": "u"}}`,
		`{"port": 8080, "database": {"host": "h"}, "graph": {"uri": "u"},
		  "embedding": {"provider": "gemini"}}`,
		`{"port": 8080, "database": {"host": "h"}, "graph": {"uri": "u"},
		  "embedding": {"provider": "gemini", "model": "m"},
		  "transcription": {"enable_diarization": true}}`,
	}
	for _, content := range cases {
		_, err := Load(writeConfig(t, content))
		require.Error(t, err, content)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
