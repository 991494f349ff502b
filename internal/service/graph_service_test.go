package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGraphServiceHealth(t *testing.T) {
	svc := NewGraphService(newFakeGraphStore())
	health := svc.Health(context.Background())
	require.Equal(t, "healthy", health.Status)
	require.Empty(t, health.Error)
}

func TestGraphServiceStats(t *testing.T) {
	store := newFakeGraphStore()
	seedNode(store, "skill", "go", "Go")
	svc := NewGraphService(store)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.TotalNodes)
}
