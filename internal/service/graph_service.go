package service

import (
	"context"
	"fmt"

	"github.com/compasshq/compass/internal/model"
	appErr "github.com/compasshq/compass/internal/pkg/errors"
)

type GraphHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type GraphService struct {
	store GraphStore
}

func NewGraphService(store GraphStore) *GraphService {
	return &GraphService{store: store}
}

func (s *GraphService) Stats(ctx context.Context) (*model.GraphStats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrUnavailable, err)
	}
	return stats, nil
}

func (s *GraphService) Health(ctx context.Context) GraphHealth {
	if err := s.store.Health(ctx); err != nil {
		return GraphHealth{Status: "unhealthy", Error: err.Error()}
	}
	return GraphHealth{Status: "healthy"}
}
