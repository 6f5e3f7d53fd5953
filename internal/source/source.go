package source

import (
	"context"
	"fmt"
	"log/slog"

	"league-digest/internal/config"
	"league-digest/internal/model"
)

// Source supplies league metadata and the recent activity feed.
type Source interface {
	Name() string
	LeagueName(ctx context.Context) (string, error)
	FetchRecentActivity(ctx context.Context, limit int) ([]model.RawActivityGroup, error)
}

func NewFromConfig(c config.Config, logger *slog.Logger) (Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch c.Source.Type {
	case "espn":
		return NewESPNSource(c.League, c.Source, logger), nil
	case "file":
		return NewFileSource(c.Source.Path, c.Source.LeagueName), nil
	default:
		return nil, fmt.Errorf("unknown source type: %s", c.Source.Type)
	}
}
