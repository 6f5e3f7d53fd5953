package source

import (
	"context"

	"league-digest/internal/model"
	"league-digest/internal/store"
)

// fileSource replays a raw activity dump written by a debug run.
type fileSource struct {
	path   string
	league string
}

func NewFileSource(path, league string) *fileSource {
	return &fileSource{path: path, league: league}
}

func (f *fileSource) Name() string { return "file" }

func (f *fileSource) LeagueName(context.Context) (string, error) { return f.league, nil }

func (f *fileSource) FetchRecentActivity(ctx context.Context, limit int) ([]model.RawActivityGroup, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	groups, err := store.LoadDump(f.path)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}
	return groups, nil
}
