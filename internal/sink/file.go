package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"league-digest/internal/model"
)

// fileSink writes the rendered digest to <dir>/activity-YYYY-MM-DD.html.
type fileSink struct {
	dir string
	loc *time.Location
	now func() time.Time
	// Path of the last written report.
	last string
}

func NewFile(dir, timezone string) *fileSink {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	if dir == "" {
		dir = "reports"
	}
	return &fileSink{dir: dir, loc: loc, now: time.Now}
}

func (f *fileSink) Name() string { return "file" }

func (f *fileSink) Push(ctx context.Context, d model.Digest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create reports dir: %w", err)
	}
	path := filepath.Join(f.dir, "activity-"+f.now().In(f.loc).Format("2006-01-02")+".html")
	if err := os.WriteFile(path, []byte(d.HTML), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	f.last = path
	return nil
}

// Path returns the last report written, or "".
func (f *fileSink) Path() string { return f.last }
