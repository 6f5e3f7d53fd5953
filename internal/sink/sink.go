package sink

import (
	"context"
	"log/slog"

	"league-digest/internal/config"
	"league-digest/internal/model"
)

// Sink is the minimal interface all sinks must implement.
type Sink interface {
	Name() string
	Push(ctx context.Context, d model.Digest) error
}

// FromConfig builds the delivery targets of a run. Debug runs write the report locally
// instead of mailing it; Loki and VictoriaMetrics are added when their URL is set.
func FromConfig(c config.Config, logger *slog.Logger) ([]Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var out []Sink
	if c.Debug {
		out = append(out, NewFile(c.Digest.ReportsDir, c.Digest.Timezone))
	} else {
		g, err := NewGmail(c.Mail, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	if c.Loki.URL != "" {
		out = append(out, NewLoki(c.Loki))
	}
	if c.Victoria.URL != "" {
		v, err := NewVictoria(c.Victoria)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
