package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"league-digest/internal/activity"
	"league-digest/internal/config"
	"league-digest/internal/model"
	"league-digest/internal/util"
)

type lokiSink struct {
	cfg    config.LokiConfig
	client *http.Client
}

func NewLoki(cfg config.LokiConfig) Sink {
	to := cfg.Timeout
	if to == 0 {
		to = 10 * time.Second
	}
	return &lokiSink{cfg: cfg, client: util.NewHTTPClient(to)}
}

func (l *lokiSink) Name() string { return "loki" }

// Push writes one log line per event, streamed by event kind.
func (l *lokiSink) Push(ctx context.Context, d model.Digest) error {
	if len(d.Events) == 0 {
		return nil
	}

	type stream struct {
		Stream map[string]string `json:"stream"`
		Values [][2]string       `json:"values"`
	}
	payload := struct {
		Streams []stream `json:"streams"`
	}{}
	byKind := map[model.EventKind]int{}
	for _, e := range d.Events {
		line, err := json.Marshal(map[string]any{
			"run_id":    d.RunID.String(),
			"team":      e.ActorDisplay,
			"managers":  e.Managers,
			"narrative": activity.StripEmphasis(e.Narrative),
			"bid":       e.Bid,
			"added":     e.Added,
			"dropped":   e.Dropped,
			"when":      e.Timestamp.Format(time.RFC3339),
		})
		if err != nil {
			return fmt.Errorf("marshal loki line: %w", err)
		}
		// Loki expects ns timestamp as a decimal string
		value := [2]string{fmt.Sprintf("%d", e.Timestamp.UnixNano()), string(line)}

		idx, ok := byKind[e.Kind]
		if !ok {
			idx = len(payload.Streams)
			byKind[e.Kind] = idx
			payload.Streams = append(payload.Streams, stream{Stream: map[string]string{
				"job":    l.cfg.Job,
				"league": d.League,
				"kind":   string(e.Kind),
			}})
		}
		payload.Streams[idx].Values = append(payload.Streams[idx].Values, value)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(l.cfg.URL, "/")+"/loki/api/v1/push", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if l.cfg.TenantID != "" {
		req.Header.Set("X-Scope-OrgID", l.cfg.TenantID)
	}
	if ua := l.cfg.UserAgent; ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("loki push failed http %d", resp.StatusCode)
	}
	return nil
}
