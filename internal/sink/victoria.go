package sink

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"league-digest/internal/config"
	"league-digest/internal/model"
	"league-digest/internal/util"
)

const transactionsMetric = "league_digest_transactions_total"

type victoriaSink struct {
	cfg    config.VictoriaConfig
	client *http.Client
}

func NewVictoria(cfg config.VictoriaConfig) (Sink, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("victoria: url is required")
	}
	to := cfg.Timeout
	if to == 0 {
		to = 10 * time.Second
	}
	return &victoriaSink{
		cfg:    cfg,
		client: util.NewHTTPClient(to),
	}, nil
}

func (v *victoriaSink) Name() string { return "victoria" }

// Push imports one sample per (team, kind) counting this run's events, stamped with the
// digest generation time.
func (v *victoriaSink) Push(ctx context.Context, d model.Digest) error {
	if len(d.Events) == 0 {
		return nil
	}
	body := transactionSamples(d)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(v.cfg.URL, "/")+"/api/v1/import/prometheus", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")
	if ua := v.cfg.UserAgent; ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("victoria push failed: %s", resp.Status)
	}
	return nil
}

func transactionSamples(d model.Digest) []byte {
	type key struct{ team, kind string }
	groups := map[key]int{}
	for _, ev := range d.Events {
		groups[key{ev.ActorDisplay, string(ev.Kind)}]++
	}
	keys := make([]key, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	// deterministic ordering for cache friendliness
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].team != keys[j].team {
			return keys[i].team < keys[j].team
		}
		return keys[i].kind < keys[j].kind
	})

	ts := d.GeneratedAt.UnixMilli()
	var buf bytes.Buffer
	for _, k := range keys {
		fmt.Fprintf(&buf, "%s{league=\"%s\",team=\"%s\",kind=\"%s\"} %d %d\n",
			transactionsMetric, escape(d.League), escape(k.team), escape(k.kind), groups[k], ts)
	}
	return buf.Bytes()
}

func escape(s string) string {
	// minimal escape for label values
	res := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '"':
			res = append(res, '\\', '"')
		case '\\':
			res = append(res, '\\', '\\')
		case '\n':
			res = append(res, '\\', 'n')
		default:
			res = append(res, r)
		}
	}
	return string(res)
}
