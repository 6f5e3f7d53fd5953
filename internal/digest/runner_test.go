package digest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"league-digest/internal/config"
	"league-digest/internal/metrics"
	"league-digest/internal/model"
	"league-digest/internal/sink"
	"league-digest/internal/store"
)

type fakeSource struct {
	league    string
	leagueErr error
	groups    []model.RawActivityGroup
	fetchErr  error
	gotLimit  int
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) LeagueName(context.Context) (string, error) { return f.league, f.leagueErr }

func (f *fakeSource) FetchRecentActivity(_ context.Context, limit int) ([]model.RawActivityGroup, error) {
	f.gotLimit = limit
	return f.groups, f.fetchErr
}

type recordingSink struct {
	name string
	err  error
	mu   sync.Mutex
	got  []model.Digest
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Push(_ context.Context, d model.Digest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, d)
	return s.err
}

type RunnerSuite struct {
	suite.Suite
	now  time.Time
	src  *fakeSource
	mail *recordingSink
	cfg  config.DigestConfig
}

func TestRunnerSuite(t *testing.T) {
	suite.Run(t, new(RunnerSuite))
}

func (s *RunnerSuite) SetupTest() {
	s.now = time.Date(2025, 10, 19, 14, 30, 0, 0, time.UTC)
	s.src = &fakeSource{
		league: "Sunday Scaries",
		groups: []model.RawActivityGroup{
			{Date: s.now.Add(-time.Hour).UnixMilli(), Actions: []any{
				[]any{"Team X", "DROPPED", "Player A", 0},
				[]any{"Team X", "WAIVER ADDED", "Player B", 15},
			}},
			{Date: s.now.Add(-48 * time.Hour).UnixMilli(), Actions: []any{
				[]any{"Team Y", "FA ADDED", "Too Old"},
			}},
		},
	}
	s.mail = &recordingSink{name: "gmail"}
	s.cfg = config.DigestConfig{
		Lookback: 24 * time.Hour,
		Timezone: "America/Chicago",
		DumpPath: filepath.Join(s.T().TempDir(), "debug", "raw.json"),
		Workers:  2,
	}
}

func (s *RunnerSuite) runner(sinks []sink.Sink, opts ...Option) *Runner {
	opts = append([]Option{
		WithClock(func() time.Time { return s.now }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	r, err := New(s.src, sinks, s.cfg, opts...)
	s.Require().NoError(err)
	return r
}

func (s *RunnerSuite) TestRunDeliversReconciledDigest() {
	var observed model.Digest
	okBefore := testutil.ToFloat64(metrics.RunsTotal.WithLabelValues("ok"))
	claimsBefore := testutil.ToFloat64(metrics.EventsTotal.WithLabelValues("claim"))

	d, err := s.runner([]sink.Sink{s.mail}, WithActivityLimit(50), WithObserver(func(d model.Digest) { observed = d })).
		Run(context.Background())
	s.Require().NoError(err)

	s.Equal(50, s.src.gotLimit)
	s.Require().Len(d.Events, 1)
	s.Equal("Dropped **Player A** to claim **Player B** for $15", d.Events[0].Narrative)
	s.Equal("ESPN Fantasy Football League: Sunday Scaries", d.Title)
	s.Equal("Daily Digest for ESPN Fantasy Football League: Sunday Scaries", d.Subject)
	s.Equal("(last 24h ending 2025-10-19 09:30 AM CDT)", d.Window)
	s.Contains(d.HTML, "Dropped <strong>Player A</strong> to claim <strong>Player B</strong> for $15")
	s.NotContains(d.HTML, "Too Old")

	s.Require().Len(s.mail.got, 1)
	s.Equal(d.RunID, s.mail.got[0].RunID)
	s.Equal(d.RunID, observed.RunID)

	s.Equal(okBefore+1, testutil.ToFloat64(metrics.RunsTotal.WithLabelValues("ok")))
	s.Equal(claimsBefore+1, testutil.ToFloat64(metrics.EventsTotal.WithLabelValues("claim")))
	s.Equal(float64(s.now.Unix()), testutil.ToFloat64(metrics.LastSuccess))
}

func (s *RunnerSuite) TestFetchFailureRendersNoActivity() {
	s.src.fetchErr = errors.New("upstream down")
	failuresBefore := testutil.ToFloat64(metrics.FetchFailures)

	d, err := s.runner([]sink.Sink{s.mail}).Run(context.Background())
	s.Require().NoError(err)

	s.Empty(d.Events)
	s.Contains(d.HTML, "No activity (last 24h ending 2025-10-19 09:30 AM CDT).")
	s.Len(s.mail.got, 1)
	s.Equal(failuresBefore+1, testutil.ToFloat64(metrics.FetchFailures))
}

func (s *RunnerSuite) TestLeagueNameFailureStillRuns() {
	s.src.leagueErr = errors.New("settings unavailable")

	d, err := s.runner([]sink.Sink{s.mail}).Run(context.Background())
	s.Require().NoError(err)
	s.Equal(unknownLeague, d.League)
	s.Len(d.Events, 1)
}

func (s *RunnerSuite) TestSinkFailureFailsRunButOthersDeliver() {
	broken := &recordingSink{name: "loki", err: errors.New("connection refused")}

	_, err := s.runner([]sink.Sink{broken, s.mail}).Run(context.Background())
	s.Require().Error(err)
	s.Contains(err.Error(), "push loki")
	s.Len(s.mail.got, 1)
	s.Len(broken.got, 1)
}

func (s *RunnerSuite) TestDebugDumpsRawActivity() {
	_, err := s.runner([]sink.Sink{s.mail}, WithDebug(true)).Run(context.Background())
	s.Require().NoError(err)

	_, statErr := os.Stat(s.cfg.DumpPath)
	s.Require().NoError(statErr)
	groups, err := store.LoadDump(s.cfg.DumpPath)
	s.Require().NoError(err)
	s.Len(groups, 2)
}

func (s *RunnerSuite) TestCancelledFetchAbortsRun() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.src.fetchErr = context.Canceled

	_, err := s.runner([]sink.Sink{s.mail}).Run(ctx)
	s.Require().ErrorIs(err, context.Canceled)
	s.Empty(s.mail.got)
}

func (s *RunnerSuite) TestUnknownTimezone() {
	s.cfg.Timezone = "Mars/Olympus"
	_, err := New(s.src, nil, s.cfg)
	s.Error(err)
}
