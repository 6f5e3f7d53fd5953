package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"league-digest/internal/activity"
	"league-digest/internal/config"
	"league-digest/internal/metrics"
	"league-digest/internal/model"
	"league-digest/internal/render"
	"league-digest/internal/sink"
	"league-digest/internal/source"
	"league-digest/internal/store"
)

const unknownLeague = "(league unavailable)"

// Runner performs one fetch, reconcile, render and deliver cycle per Run call.
type Runner struct {
	src      source.Source
	sinks    []sink.Sink
	renderer *render.Renderer
	cfg      config.DigestConfig
	loc      *time.Location
	limit    int
	debug    bool
	log      *slog.Logger
	now      func() time.Time
	observe  func(model.Digest)
}

type Option func(*Runner)

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithDebug dumps the raw activity to the configured dump path on every run.
func WithDebug(debug bool) Option {
	return func(r *Runner) { r.debug = debug }
}

func WithActivityLimit(n int) Option {
	return func(r *Runner) { r.limit = n }
}

// WithObserver is called with every rendered digest, before delivery.
func WithObserver(fn func(model.Digest)) Option {
	return func(r *Runner) { r.observe = fn }
}

func New(src source.Source, sinks []sink.Sink, cfg config.DigestConfig, opts ...Option) (*Runner, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 24 * time.Hour
	}
	r := &Runner{
		src:      src,
		sinks:    sinks,
		renderer: render.New(loc),
		cfg:      cfg,
		loc:      loc,
		limit:    300,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Run produces and delivers one digest. A failed fetch degrades to an empty digest;
// a failed delivery fails the run.
func (r *Runner) Run(ctx context.Context) (model.Digest, error) {
	start := time.Now()
	runID := uuid.New()
	log := r.log.With("run_id", runID.String(), "source", r.src.Name())
	defer func() { metrics.RunDuration.Observe(time.Since(start).Seconds()) }()

	now := r.now()
	since := now.Add(-r.cfg.Lookback)

	league, err := r.src.LeagueName(ctx)
	if err != nil {
		log.Error("league settings unavailable", "err", err)
		league = unknownLeague
	}

	groups, err := r.src.FetchRecentActivity(ctx, r.limit)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			metrics.RunsTotal.WithLabelValues("error").Inc()
			return model.Digest{}, ctxErr
		}
		metrics.FetchFailures.Inc()
		log.Error("fetch recent activity failed, continuing with no activity", "err", err)
		groups = nil
	}
	metrics.GroupsFetched.Add(float64(len(groups)))

	if r.debug {
		if err := store.SaveDump(r.cfg.DumpPath, groups); err != nil {
			log.Warn("write raw activity dump", "path", r.cfg.DumpPath, "err", err)
		} else {
			log.Info("raw activity dumped", "path", r.cfg.DumpPath, "groups", len(groups))
		}
	}

	events := activity.ReconcileAll(groups, since, r.cfg.Workers)
	for _, ev := range events {
		metrics.EventsTotal.WithLabelValues(string(ev.Kind)).Inc()
	}

	d := model.Digest{
		RunID:       runID,
		League:      league,
		Title:       render.Title(league),
		Subject:     render.Subject(league),
		Window:      render.Window(r.cfg.Lookback, now, r.loc),
		GeneratedAt: now,
		Events:      events,
	}
	d.HTML, err = r.renderer.Render(events, d.Window, d.Title)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("error").Inc()
		return d, err
	}
	log.Info("digest rendered", "groups", len(groups), "events", len(events), "window", d.Window)
	if r.observe != nil {
		r.observe(d)
	}

	if err := r.deliver(ctx, log, d); err != nil {
		metrics.RunsTotal.WithLabelValues("error").Inc()
		return d, err
	}
	metrics.RunsTotal.WithLabelValues("ok").Inc()
	metrics.LastSuccess.Set(float64(r.now().Unix()))
	return d, nil
}

// deliver fans the digest out to every sink. All sinks are attempted; their errors are joined.
func (r *Runner) deliver(ctx context.Context, log *slog.Logger, d model.Digest) error {
	errs := make([]error, len(r.sinks))
	var g errgroup.Group
	for i, sk := range r.sinks {
		g.Go(func() error {
			if err := sk.Push(ctx, d); err != nil {
				metrics.SinkPushes.WithLabelValues(sk.Name(), "error").Inc()
				errs[i] = fmt.Errorf("push %s: %w", sk.Name(), err)
				log.Error("sink push failed", "sink", sk.Name(), "err", err)
				return nil
			}
			metrics.SinkPushes.WithLabelValues(sk.Name(), "ok").Inc()
			attrs := []any{"sink", sk.Name(), "events", len(d.Events)}
			if f, ok := sk.(interface{ Path() string }); ok {
				attrs = append(attrs, "path", f.Path())
			}
			log.Info("digest delivered", attrs...)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
