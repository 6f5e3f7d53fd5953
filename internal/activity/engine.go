package activity

import (
	"cmp"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"league-digest/internal/model"
)

// ReconcileAll reconciles every group and returns the events in digest order. Groups
// share no state, so up to workers of them are reconciled concurrently; workers <= 0
// means one goroutine per group.
func ReconcileAll(groups []model.RawActivityGroup, since time.Time, workers int) []model.CombinedEvent {
	if len(groups) == 0 {
		return nil
	}
	perGroup := make([][]model.CombinedEvent, len(groups))

	var g errgroup.Group
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, grp := range groups {
		g.Go(func() error {
			perGroup[i] = ReconcileGroup(grp, since)
			return nil
		})
	}
	_ = g.Wait()

	var out []model.CombinedEvent
	for _, evs := range perGroup {
		out = append(out, evs...)
	}
	Sort(out)
	return out
}

// Sort orders events by timestamp, then highest bid, then team, then narrative.
func Sort(events []model.CombinedEvent) {
	slices.SortStableFunc(events, compareEvents)
}

func compareEvents(a, b model.CombinedEvent) int {
	if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Bid, a.Bid); c != 0 {
		return c
	}
	if c := cmp.Compare(a.ActorDisplay, b.ActorDisplay); c != 0 {
		return c
	}
	return cmp.Compare(a.Narrative, b.Narrative)
}
