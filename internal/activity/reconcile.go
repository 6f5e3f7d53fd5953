package activity

import (
	"fmt"
	"strings"
	"time"

	"league-digest/internal/model"
)

// ReconcileGroup turns the actions reported under one activity timestamp into narrated
// events. Groups older than since, or without actions, yield nothing. Every item built
// from the group is folded into exactly one returned event.
func ReconcileGroup(g model.RawActivityGroup, since time.Time) []model.CombinedEvent {
	ts := g.Time()
	if ts.Before(since) || len(g.Actions) == 0 {
		return nil
	}

	items := make([]model.ActivityItem, 0, len(g.Actions))
	for _, raw := range g.Actions {
		n := Normalize(raw)
		items = append(items, BuildItem(n, Classify(n.ActionText), ts))
	}
	b := bucketize(items)

	switch {
	case len(b.adds) > 0 && len(b.drops) > 0:
		out := pairAddsDrops(b.adds, b.drops)
		out = append(out, reconcileTrades(b.trades)...)
		return append(out, singles(b.other)...)
	case len(b.trades) > 0:
		out := reconcileTrades(b.trades)
		out = append(out, singles(b.adds)...)
		out = append(out, singles(b.drops)...)
		return append(out, singles(b.other)...)
	default:
		out := singles(b.adds)
		out = append(out, singles(b.drops)...)
		return append(out, singles(b.other)...)
	}
}

// pairAddsDrops pairs each drop, in order, with the first unused add. Leftover adds and
// then leftover drops are narrated on their own.
func pairAddsDrops(adds, drops []model.ActivityItem) []model.CombinedEvent {
	usedAdd := make([]bool, len(adds))
	pairedDrop := make([]bool, len(drops))
	out := make([]model.CombinedEvent, 0, max(len(adds), len(drops)))

	for di, drop := range drops {
		for ai, add := range adds {
			if usedAdd[ai] {
				continue
			}
			usedAdd[ai] = true
			pairedDrop[di] = true
			out = append(out, pair(drop, add))
			break
		}
	}

	var rest []model.ActivityItem
	for ai, add := range adds {
		if !usedAdd[ai] {
			rest = append(rest, add)
		}
	}
	for di, drop := range drops {
		if !pairedDrop[di] {
			rest = append(rest, drop)
		}
	}
	return append(out, singles(rest)...)
}

func pair(drop, add model.ActivityItem) model.CombinedEvent {
	ev := model.CombinedEvent{
		Timestamp:    add.Timestamp,
		ActorDisplay: add.ActorDisplay,
		Managers:     add.Managers,
		Items:        2,
		Added:        add.Subject,
		Dropped:      drop.Subject,
	}
	if strings.Contains(add.ActionText, "waiver") {
		ev.Narrative = fmt.Sprintf("Dropped %s to claim %s for $%d",
			Emphasize(drop.SubjectDisplay), Emphasize(add.SubjectDisplay), add.Bid)
		ev.Bid = add.Bid
		ev.Kind = model.KindClaim
		return ev
	}
	ev.Narrative = fmt.Sprintf("Dropped %s for %s",
		Emphasize(drop.SubjectDisplay), Emphasize(add.SubjectDisplay))
	ev.Bid = max(add.Bid, drop.Bid)
	ev.Kind = model.KindSwap
	return ev
}

// reconcileTrades narrates trade items grouped by actor. Two actors produce one event
// per side; with more, the first two encountered actors are the sides and the rest are
// narrated without a counterpart.
func reconcileTrades(trades []model.ActivityItem) []model.CombinedEvent {
	if len(trades) == 0 {
		return nil
	}
	if len(trades) == 1 {
		t := trades[0]
		return []model.CombinedEvent{{
			Timestamp:    t.Timestamp,
			ActorDisplay: t.ActorDisplay,
			Managers:     t.Managers,
			Narrative:    "Traded " + Emphasize(t.SubjectDisplay),
			Bid:          t.Bid,
			Kind:         model.KindTrade,
			Items:        1,
			Added:        t.Subject,
		}}
	}

	var actors []string
	byActor := make(map[string][]model.ActivityItem)
	maxBid := 0
	for _, t := range trades {
		if _, ok := byActor[t.ActorDisplay]; !ok {
			actors = append(actors, t.ActorDisplay)
		}
		byActor[t.ActorDisplay] = append(byActor[t.ActorDisplay], t)
		maxBid = max(maxBid, t.Bid)
	}

	if len(actors) == 1 {
		return []model.CombinedEvent{tradeEvent(byActor[actors[0]], nil, maxBid)}
	}

	a, b := byActor[actors[0]], byActor[actors[1]]
	out := []model.CombinedEvent{
		tradeEvent(a, b, maxBid),
		tradeEvent(b, a, maxBid),
	}
	for _, actor := range actors[2:] {
		out = append(out, tradeEvent(byActor[actor], nil, maxBid))
	}
	return out
}

func tradeEvent(own, other []model.ActivityItem, bid int) model.CombinedEvent {
	first := own[0]
	narrative := "Traded " + emphasizeAll(own)
	if len(other) > 0 {
		narrative += " for " + emphasizeAll(other)
	}
	return model.CombinedEvent{
		Timestamp:    first.Timestamp,
		ActorDisplay: first.ActorDisplay,
		Managers:     first.Managers,
		Narrative:    narrative,
		Bid:          bid,
		Kind:         model.KindTrade,
		Items:        len(own),
		Added:        first.Subject,
	}
}

func emphasizeAll(items []model.ActivityItem) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = Emphasize(it.SubjectDisplay)
	}
	return strings.Join(parts, ", ")
}

func singles(items []model.ActivityItem) []model.CombinedEvent {
	if len(items) == 0 {
		return nil
	}
	out := make([]model.CombinedEvent, 0, len(items))
	for _, it := range items {
		out = append(out, single(it))
	}
	return out
}

// single narrates one unpaired item and places its subject in the dropped slot when the
// item reads as a drop, otherwise in the added slot.
func single(it model.ActivityItem) model.CombinedEvent {
	narrative, kind := Phrase(it)
	ev := model.CombinedEvent{
		Timestamp:    it.Timestamp,
		ActorDisplay: it.ActorDisplay,
		Managers:     it.Managers,
		Narrative:    narrative,
		Bid:          it.Bid,
		Kind:         kind,
		Items:        1,
	}
	if strings.HasPrefix(narrative, "Dropped") || strings.Contains(it.ActionText, "drop") {
		ev.Dropped = it.Subject
	} else {
		ev.Added = it.Subject
	}
	return ev
}

// Phrase renders an individual item. Texts with no dedicated phrasing pass through.
func Phrase(it model.ActivityItem) (string, model.EventKind) {
	subject := Emphasize(it.SubjectDisplay)
	waiverAdded := strings.Contains(strings.ToLower(it.ActionText), "waiver added")
	switch {
	case waiverAdded && it.Category != model.CategoryDrops:
		return fmt.Sprintf("Claimed %s for $%d", subject, it.Bid), model.KindClaim
	case it.Category == model.CategoryAdds:
		return "Added " + subject, model.KindAdd
	case it.Category == model.CategoryDrops:
		return "Dropped " + subject, model.KindDrop
	default:
		return it.ActionText, model.KindOther
	}
}
