package activity

import (
	"time"

	"league-digest/internal/model"
)

// BuildItem enriches a normalized action with its category and display strings.
func BuildItem(n NormalizedAction, category model.Category, ts time.Time) model.ActivityItem {
	return model.ActivityItem{
		Timestamp:      ts,
		ActorDisplay:   ActorDisplay(n.Actor),
		Managers:       Managers(n.Actor),
		SubjectDisplay: SubjectDisplay(n.Subject),
		ActionText:     n.ActionText,
		Bid:            n.Bid,
		Category:       category,
		Subject:        Describe(n.Subject),
	}
}

// buckets splits a group's items for dispatch. Waivers and roster moves land in other.
type buckets struct {
	adds, drops, trades, other []model.ActivityItem
}

func bucketize(items []model.ActivityItem) buckets {
	var b buckets
	for _, it := range items {
		switch it.Category {
		case model.CategoryAdds:
			b.adds = append(b.adds, it)
		case model.CategoryDrops:
			b.drops = append(b.drops, it)
		case model.CategoryTrades:
			b.trades = append(b.trades, it)
		default:
			b.other = append(b.other, it)
		}
	}
	return b
}
