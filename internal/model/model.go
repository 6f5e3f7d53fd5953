package model

import (
	"time"

	"github.com/google/uuid"
)

// RawActivityGroup is one entry of the league's recent activity feed: every action the
// source reported under a single timestamp.
type RawActivityGroup struct {
	Date    int64 `json:"date"`    // epoch milliseconds
	Actions []any `json:"actions"` // sequence, mapping or opaque values
}

// Time returns the group timestamp in UTC.
func (g RawActivityGroup) Time() time.Time {
	return time.UnixMilli(g.Date).UTC()
}

// Category is the fixed classification of an action description.
type Category string

const (
	CategoryAdds        Category = "Adds"
	CategoryDrops       Category = "Drops"
	CategoryTrades      Category = "Trades"
	CategoryWaivers     Category = "Waivers"
	CategoryRosterMoves Category = "Roster Moves"
	CategoryOther       Category = "Other"
)

// SubjectInfo identifies the roster asset of an action. The zero value is the empty
// placeholder used for an unused added/dropped slot.
type SubjectInfo struct {
	ID          *int   `json:"player_id"`
	Position    string `json:"position"`
	Affiliation string `json:"pro_team"`
	DisplayName string `json:"name"`
}

// IsEmpty reports whether s is the empty placeholder.
func (s SubjectInfo) IsEmpty() bool {
	return s.ID == nil && s.Position == "" && s.Affiliation == "" && s.DisplayName == ""
}

// ActivityItem is one classified action with its display strings resolved.
type ActivityItem struct {
	Timestamp      time.Time
	ActorDisplay   string
	Managers       []string
	SubjectDisplay string
	ActionText     string
	Bid            int
	Category       Category
	Subject        SubjectInfo
}

// EventKind tags how a CombinedEvent was produced.
type EventKind string

const (
	KindClaim EventKind = "claim" // waiver claim paired with a drop, or a bare claim
	KindSwap  EventKind = "swap"  // free-agent add paired with a drop
	KindTrade EventKind = "trade"
	KindAdd   EventKind = "add"
	KindDrop  EventKind = "drop"
	KindOther EventKind = "other"
)

// CombinedEvent is one narrated transaction, the unit renderers and sinks consume.
// Added and Dropped are always set; an unused slot holds the empty SubjectInfo.
type CombinedEvent struct {
	Timestamp    time.Time   `json:"when_utc"`
	ActorDisplay string      `json:"team"`
	Managers     []string    `json:"managers,omitempty"`
	Narrative    string      `json:"narrative"`
	Bid          int         `json:"bid"`
	Kind         EventKind   `json:"kind"`
	Items        int         `json:"items"`
	Added        SubjectInfo `json:"added_player"`
	Dropped      SubjectInfo `json:"dropped_player"`
}

// Digest is a rendered run result handed to sinks.
type Digest struct {
	RunID       uuid.UUID
	League      string
	Title       string
	Subject     string
	Window      string
	GeneratedAt time.Time
	Events      []CombinedEvent
	HTML        string
}
