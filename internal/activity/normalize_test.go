package activity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"league-digest/internal/model"
)

func TestNormalize(t *testing.T) {
	team := &model.Team{Name: "Team Alpha"}
	player := &model.Player{ID: 42, FullName: "Player B"}

	tests := []struct {
		name string
		raw  any
		want NormalizedAction
	}{
		{
			name: "three element sequence has no bid",
			raw:  []any{team, "FA ADDED", player},
			want: NormalizedAction{Actor: team, ActionText: "fa added", Subject: player, Shape: ShapeSequence},
		},
		{
			name: "four element sequence carries bid",
			raw:  []any{team, "WAIVER ADDED", player, 15},
			want: NormalizedAction{Actor: team, ActionText: "waiver added", Subject: player, Bid: 15, HasBid: true, Shape: ShapeSequence},
		},
		{
			name: "float bid from decoded json is rounded",
			raw:  []any{"Team Alpha", "WAIVER ADDED", "Player B", float64(12)},
			want: NormalizedAction{Actor: "Team Alpha", ActionText: "waiver added", Subject: "Player B", Bid: 12, HasBid: true, Shape: ShapeSequence},
		},
		{
			name: "string sequence",
			raw:  []string{"Team Alpha", "Dropped", "Player A"},
			want: NormalizedAction{Actor: "Team Alpha", ActionText: "dropped", Subject: "Player A", Shape: ShapeSequence},
		},
		{
			name: "mapping with bid",
			raw:  map[string]any{"team": team, "action": "TRADED", "player": player, "bid": json.Number("4")},
			want: NormalizedAction{Actor: team, ActionText: "traded", Subject: player, Bid: 4, HasBid: true, Shape: ShapeMapping},
		},
		{
			name: "mapping with zero bid falls back to amount",
			raw:  map[string]any{"team": "Team Alpha", "action": "waiver added", "player": "Player B", "bid": 0, "amount": "$9"},
			want: NormalizedAction{Actor: "Team Alpha", ActionText: "waiver added", Subject: "Player B", Bid: 9, HasBid: true, Shape: ShapeMapping},
		},
		{
			name: "mapping without action has empty text",
			raw:  map[string]any{"team": "Team Alpha", "player": "Player B"},
			want: NormalizedAction{Actor: "Team Alpha", Subject: "Player B", Shape: ShapeMapping},
		},
		{
			name: "short sequence degrades to fallback",
			raw:  []any{"Team Alpha", "ADDED"},
			want: NormalizedAction{ActionText: "[team alpha added]", Subject: []any{"Team Alpha", "ADDED"}, Shape: ShapeFallback},
		},
		{
			name: "opaque value degrades to fallback",
			raw:  "Moved To IR",
			want: NormalizedAction{ActionText: "moved to ir", Subject: "Moved To IR", Shape: ShapeFallback},
		},
		{
			name: "nil degrades to fallback",
			raw:  nil,
			want: NormalizedAction{Shape: ShapeFallback},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want model.Category
	}{
		{"traded", model.CategoryTrades},
		{"trade accepted, dropped", model.CategoryTrades},
		{"dropped", model.CategoryDrops},
		{"drop, then add", model.CategoryDrops},
		{"fa added", model.CategoryAdds},
		{"waiver added", model.CategoryAdds},
		{"WAIVER ADDED", model.CategoryAdds},
		{"waiver processed", model.CategoryWaivers},
		{"claim pending", model.CategoryWaivers},
		{"moved to bench", model.CategoryRosterMoves},
		{"activated", model.CategoryRosterMoves},
		{"placed on reserve", model.CategoryRosterMoves},
		{"lineup locked", model.CategoryOther},
		{"", model.CategoryOther},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.text))
		})
	}
}
