package activity

import (
	"strings"

	"league-digest/internal/model"
)

// keywordRule assigns a category when any of its words occurs in the action text.
type keywordRule struct {
	category model.Category
	words    []string
}

// Evaluated in order; the first match wins because texts like "traded, dropped"
// contain several keywords.
var classifyRules = []keywordRule{
	{category: model.CategoryTrades, words: []string{"trade", "traded"}},
	{category: model.CategoryDrops, words: []string{"drop", "dropped"}},
	{category: model.CategoryAdds, words: []string{"add"}},
	{category: model.CategoryWaivers, words: []string{"waiver", "claim"}},
	{category: model.CategoryRosterMoves, words: []string{"move", "activated", "reserve"}},
}

// Classify maps a free-text action description to its category.
func Classify(actionText string) model.Category {
	lc := strings.ToLower(actionText)
	for _, r := range classifyRules {
		for _, w := range r.words {
			if strings.Contains(lc, w) {
				return r.category
			}
		}
	}
	return model.CategoryOther
}
