package activity

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Shape records which branch of Normalize produced a NormalizedAction.
type Shape int

const (
	ShapeSequence Shape = iota
	ShapeMapping
	ShapeFallback
)

func (s Shape) String() string {
	switch s {
	case ShapeSequence:
		return "sequence"
	case ShapeMapping:
		return "mapping"
	default:
		return "fallback"
	}
}

// NormalizedAction is the canonical (actor, action, subject, bid) tuple.
// Actor and Subject are opaque references described later by the item builder.
type NormalizedAction struct {
	Actor      any
	ActionText string // lowercased
	Subject    any
	Bid        int
	HasBid     bool
	Shape      Shape
}

// Normalize converts one raw action of unknown shape. It never fails: anything that is
// neither a sequence of at least three elements nor a mapping degrades to ShapeFallback.
func Normalize(raw any) NormalizedAction {
	switch r := raw.(type) {
	case []any:
		if len(r) >= 3 {
			n := NormalizedAction{
				Actor:      r[0],
				ActionText: strings.ToLower(text(r[1])),
				Subject:    r[2],
				Shape:      ShapeSequence,
			}
			if len(r) >= 4 {
				n.Bid, n.HasBid = toInt(r[3])
			}
			return n
		}
	case []string:
		if len(r) >= 3 {
			seq := make([]any, len(r))
			for i, s := range r {
				seq[i] = s
			}
			return Normalize(seq)
		}
	case map[string]any:
		return fromMapping(r)
	case map[string]string:
		m := make(map[string]any, len(r))
		for k, v := range r {
			m[k] = v
		}
		return fromMapping(m)
	}
	return NormalizedAction{
		ActionText: strings.ToLower(text(raw)),
		Subject:    raw,
		Shape:      ShapeFallback,
	}
}

func fromMapping(m map[string]any) NormalizedAction {
	n := NormalizedAction{
		Actor:      m["team"],
		ActionText: strings.ToLower(text(m["action"])),
		Subject:    m["player"],
		Shape:      ShapeMapping,
	}
	// A zero bid falls through to "amount".
	if bid, ok := toInt(m["bid"]); ok && bid != 0 {
		n.Bid, n.HasBid = bid, true
	} else if amt, ok := toInt(m["amount"]); ok {
		n.Bid, n.HasBid = amt, true
	}
	return n
}

// text stringifies an opaque value; nil becomes "".
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float32:
		return int(math.Round(float64(n))), true
	case float64:
		return int(math.Round(n)), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		if f, err := n.Float64(); err == nil {
			return int(math.Round(f)), true
		}
	case string:
		s := strings.TrimPrefix(strings.TrimSpace(n), "$")
		if i, err := strconv.Atoi(s); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(math.Round(f)), true
		}
	}
	return 0, false
}
