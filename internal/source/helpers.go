package source

import (
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

// pickStr returns the first non-empty, trimmed value.
func pickStr(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// teamName prefers the league's team name; older seasons only carry location and nickname.
func teamName(t teamEntry) string {
	return pickStr(t.Name, strings.TrimSpace(t.Location+" "+t.Nickname), t.Abbrev)
}

// managerName is "First Last" when either part is known, else the display name.
func managerName(m member) string {
	return pickStr(strings.TrimSpace(m.FirstName+" "+m.LastName), m.DisplayName)
}

func defaultDur(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
