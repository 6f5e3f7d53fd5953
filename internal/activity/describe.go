package activity

import (
	"regexp"
	"strings"

	"league-digest/internal/model"
)

// Capabilities a source's actor and subject values may expose. model.Team and
// model.Player implement them; map[string]any references are probed by key instead.

type TeamNamer interface{ TeamName() string }

type TeamAbbrever interface{ TeamAbbrev() string }

type Managed interface{ ManagerNames() []string }

type Namer interface{ Name() string }

type Positioner interface{ Position() string }

type ProTeamer interface{ ProTeam() string }

type Identified interface{ PlayerID() (int, bool) }

// dstMarker flags defense/special-teams units, whose names already carry the team.
const dstMarker = "D/ST"

var emphasisRe = regexp.MustCompile(`\*\*|<[^>]+>`)

// StripEmphasis removes emphasis markup (** pairs and simple HTML tags).
func StripEmphasis(s string) string {
	return emphasisRe.ReplaceAllString(s, "")
}

// Emphasize wraps s in emphasis markup.
func Emphasize(s string) string {
	return "**" + s + "**"
}

// ActorDisplay resolves the team name, then the abbreviation, then a plain string.
func ActorDisplay(ref any) string {
	if s, _ := probe(ref, "team_name", TeamNamer.TeamName); s != "" {
		return s
	}
	if s, _ := probe(ref, "team_abbrev", TeamAbbrever.TeamAbbrev); s != "" {
		return s
	}
	return text(ref)
}

// Managers returns the owner names of an actor, deduplicated, or nil.
func Managers(ref any) []string {
	var names []string
	switch r := ref.(type) {
	case Managed:
		names = r.ManagerNames()
	case map[string]any:
		if arr, ok := r["owners"].([]any); ok {
			for _, v := range arr {
				names = append(names, text(v))
			}
		}
	}
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SubjectDisplay renders "Name (POS, TEAM)". D/ST units and subjects without a
// position or affiliation keep the bare name.
func SubjectDisplay(ref any) string {
	name, ok := subjectName(ref)
	if !ok {
		return text(ref)
	}
	if strings.Contains(name, dstMarker) {
		return name
	}
	var extras []string
	for _, p := range []string{position(ref), proTeam(ref)} {
		if p != "" {
			extras = append(extras, p)
		}
	}
	if len(extras) == 0 {
		return name
	}
	return name + " (" + strings.Join(extras, ", ") + ")"
}

// Describe builds the identity metadata for a subject reference.
func Describe(ref any) model.SubjectInfo {
	info := model.SubjectInfo{
		Position:    position(ref),
		Affiliation: proTeam(ref),
		DisplayName: StripEmphasis(SubjectDisplay(ref)),
	}
	if id, ok := playerID(ref); ok {
		info.ID = &id
	}
	return info
}

func subjectName(ref any) (string, bool) { return probe(ref, "name", Namer.Name) }

func position(ref any) string {
	s, _ := probe(ref, "position", Positioner.Position)
	return s
}

func proTeam(ref any) string {
	s, _ := probe(ref, "proTeam", ProTeamer.ProTeam)
	return s
}

func playerID(ref any) (int, bool) {
	switch r := ref.(type) {
	case Identified:
		return r.PlayerID()
	case map[string]any:
		return toInt(r["playerId"])
	}
	return 0, false
}

// probe tries the typed capability C first, then the mapping key.
func probe[C any](ref any, key string, get func(C) string) (string, bool) {
	if ref == nil {
		return "", false
	}
	if c, ok := ref.(C); ok {
		return get(c), true
	}
	if m, ok := ref.(map[string]any); ok {
		if v, ok := m[key]; ok {
			return text(v), true
		}
	}
	return "", false
}
