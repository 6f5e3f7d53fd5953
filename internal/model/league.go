package model

// Team is a league franchise as resolved by a source.
type Team struct {
	ID     int      `json:"team_id"`
	Name   string   `json:"team_name"`
	Abbrev string   `json:"team_abbrev"`
	Owners []string `json:"owners,omitempty"`
}

func (t *Team) TeamName() string {
	if t == nil {
		return ""
	}
	return t.Name
}

func (t *Team) TeamAbbrev() string {
	if t == nil {
		return ""
	}
	return t.Abbrev
}

func (t *Team) ManagerNames() []string {
	if t == nil {
		return nil
	}
	return t.Owners
}

func (t *Team) String() string {
	if t == nil {
		return ""
	}
	if t.Name != "" {
		return t.Name
	}
	return t.Abbrev
}

// Player is a roster asset. D/ST units carry the "D/ST" marker in FullName.
type Player struct {
	ID       int    `json:"playerId"`
	FullName string `json:"name"`
	Pos      string `json:"position"`
	Pro      string `json:"proTeam"` // pro team abbreviation, e.g. "KC"
}

func (p *Player) Name() string {
	if p == nil {
		return ""
	}
	return p.FullName
}

func (p *Player) Position() string {
	if p == nil {
		return ""
	}
	return p.Pos
}

func (p *Player) ProTeam() string {
	if p == nil {
		return ""
	}
	return p.Pro
}

func (p *Player) PlayerID() (int, bool) {
	if p == nil || p.ID == 0 {
		return 0, false
	}
	return p.ID, true
}

func (p *Player) String() string { return p.Name() }
