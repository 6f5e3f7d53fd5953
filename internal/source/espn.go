package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"league-digest/internal/config"
	"league-digest/internal/metrics"
	"league-digest/internal/model"
	"league-digest/internal/store"
	"league-digest/internal/util"
)

// Transaction message types of the league communication feed.
const (
	msgFreeAgentAdded = 178
	msgDropped        = 179
	msgWaiverAdded    = 180
	msgDroppedWaiver  = 181
	msgDroppedTrade   = 239
	msgTraded         = 244
)

var activityActions = map[int]string{
	msgFreeAgentAdded: "FA ADDED",
	msgWaiverAdded:    "WAIVER ADDED",
	msgDropped:        "DROPPED",
	msgDroppedWaiver:  "DROPPED",
	msgDroppedTrade:   "DROPPED",
	msgTraded:         "TRADED",
}

var positions = map[int]string{1: "QB", 2: "RB", 3: "WR", 4: "TE", 5: "K", 16: "D/ST"}

var proTeams = map[int]string{
	1: "ATL", 2: "BUF", 3: "CHI", 4: "CIN", 5: "CLE", 6: "DAL", 7: "DEN", 8: "DET",
	9: "GB", 10: "TEN", 11: "IND", 12: "KC", 13: "LV", 14: "LAR", 15: "MIA", 16: "MIN",
	17: "NE", 18: "NO", 19: "NYG", 20: "NYJ", 21: "PHI", 22: "ARI", 23: "PIT", 24: "LAC",
	25: "SF", 26: "SEA", 27: "TB", 28: "WSH", 29: "CAR", 30: "JAX", 33: "BAL", 34: "HOU",
}

type espnSource struct {
	league  config.LeagueConfig
	cfg     config.SourceConfig
	client  *http.Client
	log     *slog.Logger
	leagues *store.Cache[leagueDirectory]
	players *store.Cache[map[int]*model.Player]
}

type leagueDirectory struct {
	Name  string
	Teams map[int]*model.Team
}

func NewESPNSource(league config.LeagueConfig, cfg config.SourceConfig, logger *slog.Logger) *espnSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &espnSource{
		league:  league,
		cfg:     cfg,
		client:  util.NewHTTPClient(defaultDur(cfg.HTTP.Timeout, defaultTimeout)),
		log:     logger.With("source", "espn"),
		leagues: store.NewCache[leagueDirectory](cfg.CacheMaxKeys, cfg.CacheTTL),
		players: store.NewCache[map[int]*model.Player](cfg.CacheMaxKeys, cfg.CacheTTL),
	}
}

func (e *espnSource) Name() string { return "espn" }

func (e *espnSource) LeagueName(ctx context.Context) (string, error) {
	dir, err := e.directory(ctx)
	if err != nil {
		return "", err
	}
	return dir.Name, nil
}

// FetchRecentActivity reads the newest transaction topics. Each topic becomes one group
// whose actions are []any{*model.Team, action, *model.Player, bid}.
func (e *espnSource) FetchRecentActivity(ctx context.Context, limit int) ([]model.RawActivityGroup, error) {
	if limit <= 0 {
		limit = e.cfg.ActivityLimit
	}
	dir, err := e.directory(ctx)
	if err != nil {
		return nil, err
	}
	players, err := e.playerDirectory(ctx)
	if err != nil {
		return nil, err
	}

	filter := map[string]any{
		"topics": map[string]any{
			"filterType":                  map[string]any{"value": []string{"ACTIVITY_TRANSACTIONS"}},
			"limit":                       limit,
			"limitPerMessageSet":          map[string]any{"value": 25},
			"offset":                      0,
			"sortMessageDate":             map[string]any{"sortPriority": 1, "sortAsc": false},
			"sortFor":                     map[string]any{"sortPriority": 2, "sortAsc": false},
			"filterIncludeMessageTypeIds": map[string]any{"value": []int{msgFreeAgentAdded, msgWaiverAdded, msgDropped, msgDroppedTrade, msgDroppedWaiver, msgTraded}},
		},
	}
	var resp communicationResponse
	q := url.Values{"view": {"kona_league_communication"}}
	if err := e.getJSON(ctx, "kona_league_communication", e.leagueURL()+"/communication/?"+q.Encode(), filter, &resp); err != nil {
		return nil, err
	}

	groups := make([]model.RawActivityGroup, 0, len(resp.Topics))
	for _, topic := range resp.Topics {
		g := model.RawActivityGroup{Date: topic.Date, Actions: make([]any, 0, len(topic.Messages))}
		for _, msg := range topic.Messages {
			g.Actions = append(g.Actions, []any{
				dir.team(msg.actorID()),
				msg.action(),
				playerOrPlaceholder(players, msg.TargetID),
				msg.BidAmount,
			})
		}
		groups = append(groups, g)
	}
	e.log.Debug("fetched recent activity", "topics", len(groups), "limit", limit)
	return groups, nil
}

func (e *espnSource) directory(ctx context.Context) (leagueDirectory, error) {
	key := fmt.Sprintf("league:%d:%d", e.league.LeagueID, e.league.Year)
	return e.leagues.GetOrLoad(key, func() (leagueDirectory, error) {
		var resp leagueResponse
		q := url.Values{"view": {"mSettings", "mTeam"}}
		if err := e.getJSON(ctx, "mTeam", e.leagueURL()+"?"+q.Encode(), nil, &resp); err != nil {
			return leagueDirectory{}, err
		}
		return resp.directory(), nil
	})
}

func (e *espnSource) playerDirectory(ctx context.Context) (map[int]*model.Player, error) {
	key := fmt.Sprintf("players:%d", e.league.Year)
	return e.players.GetOrLoad(key, func() (map[int]*model.Player, error) {
		var resp []playerEntry
		filter := map[string]any{"filterActive": map[string]any{"value": true}}
		endpoint := fmt.Sprintf("%s/apis/v3/games/ffl/seasons/%d/players?view=players_wl", e.baseURL(), e.league.Year)
		if err := e.getJSON(ctx, "players_wl", endpoint, filter, &resp); err != nil {
			return nil, err
		}
		out := make(map[int]*model.Player, len(resp))
		for _, p := range resp {
			out[p.ID] = &model.Player{
				ID:       p.ID,
				FullName: p.FullName,
				Pos:      positions[p.DefaultPositionID],
				Pro:      proTeams[p.ProTeamID],
			}
		}
		e.log.Debug("loaded player directory", "players", len(out))
		return out, nil
	})
}

func (e *espnSource) baseURL() string {
	base := strings.TrimRight(e.cfg.BaseURL, "/")
	if base == "" {
		base = "https://lm-api-reads.fantasy.espn.com"
	}
	return base
}

func (e *espnSource) leagueURL() string {
	return fmt.Sprintf("%s/apis/v3/games/ffl/seasons/%d/segments/0/leagues/%d", e.baseURL(), e.league.Year, e.league.LeagueID)
}

// getJSON issues a GET with retries. filter, when set, is sent as the x-fantasy-filter header.
func (e *espnSource) getJSON(ctx context.Context, view, endpoint string, filter any, out any) error {
	var filterHdr string
	if filter != nil {
		b, err := json.Marshal(filter)
		if err != nil {
			return fmt.Errorf("marshal filter: %w", err)
		}
		filterHdr = string(b)
	}

	attempt := 0
	err := util.Retry(ctx, e.cfg.MaxRetries, e.cfg.Backoff, e.cfg.MaxBackoff, func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return util.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		if filterHdr != "" {
			req.Header.Set("x-fantasy-filter", filterHdr)
		}
		if ua := e.cfg.HTTP.UserAgent; ua != "" {
			req.Header.Set("User-Agent", ua)
		}
		if e.league.SWID != "" {
			req.AddCookie(&http.Cookie{Name: "SWID", Value: e.league.SWID})
		}
		if e.league.ESPNS2 != "" {
			req.AddCookie(&http.Cookie{Name: "espn_s2", Value: e.league.ESPNS2})
		}

		resp, err := e.client.Do(req)
		if err != nil {
			metrics.SourceRequests.WithLabelValues(view, "error").Inc()
			e.log.Warn("league request failed", "view", view, "attempt", attempt, "err", err)
			return err
		}
		defer resp.Body.Close()
		metrics.SourceRequests.WithLabelValues(view, strconv.Itoa(resp.StatusCode)).Inc()
		if err := util.CheckResponse(resp); err != nil {
			e.log.Warn("league request rejected", "view", view, "attempt", attempt, "status", resp.StatusCode)
			return err
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return util.Permanent(fmt.Errorf("decode %s: %w", view, err))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("espn %s: %w", view, err)
	}
	return nil
}

// Wire shapes of the fantasy API.

type leagueResponse struct {
	Settings struct {
		Name string `json:"name"`
	} `json:"settings"`
	Members []member    `json:"members"`
	Teams   []teamEntry `json:"teams"`
}

type member struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
}

type teamEntry struct {
	ID       int      `json:"id"`
	Abbrev   string   `json:"abbrev"`
	Name     string   `json:"name"`
	Location string   `json:"location"`
	Nickname string   `json:"nickname"`
	Owners   []string `json:"owners"`
}

type playerEntry struct {
	ID                int    `json:"id"`
	FullName          string `json:"fullName"`
	DefaultPositionID int    `json:"defaultPositionId"`
	ProTeamID         int    `json:"proTeamId"`
}

type communicationResponse struct {
	Topics []struct {
		ID       string    `json:"id"`
		Date     int64     `json:"date"`
		Messages []message `json:"messages"`
	} `json:"topics"`
}

type message struct {
	MessageTypeID int `json:"messageTypeId"`
	TargetID      int `json:"targetId"`
	From          int `json:"from"`
	To            int `json:"to"`
	For           int `json:"for"`
	BidAmount     int `json:"bidAmount"`
}

// actorID picks the team acting in the message: the sender of a trade, the team a
// trade drop was made for, otherwise the receiving team.
func (m message) actorID() int {
	switch m.MessageTypeID {
	case msgTraded:
		return m.From
	case msgDroppedTrade:
		return m.For
	default:
		return m.To
	}
}

func (m message) action() string {
	if a, ok := activityActions[m.MessageTypeID]; ok {
		return a
	}
	return "UNKNOWN"
}

func (r leagueResponse) directory() leagueDirectory {
	byMember := make(map[string]member, len(r.Members))
	for _, m := range r.Members {
		byMember[m.ID] = m
	}
	dir := leagueDirectory{Name: r.Settings.Name, Teams: make(map[int]*model.Team, len(r.Teams))}
	for _, t := range r.Teams {
		team := &model.Team{ID: t.ID, Name: teamName(t), Abbrev: t.Abbrev}
		for _, id := range t.Owners {
			if m, ok := byMember[id]; ok {
				team.Owners = append(team.Owners, managerName(m))
			}
		}
		dir.Teams[t.ID] = team
	}
	return dir
}

func (d leagueDirectory) team(id int) *model.Team {
	if t, ok := d.Teams[id]; ok {
		return t
	}
	return &model.Team{ID: id, Name: fmt.Sprintf("Team %d", id)}
}

func playerOrPlaceholder(players map[int]*model.Player, id int) *model.Player {
	if p, ok := players[id]; ok {
		return p
	}
	return &model.Player{ID: id, FullName: strconv.Itoa(id)}
}
