package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"league-digest/internal/activity"
	"league-digest/internal/config"
	"league-digest/internal/model"
	"league-digest/internal/store"
)

const (
	leaguePath  = "/apis/v3/games/ffl/seasons/2025/segments/0/leagues/777"
	playersPath = "/apis/v3/games/ffl/seasons/2025/players"
)

type fakeESPN struct {
	leagueHits  atomic.Int32
	playerHits  atomic.Int32
	commHits    atomic.Int32
	commStatus   int
	lastFilter   atomic.Value
	lastCommView atomic.Value
	lastCookies  atomic.Value
}

func (f *fakeESPN) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var cookies []string
	for _, c := range r.Cookies() {
		cookies = append(cookies, c.Name+"="+c.Value)
	}
	f.lastCookies.Store(strings.Join(cookies, ";"))

	switch r.URL.Path {
	case leaguePath:
		f.leagueHits.Add(1)
		writeJSON(w, map[string]any{
			"settings": map[string]any{"name": "Sunday Scaries"},
			"members": []map[string]any{
				{"id": "{M1}", "firstName": "Sam", "lastName": "Lee", "displayName": "slee"},
				{"id": "{M2}", "displayName": "kimp"},
			},
			"teams": []map[string]any{
				{"id": 1, "abbrev": "ALP", "name": "Team Alpha", "owners": []string{"{M1}"}},
				{"id": 2, "abbrev": "BET", "location": "Team", "nickname": "Beta", "owners": []string{"{M2}"}},
			},
		})
	case playersPath:
		f.playerHits.Add(1)
		writeJSON(w, []map[string]any{
			{"id": 101, "fullName": "Player A", "defaultPositionId": 2, "proTeamId": 6},
			{"id": 202, "fullName": "Player B", "defaultPositionId": 3, "proTeamId": 12},
			{"id": -16012, "fullName": "Chiefs D/ST", "defaultPositionId": 16, "proTeamId": 12},
		})
	case leaguePath + "/communication/":
		f.commHits.Add(1)
		f.lastFilter.Store(r.Header.Get("x-fantasy-filter"))
		f.lastCommView.Store(r.URL.Query().Get("view"))
		if r.URL.Query().Get("view") != "kona_league_communication" {
			http.Error(w, "unknown view", http.StatusBadRequest)
			return
		}
		if f.commStatus != 0 {
			w.WriteHeader(f.commStatus)
			return
		}
		writeJSON(w, map[string]any{"topics": []map[string]any{
			{"id": "t1", "date": int64(1760866200000), "messages": []map[string]any{
				{"messageTypeId": 179, "targetId": 101, "to": 1},
				{"messageTypeId": 180, "targetId": 202, "to": 1, "bidAmount": 15},
			}},
			{"id": "t2", "date": int64(1760862600000), "messages": []map[string]any{
				{"messageTypeId": 244, "targetId": -16012, "from": 2, "to": 1},
				{"messageTypeId": 239, "targetId": 999, "for": 2},
			}},
		}})
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestSource(t *testing.T, fake *fakeESPN) *espnSource {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return NewESPNSource(
		config.LeagueConfig{LeagueID: 777, Year: 2025, SWID: "{SW}", ESPNS2: "s2"},
		config.SourceConfig{
			BaseURL:       srv.URL,
			ActivityLimit: 50,
			MaxRetries:    3,
			Backoff:       time.Millisecond,
			MaxBackoff:    2 * time.Millisecond,
			CacheTTL:      time.Hour,
			CacheMaxKeys:  8,
		},
		nil,
	)
}

func TestESPNFetchRecentActivity(t *testing.T) {
	fake := &fakeESPN{}
	src := newTestSource(t, fake)
	ctx := context.Background()

	name, err := src.LeagueName(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Sunday Scaries", name)

	groups, err := src.FetchRecentActivity(ctx, 0)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	first := groups[0]
	assert.Equal(t, int64(1760866200000), first.Date)
	require.Len(t, first.Actions, 2)
	drop := first.Actions[0].([]any)
	team := drop[0].(*model.Team)
	assert.Equal(t, "Team Alpha", team.Name)
	assert.Equal(t, []string{"Sam Lee"}, team.Owners)
	assert.Equal(t, "DROPPED", drop[1])
	assert.Equal(t, &model.Player{ID: 101, FullName: "Player A", Pos: "RB", Pro: "DAL"}, drop[2])
	claim := first.Actions[1].([]any)
	assert.Equal(t, "WAIVER ADDED", claim[1])
	assert.Equal(t, 15, claim[3])

	trade := groups[1].Actions[0].([]any)
	assert.Equal(t, "Team Beta", trade[0].(*model.Team).Name, "trade actor is the sender")
	assert.Equal(t, []string{"kimp"}, trade[0].(*model.Team).Owners)
	assert.Equal(t, "TRADED", trade[1])
	unknown := groups[1].Actions[1].([]any)
	assert.Equal(t, 2, unknown[0].(*model.Team).ID, "trade drop actor is the team it was made for")
	assert.Equal(t, "999", unknown[2].(*model.Player).FullName)

	// The request shape the API expects.
	assert.Equal(t, "SWID={SW};espn_s2=s2", fake.lastCookies.Load())
	assert.Equal(t, "kona_league_communication", fake.lastCommView.Load())
	var filter struct {
		Topics struct {
			Limit                       int `json:"limit"`
			FilterIncludeMessageTypeIds struct {
				Value []int `json:"value"`
			} `json:"filterIncludeMessageTypeIds"`
		} `json:"topics"`
	}
	require.NoError(t, json.Unmarshal([]byte(fake.lastFilter.Load().(string)), &filter))
	assert.Equal(t, 50, filter.Topics.Limit)
	assert.ElementsMatch(t, []int{178, 179, 180, 181, 239, 244}, filter.Topics.FilterIncludeMessageTypeIds.Value)

	// The reconciled view of the live groups.
	since := time.UnixMilli(1760860000000)
	evs := activity.ReconcileAll(groups, since, 2)
	require.Len(t, evs, 3)
	assert.Equal(t, "Dropped **Player A (RB, DAL)** to claim **Player B (WR, KC)** for $15", evs[2].Narrative)
	assert.Equal(t, []string{"Sam Lee"}, evs[2].Managers)
}

func TestESPNCachesDirectories(t *testing.T) {
	fake := &fakeESPN{}
	src := newTestSource(t, fake)
	ctx := context.Background()

	for range 3 {
		_, err := src.FetchRecentActivity(ctx, 10)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, fake.leagueHits.Load())
	assert.EqualValues(t, 1, fake.playerHits.Load())
	assert.EqualValues(t, 3, fake.commHits.Load())
}

func TestESPNRetries(t *testing.T) {
	t.Run("server errors are retried up to the ceiling", func(t *testing.T) {
		fake := &fakeESPN{commStatus: http.StatusServiceUnavailable}
		src := newTestSource(t, fake)

		_, err := src.FetchRecentActivity(context.Background(), 10)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "kona_league_communication")
		assert.EqualValues(t, 3, fake.commHits.Load())
	})

	t.Run("client errors are permanent", func(t *testing.T) {
		fake := &fakeESPN{commStatus: http.StatusUnauthorized}
		src := newTestSource(t, fake)

		_, err := src.FetchRecentActivity(context.Background(), 10)
		require.Error(t, err)
		assert.EqualValues(t, 1, fake.commHits.Load())
	})
}

func TestFileSourceReplaysDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.json")
	require.NoError(t, store.SaveDump(path, []model.RawActivityGroup{
		{Date: 2, Actions: []any{[]any{"Team X", "FA ADDED", "a1"}}},
		{Date: 1, Actions: []any{[]any{"Team Y", "DROPPED", "d1"}}},
	}))

	src, err := NewFromConfig(config.Config{Source: config.SourceConfig{Type: "file", Path: path, LeagueName: "Replay"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "file", src.Name())

	name, err := src.LeagueName(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Replay", name)

	groups, err := src.FetchRecentActivity(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, int64(2), groups[0].Date)
}

func TestNewFromConfigUnknownType(t *testing.T) {
	_, err := NewFromConfig(config.Config{Source: config.SourceConfig{Type: "yahoo"}}, nil)
	require.Error(t, err)
}
