package render

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strings"
	"time"

	"league-digest/internal/model"
)

const (
	headshotURL = "https://a.espncdn.com/i/headshots/nfl/players/full/%d.png"
	teamLogoURL = "https://a.espncdn.com/i/teamlogos/nfl/500/%s.png"
	dstMarker   = "D/ST"
	localLayout = "2006-01-02 03:04 PM"
)

const base = "font-family:Arial,Helvetica,sans-serif; color:#111; line-height:1.4;"

var styles = map[string]template.CSS{
	"h1":    "margin:0 0 6px; font-size:20px; " + base,
	"h2":    "margin:0 0 18px; font-size:13px; color:#555; " + base,
	"h3":    "margin:18px 0 8px; font-size:16px; color:#0B5FFF; " + base,
	"card":  "border:1px solid #e5e7eb; border-radius:10px; padding:0; overflow:hidden;",
	"empty": "border:1px solid #e5e7eb; border-radius:10px; overflow:hidden; padding:14px 16px; font-size:20px;",
	"wrap":  "max-width:760px; margin:0 auto; padding:16px;",
	"tbl":   "width:100%; border-collapse:collapse; " + base,
	"th":    "text-align:left; font-size:13px; background:#f6f7fb; border-bottom:1px solid #e5e7eb; padding:10px 12px;",
	"td":    "font-size:14px; border-bottom:1px solid #e5e7eb; padding:10px 12px;",
	"pill":  "display:inline-block; font-size:12px; color:#0B5FFF; border:1px solid #bcd6ff; background:#eef5ff; border-radius:999px; padding:2px 8px; margin-left:6px;",
	"thumb": "width:40px; height:40px; border-radius:50%; object-fit:cover; vertical-align:middle; margin-right:8px;",
	"mgr":   "font-size:12px; color:#555;",
}

var page = template.Must(template.New("digest").Parse(`<!doctype html><meta charset="utf-8">` +
	`<div style="{{.S.wrap}}">` +
	`<h1 style="{{.S.h1}}">Activity for {{.Title}}</h1>` +
	`<h2 style="{{.S.h2}}">{{.Window}}</h2>` +
	`{{if .Dropped}}` +
	`<h3 style="{{.S.h3}}">Dropped Players <span style="{{.S.pill}}">{{len .Dropped}}</span></h3>` +
	`<div style="{{.S.card}}"><table role="presentation" style="{{.S.tbl}}" cellpadding="0" cellspacing="0"><tbody>` +
	`{{range .Dropped}}<tr><td style="{{$.S.td}}"><strong>{{.}}</strong></td></tr>{{end}}` +
	`</tbody></table></div>` +
	`{{end}}` +
	`{{if .Rows}}` +
	`<h3 style="{{.S.h3}}">All Activity <span style="{{.S.pill}}">{{len .Rows}}</span></h3>` +
	`<div style="{{.S.card}}"><table role="presentation" style="{{.S.tbl}}" cellpadding="0" cellspacing="0">` +
	`<thead><tr><th style="{{.S.th}}">When{{if .Zone}} ({{.Zone}}){{end}}</th><th style="{{.S.th}}">Team</th><th style="{{.S.th}}">Action</th></tr></thead><tbody>` +
	`{{range .Rows}}<tr>` +
	`<td style="{{$.S.td}}">{{.When}}</td>` +
	`<td style="{{$.S.td}}">{{.Team}}{{if .Managers}}<br><i style="{{$.S.mgr}}">[{{.Managers}}]</i>{{end}}</td>` +
	`<td style="{{$.S.td}}">{{if .Thumb}}<img src="{{.Thumb}}" alt="" width="40" height="40" style="{{$.S.thumb}}">{{end}}{{.Narrative}}</td>` +
	`</tr>{{end}}` +
	`</tbody></table></div>` +
	`{{else}}` +
	`<div style="{{.S.empty}}">No activity {{.Window}}.</div>` +
	`{{end}}` +
	`</div>`))

type row struct {
	When      string
	Team      string
	Managers  string
	Narrative template.HTML
	Thumb     string
}

type pageData struct {
	S       map[string]template.CSS
	Title   string
	Window  string
	Zone    string
	Dropped []string
	Rows    []row
}

// Renderer turns ordered events into the digest HTML document.
type Renderer struct {
	loc *time.Location
}

func New(loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{loc: loc}
}

// Render builds the document. Events are rendered in the order given; an empty slice
// renders the "No activity" card.
func (r *Renderer) Render(events []model.CombinedEvent, window, title string) (string, error) {
	data := pageData{
		S:      styles,
		Title:  title,
		Window: window,
	}
	zones := make(map[string]bool)
	for _, ev := range events {
		zones[ev.Timestamp.In(r.loc).Format("MST")] = true
	}
	// A window crossing a DST change labels each row instead of the column.
	layout := localLayout
	if len(zones) == 1 {
		data.Zone = events[0].Timestamp.In(r.loc).Format("MST")
	} else {
		layout += " MST"
	}
	for _, ev := range events {
		if !ev.Dropped.IsEmpty() {
			data.Dropped = append(data.Dropped, ev.Dropped.DisplayName)
		}
		data.Rows = append(data.Rows, row{
			When:      ev.Timestamp.In(r.loc).Format(layout),
			Team:      ev.ActorDisplay,
			Managers:  strings.Join(ev.Managers, ", "),
			Narrative: Emphasis(ev.Narrative),
			Thumb:     thumbnail(ev),
		})
	}
	var buf bytes.Buffer
	if err := page.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}
	return buf.String(), nil
}

// Emphasis escapes s and turns each closed ** pair into <strong>. An unmatched marker
// stays literal.
func Emphasis(s string) template.HTML {
	parts := strings.Split(s, "**")
	var b strings.Builder
	for i, p := range parts {
		p = html.EscapeString(p)
		switch {
		case i%2 == 0:
			b.WriteString(p)
		case i == len(parts)-1:
			b.WriteString("**" + p)
		default:
			b.WriteString("<strong>" + p + "</strong>")
		}
	}
	return template.HTML(b.String())
}

// thumbnail prefers the added subject. D/ST units show their pro team logo.
func thumbnail(ev model.CombinedEvent) string {
	for _, s := range []model.SubjectInfo{ev.Added, ev.Dropped} {
		if s.IsEmpty() {
			continue
		}
		if s.Position == dstMarker || strings.Contains(s.DisplayName, dstMarker) {
			if s.Affiliation != "" {
				return fmt.Sprintf(teamLogoURL, strings.ToLower(s.Affiliation))
			}
			continue
		}
		if s.ID != nil && *s.ID > 0 {
			return fmt.Sprintf(headshotURL, *s.ID)
		}
	}
	return ""
}

// Window describes the lookback window, e.g. "(last 24h ending 2025-10-19 09:30 AM CDT)".
func Window(lookback time.Duration, end time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return fmt.Sprintf("(last %dh ending %s)", int(lookback.Hours()), end.In(loc).Format("2006-01-02 03:04 PM MST"))
}

func Title(league string) string {
	return "ESPN Fantasy Football League: " + league
}

func Subject(league string) string {
	return "Daily Digest for " + Title(league)
}
