package sink

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"league-digest/internal/config"
	"league-digest/internal/model"
	"league-digest/internal/util"
)

const (
	gmailScope      = "https://www.googleapis.com/auth/gmail.send"
	defaultTokenURI = "https://oauth2.googleapis.com/token"
	sendEndpoint    = "/gmail/v1/users/me/messages/send"
)

// DeliveryError reports a digest that could not be handed to the mail service.
type DeliveryError struct {
	Reason string
	Err    error
}

func (e *DeliveryError) Error() string {
	if e.Err == nil {
		return "delivery: " + e.Reason
	}
	return fmt.Sprintf("delivery: %s: %v", e.Reason, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// authorizedUser is the token file written by Google's installed-app OAuth flow.
type authorizedUser struct {
	Token        string   `json:"token"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenURI     string   `json:"token_uri"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes"`
	Expiry       string   `json:"expiry"`
}

type GmailOption func(*gmailSink)

// WithHTTPClient sets the client used for both token refresh and sending.
func WithHTTPClient(c *http.Client) GmailOption {
	return func(g *gmailSink) {
		if c != nil {
			g.client = c
		}
	}
}

func WithBaseURL(u string) GmailOption {
	return func(g *gmailSink) {
		if u != "" {
			g.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithLogger(l *slog.Logger) GmailOption {
	return func(g *gmailSink) {
		if l != nil {
			g.log = l
		}
	}
}

type gmailSink struct {
	cfg     config.MailConfig
	client  *http.Client
	baseURL string
	log     *slog.Logger
	tokens  oauth2.TokenSource
}

// NewGmail decodes the base64 authorized-user token. A token that is expired and
// cannot be refreshed is rejected here.
func NewGmail(cfg config.MailConfig, opts ...GmailOption) (*gmailSink, error) {
	g := &gmailSink{
		cfg:     cfg,
		client:  util.NewHTTPClient(defaultDurSink(cfg.Timeout, 20*time.Second)),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		log:     slog.Default(),
	}
	if g.baseURL == "" {
		g.baseURL = "https://gmail.googleapis.com"
	}
	for _, o := range opts {
		o(g)
	}

	conf, tok, err := ParseToken(cfg.TokenB64)
	if err != nil {
		return nil, err
	}
	if !tok.Valid() && tok.RefreshToken == "" {
		return nil, errors.New("gmail: invalid or expired token and no refresh token available")
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, g.client)
	g.tokens = conf.TokenSource(ctx, tok)
	return g, nil
}

// ParseToken decodes GMAIL_TOKEN_B64 into an OAuth config and its current token.
func ParseToken(b64 string) (*oauth2.Config, *oauth2.Token, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return nil, nil, fmt.Errorf("gmail: decode base64 token: %w", err)
	}
	var au authorizedUser
	if err := json.Unmarshal(raw, &au); err != nil {
		return nil, nil, fmt.Errorf("gmail: parse token json: %w", err)
	}
	tokenURI := au.TokenURI
	if tokenURI == "" {
		tokenURI = defaultTokenURI
	}
	scopes := au.Scopes
	if len(scopes) == 0 {
		scopes = []string{gmailScope}
	}
	conf := &oauth2.Config{
		ClientID:     au.ClientID,
		ClientSecret: au.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURI},
		Scopes:       scopes,
	}
	tok := &oauth2.Token{
		AccessToken:  pick(au.Token, au.AccessToken),
		RefreshToken: au.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       parseExpiry(au.Expiry),
	}
	return conf, tok, nil
}

func (g *gmailSink) Name() string { return "gmail" }

func (g *gmailSink) Push(ctx context.Context, d model.Digest) error {
	id, err := g.Send(ctx, d.Subject, d.HTML)
	if err != nil {
		return err
	}
	g.log.Info("digest mailed", "run_id", d.RunID, "message_id", id,
		"to", len(g.cfg.To), "cc", len(g.cfg.Cc), "bcc", len(g.cfg.Bcc))
	return nil
}

// Send mails one html message and returns the Gmail message id.
func (g *gmailSink) Send(ctx context.Context, subject, html string) (string, error) {
	if len(g.cfg.To) == 0 && len(g.cfg.Bcc) == 0 {
		return "", &DeliveryError{Reason: "need at least one recipient in To or Bcc"}
	}
	from := g.cfg.From
	if from == "" && len(g.cfg.To) > 0 {
		from = g.cfg.To[0]
	}
	msg := buildMessage(from, g.cfg.To, g.cfg.Cc, g.cfg.Bcc, subject, html)

	tok, err := g.tokens.Token()
	if err != nil {
		return "", &DeliveryError{Reason: "refresh oauth token", Err: err}
	}
	body, err := json.Marshal(map[string]string{"raw": base64.URLEncoding.EncodeToString(msg)})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+sendEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	tok.SetAuthHeader(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", &DeliveryError{Reason: "send", Err: err}
	}
	defer resp.Body.Close()
	if err := util.CheckResponse(resp); err != nil {
		return "", &DeliveryError{Reason: "gmail api rejected message", Err: err}
	}
	var sent struct {
		ID       string `json:"id"`
		ThreadID string `json:"threadId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&sent); err != nil {
		g.log.Warn("gmail accepted the message but its response did not decode", "status", resp.StatusCode, "err", err)
	}
	return sent.ID, nil
}

// buildMessage renders a single-part text/html RFC 2822 message.
func buildMessage(from string, to, cc, bcc []string, subject, html string) []byte {
	var b bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&b, "%s: %s\r\n", k, v) }
	if len(to) > 0 {
		header("To", strings.Join(to, ", "))
	}
	if len(cc) > 0 {
		header("Cc", strings.Join(cc, ", "))
	}
	if len(bcc) > 0 {
		header("Bcc", strings.Join(bcc, ", "))
	}
	header("Subject", mime.QEncoding.Encode("utf-8", subject))
	header("From", from)
	header("MIME-Version", "1.0")
	header("Content-Type", `text/html; charset="utf-8"`)
	header("Content-Transfer-Encoding", "base64")
	b.WriteString("\r\n")

	enc := base64.StdEncoding.EncodeToString([]byte(html))
	for len(enc) > 76 {
		b.WriteString(enc[:76])
		b.WriteString("\r\n")
		enc = enc[76:]
	}
	b.WriteString(enc)
	b.WriteString("\r\n")
	return b.Bytes()
}

// parseExpiry accepts RFC 3339 and the zone-less ISO form Python writes. Unknown
// expiry is the zero time, which oauth2 treats as never expiring.
func parseExpiry(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func pick(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func defaultDurSink(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
