package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type CommonHTTP struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

type LeagueConfig struct {
	LeagueID int    `yaml:"league_id"` // LEAGUE_ID
	Year     int    `yaml:"year"`      // YEAR
	SWID     string `yaml:"swid"`      // SWID cookie, private leagues only
	ESPNS2   string `yaml:"espn_s2"`   // espn_s2 cookie, private leagues only
}

type SourceConfig struct {
	Type    string     `yaml:"type"`     // "espn" | "file"
	BaseURL string     `yaml:"base_url"` // default https://lm-api-reads.fantasy.espn.com
	Path    string     `yaml:"path"`     // dump file replayed by the "file" source
	// League name reported by the "file" source, which has no settings to read
	LeagueName string `yaml:"league_name"`
	HTTP    CommonHTTP `yaml:"http"`
	// Size of the recent activity request
	ActivityLimit int `yaml:"activity_limit"` // default 300
	// Resilience
	MaxRetries int           `yaml:"max_retries"` // attempts (default 4)
	Backoff    time.Duration `yaml:"backoff"`     // initial backoff (e.g. 500ms)
	MaxBackoff time.Duration `yaml:"max_backoff"` // cap (e.g. 8s)
	// Team/player directories are cached between cycles of a long-running process
	CacheTTL     time.Duration `yaml:"cache_ttl"`      // default 6h
	CacheMaxKeys int           `yaml:"cache_max_keys"` // default 64
}

type DigestConfig struct {
	Lookback   time.Duration `yaml:"lookback"`    // LOOKBACK_HOURS, default 24h
	Timezone   string        `yaml:"timezone"`    // display zone, default America/Chicago
	ReportsDir string        `yaml:"reports_dir"` // debug output, default reports
	DumpPath   string        `yaml:"dump_path"`   // raw activity dump in debug, default debug_espn_raw.json
	Workers    int           `yaml:"workers"`     // concurrent group reconciliation, 0 = unbounded
}

type MailConfig struct {
	From     string        `yaml:"from"`      // EMAIL_FROM
	To       []string      `yaml:"to"`        // EMAIL_TO
	Cc       []string      `yaml:"cc"`        // EMAIL_CC
	Bcc      []string      `yaml:"bcc"`       // EMAIL_BCC
	TokenB64 string        `yaml:"token_b64"` // GMAIL_TOKEN_B64, base64 authorized-user JSON
	BaseURL  string        `yaml:"base_url"`  // default https://gmail.googleapis.com
	Timeout  time.Duration `yaml:"timeout"`
}

type LokiConfig struct {
	URL       string        `yaml:"url"`       // http://loki:3100
	TenantID  string        `yaml:"tenant_id"` // optional multi-tenancy
	Job       string        `yaml:"job"`       // label value, default: league-digest
	Timeout   time.Duration `yaml:"timeout"`   // request timeout
	UserAgent string        `yaml:"user_agent"`
}

type VictoriaConfig struct {
	URL       string        `yaml:"url"`     // http://victoria-metrics:8428
	Timeout   time.Duration `yaml:"timeout"` // request timeout
	UserAgent string        `yaml:"user_agent"`
}

type ServerConfig struct {
	ListenAddress string        `yaml:"listen_address"` // serve mode only, default :9109
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
}

type MetricsConfig struct {
	Enable bool `yaml:"enable"` // print a snapshot after every cycle
}

type Config struct {
	League   LeagueConfig   `yaml:"league"`
	Source   SourceConfig   `yaml:"source"`
	Digest   DigestConfig   `yaml:"digest"`
	Mail     MailConfig     `yaml:"mail"`
	Loki     LokiConfig     `yaml:"loki"`
	Victoria VictoriaConfig `yaml:"victoria"`
	Server   ServerConfig   `yaml:"server"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Debug    bool           `yaml:"debug"` // DEBUG: write the digest locally instead of mailing it
}

// Error reports a missing or invalid setting. It is fatal at startup.
type Error struct {
	Setting string
	Reason  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Setting, e.Reason)
}

// Load reads the optional YAML file at path, applies environment overrides and defaults,
// and validates the result.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an injectable environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (Config, error) {
	var c Config
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return Config{}, fmt.Errorf("parse yaml: %w", err)
		}
	}
	if err := applyEnv(&c, lookup); err != nil {
		return Config{}, err
	}
	applyDefaults(&c)
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func applyEnv(c *Config, lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	atoi := func(name string, dst *int) error {
		v, ok := get(name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return &Error{Setting: name, Reason: fmt.Sprintf("not an integer: %q", v)}
		}
		*dst = n
		return nil
	}

	if err := atoi("LEAGUE_ID", &c.League.LeagueID); err != nil {
		return err
	}
	if err := atoi("YEAR", &c.League.Year); err != nil {
		return err
	}
	if v, ok := get("SWID"); ok {
		c.League.SWID = v
	}
	if v, ok := get("ESPN_S2"); ok {
		c.League.ESPNS2 = v
	}
	var hours int
	if err := atoi("LOOKBACK_HOURS", &hours); err != nil {
		return err
	}
	if hours > 0 {
		c.Digest.Lookback = time.Duration(hours) * time.Hour
	}
	if v, ok := get("DIGEST_TIMEZONE"); ok {
		c.Digest.Timezone = v
	}
	if v, ok := get("DEBUG"); ok {
		c.Debug = Truthy(v)
	}
	if v, ok := get("EMAIL_FROM"); ok {
		c.Mail.From = v
	}
	if v, ok := get("EMAIL_TO"); ok {
		c.Mail.To = ParseList(v)
	}
	if v, ok := get("EMAIL_CC"); ok {
		c.Mail.Cc = ParseList(v)
	}
	if v, ok := get("EMAIL_BCC"); ok {
		c.Mail.Bcc = ParseList(v)
	}
	if v, ok := get("GMAIL_TOKEN_B64"); ok {
		c.Mail.TokenB64 = v
	}
	return nil
}

func applyDefaults(c *Config) {
	if c.Source.Type == "" {
		c.Source.Type = "espn"
	}
	if c.Source.LeagueName == "" {
		c.Source.LeagueName = "Replay"
	}
	if c.Source.BaseURL == "" {
		c.Source.BaseURL = "https://lm-api-reads.fantasy.espn.com"
	}
	if c.Source.HTTP.Timeout == 0 {
		c.Source.HTTP.Timeout = 15 * time.Second
	}
	if c.Source.ActivityLimit <= 0 {
		c.Source.ActivityLimit = 300
	}
	if c.Source.MaxRetries <= 0 {
		c.Source.MaxRetries = 4
	}
	if c.Source.Backoff == 0 {
		c.Source.Backoff = 500 * time.Millisecond
	}
	if c.Source.MaxBackoff == 0 {
		c.Source.MaxBackoff = 8 * time.Second
	}
	if c.Source.CacheTTL == 0 {
		c.Source.CacheTTL = 6 * time.Hour
	}
	if c.Source.CacheMaxKeys <= 0 {
		c.Source.CacheMaxKeys = 64
	}
	if c.Digest.Lookback <= 0 {
		c.Digest.Lookback = 24 * time.Hour
	}
	if c.Digest.Timezone == "" {
		c.Digest.Timezone = "America/Chicago"
	}
	if c.Digest.ReportsDir == "" {
		c.Digest.ReportsDir = "reports"
	}
	if c.Digest.DumpPath == "" {
		c.Digest.DumpPath = "debug_espn_raw.json"
	}
	if c.Mail.BaseURL == "" {
		c.Mail.BaseURL = "https://gmail.googleapis.com"
	}
	if c.Mail.Timeout == 0 {
		c.Mail.Timeout = 20 * time.Second
	}
	if c.Loki.Job == "" {
		c.Loki.Job = "league-digest"
	}
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = ":9109"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
}

// Validate fails fast on settings a run cannot proceed without.
func (c Config) Validate() error {
	var errs []error
	switch c.Source.Type {
	case "espn":
		if c.League.LeagueID <= 0 {
			errs = append(errs, &Error{Setting: "LEAGUE_ID", Reason: "required"})
		}
		if c.League.Year <= 0 {
			errs = append(errs, &Error{Setting: "YEAR", Reason: "required"})
		}
	case "file":
		if strings.TrimSpace(c.Source.Path) == "" {
			errs = append(errs, &Error{Setting: "source.path", Reason: "required for the file source"})
		}
	default:
		errs = append(errs, &Error{Setting: "source.type", Reason: fmt.Sprintf("unknown source type %q", c.Source.Type)})
	}
	if !c.Debug && strings.TrimSpace(c.Mail.TokenB64) == "" {
		errs = append(errs, &Error{Setting: "GMAIL_TOKEN_B64", Reason: "required unless DEBUG is set"})
	}
	if _, err := time.LoadLocation(c.Digest.Timezone); err != nil {
		errs = append(errs, &Error{Setting: "digest.timezone", Reason: err.Error()})
	}
	return errors.Join(errs...)
}

// Truthy reports whether an environment-style flag is set: 1, true, yes or on.
func Truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// ParseList splits comma or semicolon separated addresses, dropping blanks.
func ParseList(v string) []string {
	parts := strings.Split(strings.ReplaceAll(v, ";", ","), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
