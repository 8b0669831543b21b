// Package config resolves revu settings from viper (file, REVU_* env and
// defaults) into an immutable Config that is injected into commands.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/joescharf/revu/internal/models"
)

// ErrMissingConfig is returned by Validate when required keys are unset.
var ErrMissingConfig = errors.New("missing required configuration")

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "REVU"

// Mode selects which keys Validate requires.
type Mode string

const (
	ModePR    Mode = "pr"
	ModeFiles Mode = "files"
	ModeServe Mode = "serve"
)

// Key describes a config key for display.
type Key struct {
	Name   string
	EnvVar string
}

// Keys lists the keys shown by `revu config show`, in display order.
var Keys = []Key{
	{Name: "thresholds.quality"},
	{Name: "thresholds.coverage"},
	{Name: "thresholds.ai_score"},
	{Name: "thresholds.security"},
	{Name: "thresholds.documentation"},
	{Name: "github.token"},
	{Name: "github.api_url"},
	{Name: "anthropic.api_key"},
	{Name: "anthropic.model"},
	{Name: "email.from"},
	{Name: "email.password"},
	{Name: "email.to"},
	{Name: "email.smtp_host"},
	{Name: "email.smtp_port"},
	{Name: "cache.path"},
	{Name: "cache.enabled"},
	{Name: "cache.ttl"},
	{Name: "log.level"},
	{Name: "serve.port"},
	{Name: "review.extensions"},
}

func init() {
	for i := range Keys {
		Keys[i].EnvVar = EnvVar(Keys[i].Name)
	}
}

// EnvVar returns the environment variable that overrides key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Secret reports whether a key holds a credential that must be masked.
func Secret(key string) bool {
	return key == "github.token" || key == "anthropic.api_key" || key == "email.password"
}

// Dir returns ~/.config/revu.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "revu"), nil
}

// SetDefaults registers the default of every key on v and enables REVU_*
// environment overrides.
func SetDefaults(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	dir, err := Dir()
	if err != nil {
		dir = "."
	}
	th := models.DefaultThresholds()

	v.SetDefault("thresholds.quality", th.Quality)
	v.SetDefault("thresholds.coverage", th.Coverage)
	v.SetDefault("thresholds.ai_score", th.AIScore)
	v.SetDefault("thresholds.security", th.Security)
	v.SetDefault("thresholds.documentation", th.Documentation)
	v.SetDefault("github.token", "")
	v.SetDefault("github.api_url", "https://api.github.com")
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("email.from", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.to", "")
	v.SetDefault("email.smtp_host", "smtp.gmail.com")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("cache.path", filepath.Join(dir, "cache.db"))
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("log.level", "info")
	v.SetDefault("serve.port", 8080)
	v.SetDefault("review.extensions", []string{".py", ".go"})
	v.SetDefault("review.offline", false)
}

// Config is the resolved configuration of one invocation.
type Config struct {
	Thresholds models.Thresholds

	GitHubToken  string
	GitHubAPIURL string

	AnthropicKey   string
	AnthropicModel string

	EmailFrom     string
	EmailPassword string
	EmailTo       string
	SMTPHost      string
	SMTPPort      int

	CachePath    string
	CacheEnabled bool
	CacheTTL     time.Duration

	LogLevel   string
	ServePort  int
	Extensions []string
	Offline    bool
}

// Load builds a Config from v. Credentials fall back to the conventional
// GITHUB_TOKEN, GH_TOKEN and ANTHROPIC_API_KEY variables.
func Load(v *viper.Viper) (Config, error) {
	c := Config{
		Thresholds: models.Thresholds{
			Quality:       v.GetFloat64("thresholds.quality"),
			Coverage:      v.GetFloat64("thresholds.coverage"),
			AIScore:       v.GetFloat64("thresholds.ai_score"),
			Security:      v.GetFloat64("thresholds.security"),
			Documentation: v.GetFloat64("thresholds.documentation"),
		},
		GitHubToken:    firstNonEmpty(v.GetString("github.token"), os.Getenv("GITHUB_TOKEN"), os.Getenv("GH_TOKEN")),
		GitHubAPIURL:   v.GetString("github.api_url"),
		AnthropicKey:   firstNonEmpty(v.GetString("anthropic.api_key"), os.Getenv("ANTHROPIC_API_KEY")),
		AnthropicModel: v.GetString("anthropic.model"),
		EmailFrom:      v.GetString("email.from"),
		EmailPassword:  v.GetString("email.password"),
		EmailTo:        v.GetString("email.to"),
		SMTPHost:       v.GetString("email.smtp_host"),
		SMTPPort:       v.GetInt("email.smtp_port"),
		CachePath:      v.GetString("cache.path"),
		CacheEnabled:   v.GetBool("cache.enabled"),
		LogLevel:       strings.ToLower(v.GetString("log.level")),
		ServePort:      v.GetInt("serve.port"),
		Extensions:     normalizeExtensions(v.GetStringSlice("review.extensions")),
		Offline:        v.GetBool("review.offline"),
	}

	ttl, err := time.ParseDuration(v.GetString("cache.ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("cache.ttl: %w", err)
	}
	c.CacheTTL = ttl

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("log.level: unknown level %q", c.LogLevel)
	}
	return c, nil
}

// Validate reports every required key that is unset for mode, joined
// under ErrMissingConfig.
func (c Config) Validate(mode Mode) error {
	var missing []string
	if mode == ModePR && c.GitHubToken == "" {
		missing = append(missing, "github.token")
	}
	if !c.Offline && c.AnthropicKey == "" {
		missing = append(missing, "anthropic.api_key")
	}
	if c.EmailTo != "" {
		if c.EmailFrom == "" {
			missing = append(missing, "email.from")
		}
		if c.EmailPassword == "" {
			missing = append(missing, "email.password")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}

// EmailEnabled reports whether email notifications should be sent.
func (c Config) EmailEnabled() bool {
	return c.EmailTo != "" && c.EmailFrom != "" && c.EmailPassword != ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// normalizeExtensions lower-cases and dot-prefixes each extension. A
// comma-separated single value (as set through the environment) is split.
func normalizeExtensions(in []string) []string {
	var out []string
	for _, raw := range in {
		for _, e := range strings.Split(raw, ",") {
			e = strings.ToLower(strings.TrimSpace(e))
			if e == "" {
				continue
			}
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			out = append(out, e)
		}
	}
	return out
}
