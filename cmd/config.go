package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/joescharf/revu/internal/config"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = config.Dir

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage revu configuration.

Running bare 'revu config' is the same as 'revu config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# revu configuration
# See: revu config show (for effective values and sources)
# Every key can be overridden with REVU_<SECTION>_<KEY>, e.g. REVU_THRESHOLDS_COVERAGE.

# Decision thresholds (inclusive lower bounds on averaged scores)
thresholds:
  quality: {{ .Thresholds.Quality }}          # 0-10
  coverage: {{ .Thresholds.Coverage }}        # percent
  ai_score: {{ .Thresholds.AIScore }}         # 0-1
  security: {{ .Thresholds.Security }}        # 0-10
  documentation: {{ .Thresholds.Documentation }}  # percent

# GitHub (token falls back to GITHUB_TOKEN / GH_TOKEN)
github:
  # token: ""
  api_url: "{{ .GitHubAPIURL }}"

# Anthropic (api_key falls back to ANTHROPIC_API_KEY)
anthropic:
  # api_key: ""
  model: "{{ .AnthropicModel }}"

# Email notifications are sent only when email.to is set
email:
  from: ""
  # password: ""
  to: ""
  smtp_host: "{{ .SMTPHost }}"
  smtp_port: {{ .SMTPPort }}

# Fetched file contents cache
cache:
  enabled: {{ .CacheEnabled }}
  path: "{{ .CachePath }}"
  ttl: "{{ .CacheTTL }}"

log:
  level: "{{ .LogLevel }}"    # debug, info, warn, error

serve:
  port: {{ .ServePort }}

review:
  extensions: [{{ join .Extensions ", " }}]
`

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	data := struct {
		config.Config
		CacheTTL string
	}{Config: cfg, CacheTTL: viper.GetString("cache.ttl")}

	tmpl, err := template.New("config").Funcs(template.FuncMap{"join": strings.Join}).Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

func configShowRun() error {
	cfgPath := viper.ConfigFileUsed()
	if cfgPath == "" {
		p, err := configFilePath()
		if err != nil {
			return err
		}
		cfgPath = p
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range config.Keys {
		fmt.Fprintf(ui.Out, "  %-26s %v  %s\n", k.Name, displayValue(k.Name, viper.Get(k.Name)), detectSource(k.Name, k.EnvVar, fileValues))
	}

	return nil
}

// displayValue masks credentials, keeping a short prefix for recognition.
func displayValue(key string, val any) any {
	if !config.Secret(key) {
		return val
	}
	s := fmt.Sprint(val)
	switch {
	case s == "":
		return "(unset)"
	case len(s) <= 8:
		return "****"
	default:
		return s[:4] + "****"
	}
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}
