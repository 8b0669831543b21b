package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/revu/internal/config"
	"github.com/joescharf/revu/internal/output"
)

// testEnv sets up isolated config dir, viper, and output for testing.
func testEnv(t *testing.T) (string, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()

	// Override configDirFunc for tests
	origFunc := configDirFunc
	configDirFunc = func() (string, error) { return dir, nil }
	t.Cleanup(func() { configDirFunc = origFunc })

	for _, k := range []string{"GITHUB_TOKEN", "GH_TOKEN", "ANTHROPIC_API_KEY", "REVU_GITHUB_TOKEN", "REVU_ANTHROPIC_API_KEY"} {
		t.Setenv(k, "")
	}

	// Reset viper
	viper.Reset()
	config.SetDefaults(viper.GetViper())
	viper.Set("cache.path", filepath.Join(dir, "cache.db"))

	// Initialize output
	out := &bytes.Buffer{}
	ui = &output.UI{Out: out, ErrOut: &bytes.Buffer{}}
	logger = newLogger("error", false)
	jsonOutput, showReport, configForce = false, false, false

	return dir, out
}

func TestConfigInit_CreatesFile(t *testing.T) {
	dir, _ := testEnv(t)

	err := configInitRun()
	require.NoError(t, err)

	cfgPath := filepath.Join(dir, "config.yaml")
	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "revu configuration")
	assert.Contains(t, string(data), "extensions: [.py, .go]")

	// The generated file must load back to the defaults.
	v := viper.New()
	config.SetDefaults(v)
	v.SetConfigFile(cfgPath)
	require.NoError(t, v.ReadInConfig())
	cfg, err := config.Load(v)
	require.NoError(t, err)
	assert.Equal(t, 80.0, cfg.Thresholds.Coverage)
	assert.Equal(t, 0.8, cfg.Thresholds.AIScore)
	assert.Equal(t, []string{".py", ".go"}, cfg.Extensions)
}

func TestConfigInit_RefusesOverwrite(t *testing.T) {
	dir, _ := testEnv(t)

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("existing"), 0644))

	err := configInitRun()
	assert.ErrorContains(t, err, "already exists")
}

func TestConfigInit_ForceOverwrite(t *testing.T) {
	dir, _ := testEnv(t)

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("existing"), 0644))

	configForce = true
	require.NoError(t, configInitRun())

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "revu configuration")
}

func TestConfigShow(t *testing.T) {
	_, out := testEnv(t)
	t.Setenv("REVU_THRESHOLDS_COVERAGE", "65")
	viper.Set("anthropic.api_key", "sk-ant-secret-value")

	require.NoError(t, configShowRun())

	s := out.String()
	assert.Contains(t, s, "Config file: (none)")
	assert.Contains(t, s, "(env: REVU_THRESHOLDS_COVERAGE)")
	assert.Contains(t, s, "sk-a****")
	assert.NotContains(t, s, "secret-value")
	assert.Contains(t, s, "(unset)")
}

func TestDisplayValue(t *testing.T) {
	assert.Equal(t, "(unset)", displayValue("github.token", ""))
	assert.Equal(t, "****", displayValue("email.password", "short"))
	assert.Equal(t, 7.0, displayValue("thresholds.quality", 7.0))
}

func TestDetectSource(t *testing.T) {
	fileValues := map[string]bool{"key_a": true}

	t.Setenv("REVU_TEST_KEY", "val")
	assert.Contains(t, detectSource("test_key", "REVU_TEST_KEY", fileValues), "env")
	assert.Contains(t, detectSource("key_a", "REVU_KEY_A_NONEXISTENT", fileValues), "file")
	assert.Contains(t, detectSource("key_b", "REVU_KEY_B_NONEXISTENT", fileValues), "default")
}

func TestFlattenKeys(t *testing.T) {
	input := map[string]any{
		"top": "val",
		"nested": map[string]any{
			"a": "1",
			"b": "2",
		},
	}

	result := make(map[string]bool)
	flattenKeys("", input, result)

	assert.True(t, result["top"])
	assert.True(t, result["nested.a"])
	assert.True(t, result["nested.b"])
	assert.False(t, result["nested"])
}
