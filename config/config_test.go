package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/deepnoodle-ai/wonton/assert"
)

func TestDefaultIsValid(t *testing.T) {
	config := Default()
	assert.NoError(t, config.Validate())
	assert.Equal(t, ":8080", config.Server.Addr)
	assert.Equal(t, 30*time.Second, config.HeartbeatInterval())
	assert.Equal(t, 75*time.Millisecond, config.CursorBroadcastInterval())
	assert.Equal(t, time.Minute, config.RateLimitWindow())
}

func TestParseYAML(t *testing.T) {
	config, err := ParseYAML([]byte(`
server:
  addr: ":9000"
  heartbeatIntervalSeconds: 15
rateLimit:
  maxPerSecond: 50
  maxPerMinute: 500
  windowSeconds: 30
collaboration:
  cursorBroadcastIntervalMillis: 60
log:
  level: debug
`))
	assert.NoError(t, err)
	assert.NoError(t, config.Validate())
	assert.Equal(t, ":9000", config.Server.Addr)
	assert.Equal(t, 15*time.Second, config.HeartbeatInterval())
	assert.Equal(t, 50, config.RateLimit.MaxPerSecond)
	assert.Equal(t, 60*time.Millisecond, config.CursorBroadcastInterval())
	assert.Equal(t, "debug", config.Log.Level)
}

func TestParseYAMLPartialKeepsDefaults(t *testing.T) {
	config, err := ParseYAML([]byte("server:\n  addr: \":7000\"\n  heartbeatIntervalSeconds: 30\n"))
	assert.NoError(t, err)
	assert.Equal(t, ":7000", config.Server.Addr)
	assert.Equal(t, 100, config.RateLimit.MaxPerSecond)
	assert.Equal(t, "info", config.Log.Level)
}

func TestParseYAMLRejectsUnknownKeys(t *testing.T) {
	_, err := ParseYAML([]byte("mystery: true\n"))
	assert.Error(t, err)
}

func TestParseFileByExtension(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "cowrite.yaml")
	assert.NoError(t, os.WriteFile(yamlPath, []byte("log:\n  level: warn\n"), 0644))
	config, err := ParseFile(yamlPath)
	assert.NoError(t, err)
	assert.Equal(t, "warn", config.Log.Level)

	jsonPath := filepath.Join(dir, "cowrite.json")
	assert.NoError(t, os.WriteFile(jsonPath, []byte(`{"log":{"level":"error"}}`), 0644))
	config, err = ParseFile(jsonPath)
	assert.NoError(t, err)
	assert.Equal(t, "error", config.Log.Level)

	_, err = ParseFile(filepath.Join(dir, "cowrite.toml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }},
		{"zero heartbeat", func(c *Config) { c.Server.HeartbeatIntervalSeconds = 0 }},
		{"zero rate limit", func(c *Config) { c.RateLimit.MaxPerSecond = 0 }},
		{"zero window", func(c *Config) { c.RateLimit.WindowSeconds = 0 }},
		{"cursor interval too low", func(c *Config) { c.Collaboration.CursorBroadcastIntervalMillis = 10 }},
		{"cursor interval too high", func(c *Config) { c.Collaboration.CursorBroadcastIntervalMillis = 500 }},
		{"unknown log level", func(c *Config) { c.Log.Level = "whisper" }},
		{"seed without source", func(c *Config) { c.Documents = []DocumentSeed{{}} }},
		{"seed with both sources", func(c *Config) {
			c.Documents = []DocumentSeed{{Path: "a.txt", Pattern: "*.txt"}}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			config := Default()
			tc.mutate(config)
			assert.Error(t, config.Validate())
		})
	}
}

func TestSeedDocuments(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, os.MkdirAll(filepath.Join(dir, "docs"), 0755))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "docs", "a.md"), []byte("alpha"), 0644))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "docs", "b.md"), []byte("beta"), 0644))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("hello"), 0644))

	config := Default()
	config.Documents = []DocumentSeed{
		{ID: "readme", Path: filepath.Join(dir, "readme.txt")},
		{Pattern: filepath.Join(dir, "docs", "*.md")},
	}
	assert.NoError(t, config.Validate())

	seeded, err := config.SeedDocuments()
	assert.NoError(t, err)
	assert.Equal(t, 3, len(seeded))
	assert.Equal(t, "readme", seeded[0].EditorID)
	assert.Equal(t, "hello", seeded[0].Content)

	contents := map[string]bool{}
	for _, doc := range seeded[1:] {
		contents[doc.Content] = true
	}
	assert.True(t, contents["alpha"])
	assert.True(t, contents["beta"])
}

func TestSeedDocumentsMissingFile(t *testing.T) {
	config := Default()
	config.Documents = []DocumentSeed{{Path: filepath.Join(t.TempDir(), "nope.txt")}}
	_, err := config.SeedDocuments()
	assert.Error(t, err)
}
