package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	derrors "git.home.luguber.info/inful/docsite/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoadJSONAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "config.json", `{
	"title": "Docs",
	"baseUrl": "/site",
	"navbar": {"links": [{"label": "Home", "to": "docs/intro"}]},
	"search": {"maxResults": 5}
}`)

	cfg, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, "Docs", cfg.Title)
	require.Equal(t, "/site/", cfg.BaseURL)
	require.Equal(t, "Docs", cfg.Navbar.Title)
	require.Equal(t, DefaultOutputDir, cfg.OutputDir)
	require.Equal(t, DefaultDocsDir, cfg.DocsDir)
	require.Equal(t, 5, cfg.Search.MaxResults)
	require.InDelta(t, DefaultFuzzyThreshold, cfg.Search.FuzzyThreshold, 1e-9)
	require.Equal(t, DefaultMinMatchLength, cfg.Search.MinMatchLength)
	require.Equal(t, DefaultCodeStyle, cfg.Theme.CodeStyle)
	require.Equal(t, dir, cfg.Root())
	require.Equal(t, filepath.Join(dir, "docs"), cfg.Resolve(cfg.DocsDir))
	require.Equal(t, filepath.Join(dir, DefaultVersionsDir), cfg.VersionsRoot())
	require.Nil(t, cfg.AvailableVersions())
}

func TestLoadYAMLAndTOML(t *testing.T) {
	dir := t.TempDir()
	y := writeFile(t, dir, "site.yaml", "title: From YAML\noutputDir: public\nversions:\n  current: 1.0.0\n  latest: 1.0.0\n  available: [1.0.0]\n")
	cfg, err := Load(y)
	require.NoError(t, err)
	require.Equal(t, "From YAML", cfg.Title)
	require.Equal(t, "public", cfg.OutputDir)
	require.Equal(t, []string{"1.0.0"}, cfg.AvailableVersions())

	tm := writeFile(t, dir, "site.toml", "title = \"From TOML\"\n\n[server]\nport = 8080\n")
	cfg, err = Load(tm)
	require.NoError(t, err)
	require.Equal(t, "From TOML", cfg.Title)
	require.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "config.json"))
	require.Error(t, err)
	require.True(t, derrors.IsCategory(err, derrors.CategoryConfig))
}

func TestLoadInvalidFile(t *testing.T) {
	p := writeFile(t, t.TempDir(), "config.json", `{"title": `)
	_, err := Load(p)
	require.Error(t, err)
	require.True(t, derrors.IsCategory(err, derrors.CategoryConfig))
}

func TestLoadExpandsEnvAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "DOCSITE_TEST_TITLE=From Env File\n")
	p := writeFile(t, dir, "config.json", `{"title": "${DOCSITE_TEST_TITLE}"}`)
	t.Cleanup(func() { _ = os.Unsetenv("DOCSITE_TEST_TITLE") })

	cfg, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, "From Env File", cfg.Title)
}

func TestLoadDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DOCSITE_TEST_OVERRIDE", "process")
	writeFile(t, dir, ".env", "DOCSITE_TEST_OVERRIDE=file\n")
	p := writeFile(t, dir, "config.json", `{"title": "$DOCSITE_TEST_OVERRIDE"}`)

	cfg, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, "process", cfg.Title)
}

func TestPortEnvOverride(t *testing.T) {
	t.Setenv("PORT", "4321")
	p := writeFile(t, t.TempDir(), "config.json", `{}`)
	cfg, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, 4321, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"negative max results", func(c *Config) { c.Search.MaxResults = -1 }, "search.maxResults"},
		{"threshold above one", func(c *Config) { c.Search.FuzzyThreshold = 1.5 }, "search.fuzzyThreshold"},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"link without label", func(c *Config) { c.Navbar.Links = []NavLink{{To: "x"}} }, "navbar.links[0].label"},
		{"link without target", func(c *Config) { c.Navbar.Links = []NavLink{{Label: "x"}} }, "navbar.links[0]"},
		{"duplicate version", func(c *Config) {
			c.Versions = &VersionsConfig{Available: []string{"1.0.0", "1.0.0"}}
		}, "versions.available"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Example()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			se, ok := derrors.As(err)
			require.True(t, ok)
			require.Equal(t, tt.field, se.Context["field"])
		})
	}
	require.NoError(t, Example().Validate())
}

func TestAddVersionJSON(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "config.json", `{"title": "Docs", "sidebar": {"custom": true}}`)

	require.NoError(t, AddVersion(p, "1.0.0"))
	require.NoError(t, AddVersion(p, "1.1.0"))

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Equal(t, map[string]any{"custom": true}, raw["sidebar"])
	require.Equal(t, DefaultVersionsDir, raw["versionsDir"])
	require.Equal(t, map[string]any{
		"current":   "1.0.0",
		"latest":    "1.1.0",
		"available": []any{"1.1.0", "1.0.0"},
	}, raw["versions"])

	err = AddVersion(p, "1.0.0")
	require.Error(t, err)
	require.True(t, derrors.IsCategory(err, derrors.CategoryValidation))
}

func TestAddVersionKeepsVersionsDir(t *testing.T) {
	p := writeFile(t, t.TempDir(), "config.json", `{"versionsDir": "old_docs"}`)
	require.NoError(t, AddVersion(p, "2.0.0"))
	cfg, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, "old_docs", cfg.VersionsDir)
}

func TestAddVersionYAMLPreservesComments(t *testing.T) {
	p := writeFile(t, t.TempDir(), "config.yaml", "# site settings\ntitle: Docs\n")
	require.NoError(t, AddVersion(p, "0.1.0"))

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Contains(t, string(data), "# site settings")

	var cfg Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	require.Equal(t, "Docs", cfg.Title)
	require.Equal(t, &VersionsConfig{Current: "0.1.0", Latest: "0.1.0", Available: []string{"0.1.0"}}, cfg.Versions)
	require.Equal(t, DefaultVersionsDir, cfg.VersionsDir)
}

func TestAddVersionTOML(t *testing.T) {
	p := writeFile(t, t.TempDir(), "config.toml", "title = \"Docs\"\nextra = 3\n")
	require.NoError(t, AddVersion(p, "3.0.0"))

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, toml.Unmarshal(data, &raw))
	require.Equal(t, int64(3), raw["extra"])

	cfg, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, []string{"3.0.0"}, cfg.AvailableVersions())
}

func TestAddVersionMissingConfig(t *testing.T) {
	err := AddVersion(filepath.Join(t.TempDir(), "config.json"), "1.0.0")
	require.True(t, derrors.IsCategory(err, derrors.CategoryConfig))
}

func TestInit(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml", "config.toml"} {
		t.Run(name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), name)
			require.NoError(t, Init(p, false))

			cfg, err := Load(p)
			require.NoError(t, err)
			require.Equal(t, Example().Title, cfg.Title)
			require.Len(t, cfg.Navbar.Links, 2)

			require.Error(t, Init(p, false))
			require.NoError(t, Init(p, true))
		})
	}
}
