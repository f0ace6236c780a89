// Package config loads and validates the site configuration file.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	derrors "git.home.luguber.info/inful/docsite/internal/errors"
)

// DefaultPath is the configuration file used when none is given.
const DefaultPath = "config.json"

// Defaults applied by Load when a value is missing or zero.
const (
	DefaultOutputDir      = "build"
	DefaultDocsDir        = "docs"
	DefaultBaseURL        = "/"
	DefaultVersionsDir    = "versioned_docs"
	DefaultThemeDir       = "theme"
	DefaultCodeStyle      = "github-dark"
	DefaultMaxResults     = 10
	DefaultFuzzyThreshold = 0.3
	DefaultMinMatchLength = 2
	DefaultPort           = 3000
	DefaultNotifySubject  = "docsite.build"
)

// Config represents the site configuration.
type Config struct {
	OutputDir   string          `json:"outputDir" yaml:"outputDir" toml:"outputDir"`
	DocsDir     string          `json:"docsDir" yaml:"docsDir" toml:"docsDir"`
	BaseURL     string          `json:"baseUrl" yaml:"baseUrl" toml:"baseUrl"`
	Title       string          `json:"title" yaml:"title" toml:"title"`
	Description string          `json:"description" yaml:"description" toml:"description"`
	Navbar      NavbarConfig    `json:"navbar" yaml:"navbar" toml:"navbar"`
	Footer      FooterConfig    `json:"footer" yaml:"footer" toml:"footer"`
	Search      SearchConfig    `json:"search" yaml:"search" toml:"search"`
	Versions    *VersionsConfig `json:"versions,omitempty" yaml:"versions,omitempty" toml:"versions,omitempty"`
	VersionsDir string          `json:"versionsDir,omitempty" yaml:"versionsDir,omitempty" toml:"versionsDir,omitempty"`
	Theme       ThemeConfig     `json:"theme" yaml:"theme" toml:"theme"`
	Server      ServerConfig    `json:"server" yaml:"server" toml:"server"`
	Cache       CacheConfig     `json:"cache" yaml:"cache" toml:"cache"`
	Notify      NotifyConfig    `json:"notify" yaml:"notify" toml:"notify"`

	// path is the file the configuration was loaded from.
	path string
}

// NavbarConfig is the top navigation bar.
type NavbarConfig struct {
	Title string    `json:"title" yaml:"title" toml:"title"`
	Links []NavLink `json:"links" yaml:"links" toml:"links"`
}

// NavLink is an external link (Href) or a site path without extension (To).
type NavLink struct {
	Label string `json:"label" yaml:"label" toml:"label"`
	Href  string `json:"href,omitempty" yaml:"href,omitempty" toml:"href,omitempty"`
	To    string `json:"to,omitempty" yaml:"to,omitempty" toml:"to,omitempty"`
}

type FooterConfig struct {
	Copyright string `json:"copyright" yaml:"copyright" toml:"copyright"`
}

// SearchConfig tunes client and server side search.
type SearchConfig struct {
	MaxResults     int     `json:"maxResults" yaml:"maxResults" toml:"maxResults"`
	FuzzyThreshold float64 `json:"fuzzyThreshold" yaml:"fuzzyThreshold" toml:"fuzzyThreshold"`
	MinMatchLength int     `json:"minMatchLength" yaml:"minMatchLength" toml:"minMatchLength"`
}

// VersionsConfig lists snapshotted documentation versions, newest first.
type VersionsConfig struct {
	Current   string   `json:"current" yaml:"current" toml:"current"`
	Latest    string   `json:"latest" yaml:"latest" toml:"latest"`
	Available []string `json:"available" yaml:"available" toml:"available"`
}

// ThemeConfig controls asset overlay and code highlighting.
type ThemeConfig struct {
	Dir       string `json:"dir" yaml:"dir" toml:"dir"`
	CodeStyle string `json:"codeStyle" yaml:"codeStyle" toml:"codeStyle"`
	FuseURL   string `json:"fuseUrl,omitempty" yaml:"fuseUrl,omitempty" toml:"fuseUrl,omitempty"` // overrides the bundled fuse.min.js
}

type ServerConfig struct {
	Port     int    `json:"port" yaml:"port" toml:"port"`
	BasePath string `json:"basePath,omitempty" yaml:"basePath,omitempty" toml:"basePath,omitempty"`
}

// CacheConfig enables the sqlite build cache when Path is set.
type CacheConfig struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty" toml:"path,omitempty"`
}

// NotifyConfig enables NATS build notifications when NatsURL is set.
type NotifyConfig struct {
	NatsURL string `json:"natsUrl,omitempty" yaml:"natsUrl,omitempty" toml:"natsUrl,omitempty"`
	Subject string `json:"subject,omitempty" yaml:"subject,omitempty" toml:"subject,omitempty"`
}

// Load reads the configuration at path, applies defaults and validates it.
// .env and .env.local next to the file are loaded first without overriding
// the process environment, and ${VAR} references are expanded.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, derrors.ConfigNotFound(path)
	}
	loadEnvFiles(filepath.Dir(path))

	// #nosec G304 -- path is the user supplied config file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, derrors.ReadFailed(path, err)
	}
	expanded := []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := decode(path, expanded, &cfg); err != nil {
		return nil, derrors.ConfigInvalid(path, err)
	}
	cfg.path = path
	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnvFiles(dir string) {
	var files []string
	for _, name := range []string{".env", ".env.local"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			files = append(files, p)
		}
	}
	if len(files) == 0 {
		return
	}
	if err := godotenv.Load(files...); err != nil {
		fmt.Fprintf(os.Stderr, "Note: could not load %s: %v\n", strings.Join(files, ", "), err)
	}
}

// Format identifies the encoding of a configuration file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf returns the format implied by the file extension. Unknown
// extensions are treated as JSON.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

func decode(path string, data []byte, out any) error {
	switch FormatOf(path) {
	case FormatTOML:
		return toml.NewDecoder(bytes.NewReader(data)).Decode(out)
	case FormatYAML:
		return yaml.Unmarshal(data, out)
	default:
		return json.Unmarshal(data, out)
	}
}

func (c *Config) applyDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.DocsDir == "" {
		c.DocsDir = DefaultDocsDir
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(c.BaseURL, "/") {
		c.BaseURL += "/"
	}
	if c.Navbar.Title == "" {
		c.Navbar.Title = c.Title
	}
	if c.Search.MaxResults == 0 {
		c.Search.MaxResults = DefaultMaxResults
	}
	if c.Search.FuzzyThreshold == 0 {
		c.Search.FuzzyThreshold = DefaultFuzzyThreshold
	}
	if c.Search.MinMatchLength == 0 {
		c.Search.MinMatchLength = DefaultMinMatchLength
	}
	if c.Theme.Dir == "" {
		c.Theme.Dir = DefaultThemeDir
	}
	if c.Theme.CodeStyle == "" {
		c.Theme.CodeStyle = DefaultCodeStyle
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Notify.Subject == "" {
		c.Notify.Subject = DefaultNotifySubject
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Search.MaxResults < 0:
		return derrors.ValidationFailed("search.maxResults", "must not be negative")
	case c.Search.FuzzyThreshold < 0 || c.Search.FuzzyThreshold > 1:
		return derrors.ValidationFailed("search.fuzzyThreshold", "must be between 0 and 1")
	case c.Search.MinMatchLength < 0:
		return derrors.ValidationFailed("search.minMatchLength", "must not be negative")
	case c.Server.Port < 0 || c.Server.Port > 65535:
		return derrors.ValidationFailed("server.port", "must be between 0 and 65535")
	}
	for i, l := range c.Navbar.Links {
		if l.Label == "" {
			return derrors.ValidationFailed(fmt.Sprintf("navbar.links[%d].label", i), "is required")
		}
		if l.Href == "" && l.To == "" {
			return derrors.ValidationFailed(fmt.Sprintf("navbar.links[%d]", i), "needs href or to")
		}
	}
	if c.Versions != nil {
		seen := make(map[string]bool, len(c.Versions.Available))
		for _, v := range c.Versions.Available {
			if seen[v] {
				return derrors.ValidationFailed("versions.available", "duplicate version "+v)
			}
			seen[v] = true
		}
	}
	return nil
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string { return c.path }

// Root is the project directory: the directory holding the config file.
func (c *Config) Root() string {
	if c.path == "" {
		return "."
	}
	return filepath.Dir(c.path)
}

// Resolve makes p absolute against the project root unless it already is.
func (c *Config) Resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root(), p)
}

// VersionsRoot is the directory holding version snapshots.
func (c *Config) VersionsRoot() string {
	if c.VersionsDir == "" {
		return c.Resolve(DefaultVersionsDir)
	}
	return c.Resolve(c.VersionsDir)
}

// SidebarsRoot is the directory holding versioned sidebar files.
func (c *Config) SidebarsRoot() string {
	return c.Resolve("versioned_sidebars")
}

// AvailableVersions returns the snapshotted versions, newest first.
func (c *Config) AvailableVersions() []string {
	if c.Versions == nil {
		return nil
	}
	return c.Versions.Available
}
