package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	derrors "git.home.luguber.info/inful/docsite/internal/errors"
)

// AddVersion records version v in the configuration file at path: it is
// prepended to versions.available and becomes versions.latest. The first
// snapshot also sets versions.current. versionsDir is set when absent.
// Keys the Config type does not know about are kept.
func AddVersion(path, v string) error {
	// #nosec G304 -- path is the user supplied config file
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return derrors.ConfigNotFound(path)
		}
		return derrors.ReadFailed(path, err)
	}

	var out []byte
	switch FormatOf(path) {
	case FormatYAML:
		out, err = addVersionYAML(data, v)
	case FormatTOML:
		out, err = addVersionMap(data, v, toml.Unmarshal, func(m map[string]any) ([]byte, error) {
			return toml.Marshal(m)
		})
	default:
		out, err = addVersionMap(data, v, json.Unmarshal, func(m map[string]any) ([]byte, error) {
			b, err := json.MarshalIndent(m, "", "  ")
			return append(b, '\n'), err
		})
	}
	if err != nil {
		if _, ok := derrors.As(err); ok {
			return err
		}
		return derrors.ConfigInvalid(path, err)
	}

	if err := os.WriteFile(path, out, 0o600); err != nil {
		return derrors.WriteFailed(path, err)
	}
	return nil
}

// nextVersions applies a new snapshot to the current version list.
func nextVersions(cur *VersionsConfig, v string) (*VersionsConfig, error) {
	if cur == nil {
		return &VersionsConfig{Current: v, Latest: v, Available: []string{v}}, nil
	}
	if slices.Contains(cur.Available, v) {
		return nil, derrors.VersionExists(v)
	}
	next := *cur
	next.Available = append([]string{v}, cur.Available...)
	next.Latest = v
	return &next, nil
}

func addVersionMap(data []byte, v string, unmarshal func([]byte, any) error, marshal func(map[string]any) ([]byte, error)) ([]byte, error) {
	raw := map[string]any{}
	if err := unmarshal(data, &raw); err != nil {
		return nil, err
	}

	var cur *VersionsConfig
	if existing, ok := raw["versions"]; ok && existing != nil {
		// Round-trip through JSON to map decoded values onto the struct.
		b, err := json.Marshal(existing)
		if err != nil {
			return nil, err
		}
		cur = &VersionsConfig{}
		if err := json.Unmarshal(b, cur); err != nil {
			return nil, fmt.Errorf("versions: %w", err)
		}
	}

	next, err := nextVersions(cur, v)
	if err != nil {
		return nil, err
	}
	raw["versions"] = next
	if s, _ := raw["versionsDir"].(string); s == "" {
		raw["versionsDir"] = DefaultVersionsDir
	}
	return marshal(raw)
}

func addVersionYAML(data []byte, v string) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("top level must be a mapping")
	}

	var cur *VersionsConfig
	if n := mappingValue(root, "versions"); n != nil && n.Tag != "!!null" {
		cur = &VersionsConfig{}
		if err := n.Decode(cur); err != nil {
			return nil, fmt.Errorf("versions: %w", err)
		}
	}
	next, err := nextVersions(cur, v)
	if err != nil {
		return nil, err
	}
	if err := setMappingValue(root, "versions", next); err != nil {
		return nil, err
	}
	if n := mappingValue(root, "versionsDir"); n == nil || n.Value == "" {
		if err := setMappingValue(root, "versionsDir", DefaultVersionsDir); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func setMappingValue(m *yaml.Node, key string, value any) error {
	var n yaml.Node
	if err := n.Encode(value); err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = &n
			return nil
		}
	}
	m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, &n)
	return nil
}

// Example returns the configuration written by Init.
func Example() *Config {
	return &Config{
		OutputDir:   DefaultOutputDir,
		DocsDir:     DefaultDocsDir,
		BaseURL:     DefaultBaseURL,
		Title:       "My Documentation",
		Description: "Project documentation",
		Navbar: NavbarConfig{
			Title: "My Docs",
			Links: []NavLink{
				{Label: "Docs", To: "docs/index"},
				{Label: "GitHub", Href: "https://github.com/example/project"},
			},
		},
		Footer: FooterConfig{Copyright: "Copyright © My Project"},
		Search: SearchConfig{
			MaxResults:     DefaultMaxResults,
			FuzzyThreshold: DefaultFuzzyThreshold,
			MinMatchLength: DefaultMinMatchLength,
		},
		Theme: ThemeConfig{
			Dir:       DefaultThemeDir,
			CodeStyle: DefaultCodeStyle,
		},
		Server: ServerConfig{Port: DefaultPort},
	}
}

// Init creates a new configuration file with example content, encoded in
// the format implied by the extension of path.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return derrors.New(derrors.CategoryConfig, derrors.SeverityFatal,
			"configuration file already exists (use --force to overwrite)").WithContext("path", path)
	}

	cfg := Example()
	var (
		data []byte
		err  error
	)
	switch FormatOf(path) {
	case FormatYAML:
		data, err = yaml.Marshal(cfg)
	case FormatTOML:
		data, err = toml.Marshal(cfg)
	default:
		data, err = json.MarshalIndent(cfg, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return derrors.WriteFailed(path, err)
	}
	return nil
}
