package project

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the decoded perlsp.toml. Every field has a default, so a
// workspace without a manifest gets the same struct.
type Config struct {
	// Include lists directories scanned for Perl sources, relative to the
	// project root.
	Include []string `toml:"include"`
	// Ignore lists glob patterns matched against slash-separated paths
	// relative to the project root.
	Ignore []string `toml:"ignore"`
	// MaxDiagnostics caps diagnostics reported per file. 0 means no cap.
	MaxDiagnostics int `toml:"max_diagnostics"`
	// MaxResults caps workspace symbol query results. 0 means no cap.
	MaxResults int `toml:"max_results"`
	// Cache toggles the on-disk analysis cache.
	Cache bool `toml:"cache"`
}

// DefaultConfig returns the configuration used when no perlsp.toml exists.
func DefaultConfig() Config {
	return Config{
		Include:        []string{"lib", "."},
		MaxResults:     200,
		MaxDiagnostics: 100,
		Cache:          true,
	}
}

type manifest struct {
	Workspace Config `toml:"workspace"`
}

// LoadConfig parses a perlsp.toml, filling defaults for absent keys.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	var m manifest
	meta, err := toml.DecodeFile(path, &m)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("workspace") {
		return cfg, nil
	}
	if meta.IsDefined("workspace", "include") {
		cfg.Include = m.Workspace.Include
	}
	if meta.IsDefined("workspace", "ignore") {
		cfg.Ignore = m.Workspace.Ignore
	}
	if meta.IsDefined("workspace", "max_diagnostics") {
		cfg.MaxDiagnostics = m.Workspace.MaxDiagnostics
	}
	if meta.IsDefined("workspace", "max_results") {
		cfg.MaxResults = m.Workspace.MaxResults
	}
	if meta.IsDefined("workspace", "cache") {
		cfg.Cache = m.Workspace.Cache
	}
	for _, dir := range cfg.Include {
		if filepath.IsAbs(dir) {
			return Config{}, fmt.Errorf("%s: include dir %q must be relative", path, dir)
		}
		clean := filepath.Clean(filepath.FromSlash(dir))
		if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
			return Config{}, fmt.Errorf("%s: include dir %q escapes project root", path, dir)
		}
	}
	return cfg, nil
}

// Discover locates the project root above startDir and loads its config.
// Without a manifest the start directory itself is the root and defaults
// apply.
func Discover(startDir string) (Config, string, error) {
	manifestPath, ok, err := FindPerlspToml(startDir)
	if err != nil {
		return Config{}, "", err
	}
	if !ok {
		root, err := filepath.Abs(startDir)
		if err != nil {
			return Config{}, "", err
		}
		return DefaultConfig(), root, nil
	}
	cfg, err := LoadConfig(manifestPath)
	if err != nil {
		return Config{}, "", err
	}
	return cfg, filepath.Dir(manifestPath), nil
}

// IncludeRoots resolves the include dirs against the project root.
func (c Config) IncludeRoots(root string) []string {
	roots := make([]string, 0, len(c.Include))
	for _, dir := range c.Include {
		roots = append(roots, filepath.Join(root, filepath.FromSlash(dir)))
	}
	return roots
}

// Ignored reports whether a path (relative to the root, slash separated)
// matches an ignore glob. Patterns match the full relative path and each
// basename segment.
func (c Config) Ignored(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pat := range c.Ignore {
		if ok, _ := filepath.Match(pat, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(pat, rel[strings.LastIndexByte(rel, '/')+1:]); ok {
			return true
		}
	}
	return false
}

// Digest hashes the settings that affect analysis results. Cache keys are
// salted with it so a config change invalidates cached payloads.
func (c Config) Digest() Digest {
	h := sha256.New()
	inc := append([]string(nil), c.Include...)
	sort.Strings(inc)
	for _, d := range inc {
		fmt.Fprintf(h, "inc:%s\n", d)
	}
	ign := append([]string(nil), c.Ignore...)
	sort.Strings(ign)
	for _, p := range ign {
		fmt.Fprintf(h, "ign:%s\n", p)
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}
