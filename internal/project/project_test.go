package project_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/project"
)

func writeManifest(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "perlsp.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFindPerlspTomlWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "")
	nested := filepath.Join(root, "lib", "Foo")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	path, ok, err := project.FindPerlspToml(nested)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected to find perlsp.toml")
	}
	if filepath.Dir(path) != root {
		t.Fatalf("found %q, want under %q", path, root)
	}

	gotRoot, ok, err := project.FindProjectRoot(nested)
	if err != nil || !ok {
		t.Fatalf("FindProjectRoot = %v, %v", ok, err)
	}
	if gotRoot != root {
		t.Fatalf("root = %q, want %q", gotRoot, root)
	}
}

func TestLoadConfigDefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
[workspace]
include = ["lib", "local/lib"]
ignore = ["*.bak", "blib/*"]
max_results = 50
`)
	cfg, err := project.LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Include) != 2 || cfg.Include[1] != "local/lib" {
		t.Fatalf("include = %v", cfg.Include)
	}
	if cfg.MaxResults != 50 {
		t.Fatalf("max_results = %d", cfg.MaxResults)
	}
	// keys absent from the file keep their defaults
	def := project.DefaultConfig()
	if cfg.MaxDiagnostics != def.MaxDiagnostics || cfg.Cache != def.Cache {
		t.Fatalf("defaults not preserved: %+v", cfg)
	}
}

func TestLoadConfigRejectsEscapingInclude(t *testing.T) {
	dir := t.TempDir()
	for _, bad := range []string{`include = ["../elsewhere"]`, `include = ["/abs/path"]`} {
		path := writeManifest(t, dir, "[workspace]\n"+bad+"\n")
		if _, err := project.LoadConfig(path); err == nil {
			t.Fatalf("expected error for %s", bad)
		}
	}
}

func TestDiscoverWithoutManifest(t *testing.T) {
	dir := t.TempDir()
	cfg, root, err := project.Discover(dir)
	if err != nil {
		t.Fatal(err)
	}
	if evaled, _ := filepath.EvalSymlinks(root); evaled != dir {
		if root != dir {
			t.Fatalf("root = %q, want %q", root, dir)
		}
	}
	def := project.DefaultConfig()
	if cfg.MaxResults != def.MaxResults || len(cfg.Include) != len(def.Include) {
		t.Fatalf("cfg = %+v, want defaults", cfg)
	}
}

func TestIgnoredGlobs(t *testing.T) {
	cfg := project.Config{Ignore: []string{"*.bak", "blib/*", ".git"}}
	cases := []struct {
		rel  string
		want bool
	}{
		{"lib/Foo.pm", false},
		{"lib/Foo.pm.bak", true},
		{"blib/Foo.pm", true},
		{".git", true},
		{"t/basic.t", false},
	}
	for _, tc := range cases {
		if got := cfg.Ignored(tc.rel); got != tc.want {
			t.Errorf("Ignored(%q) = %v, want %v", tc.rel, got, tc.want)
		}
	}
}

func TestPackagePathMapping(t *testing.T) {
	cases := []struct {
		pkg  string
		rel  string
		okay bool
	}{
		{"Foo", "Foo.pm", true},
		{"Foo::Bar", "Foo/Bar.pm", true},
		{"Math::Util::V2", "Math/Util/V2.pm", true},
		{"", "", false},
		{"Foo::", "", false},
		{"9Lives", "", false},
	}
	for _, tc := range cases {
		rel, err := project.PackageToRelPath(tc.pkg)
		if tc.okay != (err == nil) {
			t.Errorf("PackageToRelPath(%q) err = %v", tc.pkg, err)
			continue
		}
		if !tc.okay {
			continue
		}
		if rel != tc.rel {
			t.Errorf("PackageToRelPath(%q) = %q, want %q", tc.pkg, rel, tc.rel)
		}
		back, ok := project.PackageFromRelPath(rel)
		if !ok || back != tc.pkg {
			t.Errorf("PackageFromRelPath(%q) = %q, %v", rel, back, ok)
		}
	}
	if _, ok := project.PackageFromRelPath("script.pl"); ok {
		t.Error("PackageFromRelPath accepted a .pl file")
	}
}

func TestFindModuleFile(t *testing.T) {
	root := t.TempDir()
	lib := filepath.Join(root, "lib", "Math")
	if err := os.MkdirAll(lib, 0o755); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(lib, "Util.pm")
	if err := os.WriteFile(target, []byte("package Math::Util;\n1;\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	roots := []string{filepath.Join(root, "lib"), root}

	got, ok := project.FindModuleFile(roots, "Math::Util")
	if !ok || got != target {
		t.Fatalf("FindModuleFile = %q, %v", got, ok)
	}
	if _, ok := project.FindModuleFile(roots, "No::Such"); ok {
		t.Fatal("expected miss for absent module")
	}
}

func TestConfigDigestChangesWithSettings(t *testing.T) {
	a := project.Config{Include: []string{"lib"}}
	b := project.Config{Include: []string{"lib", "local"}}
	if a.Digest() == b.Digest() {
		t.Fatal("digests should differ for different include sets")
	}
	if a.Digest() != a.Digest() {
		t.Fatal("digest must be deterministic")
	}
}
