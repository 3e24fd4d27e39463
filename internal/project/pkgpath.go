package project

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// IsValidPackageName reports whether name is a well-formed Perl package
// name: "::"-separated identifiers, each starting with a letter or '_'.
func IsValidPackageName(name string) bool {
	if name == "" {
		return false
	}
	for _, seg := range strings.Split(name, "::") {
		if seg == "" {
			return false
		}
		for i, r := range seg {
			if r > unicode.MaxASCII {
				return false
			}
			if i == 0 && r != '_' && !unicode.IsLetter(r) {
				return false
			}
			if i > 0 && r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				return false
			}
		}
	}
	return true
}

// PackageToRelPath maps a package name to its conventional module file,
// e.g. "Foo::Bar" to "Foo/Bar.pm".
func PackageToRelPath(name string) (string, error) {
	if !IsValidPackageName(name) {
		return "", errors.New("invalid package name")
	}
	return strings.ReplaceAll(name, "::", "/") + ".pm", nil
}

// PackageFromRelPath maps a module file path back to its package name,
// e.g. "Foo/Bar.pm" to "Foo::Bar". The path is taken relative to an
// include root.
func PackageFromRelPath(rel string) (string, bool) {
	rel = filepath.ToSlash(rel)
	if !strings.HasSuffix(rel, ".pm") {
		return "", false
	}
	name := strings.ReplaceAll(rel[:len(rel)-len(".pm")], "/", "::")
	if !IsValidPackageName(name) {
		return "", false
	}
	return name, true
}

// FindModuleFile searches the include roots for the file backing a
// package, in declaration order like @INC.
func FindModuleFile(roots []string, name string) (string, bool) {
	rel, err := PackageToRelPath(name)
	if err != nil {
		return "", false
	}
	for _, root := range roots {
		candidate := filepath.Join(root, filepath.FromSlash(rel))
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}
