package store

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// DefaultPackageCache returns the FHIR NPM package cache directory,
// ~/.fhir/packages, or "" when the home directory is unknown.
func DefaultPackageCache() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".fhir", "packages")
}

// ParsePackageSpec splits "name#version". The version is empty when the
// spec has no '#'.
func ParsePackageSpec(spec string) (name, version string) {
	name, version, _ = strings.Cut(spec, "#")
	return name, version
}

// LoadPackageSpec loads a package given either as a path to a .tgz file
// or as "name#version" resolved against the extracted packages in
// cacheDir.
func (s *Store) LoadPackageSpec(spec, cacheDir string) (int, error) {
	if strings.HasSuffix(spec, ".tgz") || strings.HasSuffix(spec, ".tar.gz") {
		return s.LoadPackage(spec)
	}

	name, version := ParsePackageSpec(spec)
	if version == "" {
		return 0, errors.Newf("package %q: expected a .tgz path or name#version", spec)
	}
	if cacheDir == "" {
		cacheDir = DefaultPackageCache()
	}

	dir := filepath.Join(cacheDir, name+"#"+version, "package")
	if _, err := os.Stat(dir); err != nil {
		return 0, errors.Wrapf(err, "package %s#%s not found in %s", name, version, cacheDir)
	}
	return s.LoadDir(dir)
}
