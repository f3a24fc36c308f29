package store

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/phcore/validator/pkg/logger"
)

// LoadDirs loads every directory in order. Directories that do not exist
// are skipped with a warning.
func (s *Store) LoadDirs(dirs ...string) (int, error) {
	total := 0
	for _, dir := range dirs {
		n, err := s.LoadDir(dir)
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("resource directory %s does not exist, skipping", dir)
			continue
		}
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// LoadDir loads the *.json, *.yaml and *.yml files directly inside dir.
// Files that cannot be read or parsed are logged and skipped.
func (s *Store) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, errors.Wrapf(err, "read resource directory %s", dir)
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() || !isResourceFile(entry.Name()) {
			continue
		}
		filePath := filepath.Join(dir, entry.Name())
		n, err := s.LoadFile(filePath)
		if err != nil {
			logger.Warn("error loading %s: %v", filePath, err)
			continue
		}
		count += n
	}
	logger.Debug("loaded %d resources from %s", count, dir)
	return count, nil
}

// LoadFile loads a single resource file. A Bundle is expanded into its
// entry resources.
func (s *Store) LoadFile(filePath string) (int, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return 0, errors.Wrap(err, "read resource file")
	}

	var content map[string]any
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		content, data, err = decodeYAML(data)
	default:
		content, err = decodeJSON(data)
	}
	if err != nil {
		return 0, errors.Wrapf(err, "parse %s", filepath.Base(filePath))
	}
	return s.addDocument(content, data, filePath), nil
}

// LoadPackage loads the resources of a FHIR NPM package tarball (.tgz).
func (s *Store) LoadPackage(tgzPath string) (int, error) {
	file, err := os.Open(tgzPath)
	if err != nil {
		return 0, errors.Wrap(err, "open package")
	}
	defer file.Close()

	return s.LoadPackageReader(file, tgzPath)
}

// LoadPackageReader loads a gzipped tar stream laid out as a FHIR NPM
// package. package.json and .index.json are ignored.
func (s *Store) LoadPackageReader(r io.Reader, source string) (int, error) {
	gzReader, err := gzip.NewReader(r)
	if err != nil {
		return 0, errors.Wrap(err, "create gzip reader")
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)
	count := 0
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, errors.Wrap(err, "read tar entry")
		}
		if header.Typeflag == tar.TypeDir {
			continue
		}

		name := strings.TrimPrefix(header.Name, "package/")
		if !strings.HasSuffix(name, ".json") || name == "package.json" || name == ".index.json" {
			continue
		}

		data, err := io.ReadAll(tarReader)
		if err != nil {
			continue
		}
		content, err := decodeJSON(data)
		if err != nil {
			logger.Warn("error loading %s!%s: %v", source, name, err)
			continue
		}
		count += s.addDocument(content, data, source+"!"+name)
	}
	return count, nil
}

func (s *Store) addDocument(content map[string]any, raw []byte, source string) int {
	if content["resourceType"] == "Bundle" {
		if entries, ok := content["entry"].([]any); ok {
			return s.addBundleEntries(entries, source)
		}
	}
	if _, ok := s.Add(content, raw, source); ok {
		return 1
	}
	return 0
}

func (s *Store) addBundleEntries(entries []any, source string) int {
	count := 0
	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		res, ok := entry["resource"].(map[string]any)
		if !ok {
			continue
		}
		raw, err := json.Marshal(res)
		if err != nil {
			continue
		}
		if _, ok := s.Add(res, raw, source); ok {
			count++
		}
	}
	return count
}

// LogSummary logs the number of loaded resources per kind.
func (s *Store) LogSummary() {
	counts := s.CountByKind()
	for _, kind := range s.Kinds() {
		logger.Info("  %s: %d", kind, counts[kind])
	}
}

func isResourceFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func decodeJSON(data []byte) (map[string]any, error) {
	var content map[string]any
	if err := json.Unmarshal(data, &content); err != nil {
		return nil, err
	}
	if content == nil {
		return nil, errors.New("document is not an object")
	}
	return content, nil
}

// decodeYAML returns the decoded tree together with its JSON encoding.
func decodeYAML(data []byte) (map[string]any, []byte, error) {
	var content map[string]any
	if err := yaml.Unmarshal(data, &content); err != nil {
		return nil, nil, err
	}
	if content == nil {
		return nil, nil, errors.New("document is not a mapping")
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, nil, errors.Wrap(err, "re-encode yaml as json")
	}
	// Round-trip so numbers and nested mappings match the JSON decoder.
	normalized, err := decodeJSON(raw)
	if err != nil {
		return nil, nil, err
	}
	return normalized, raw, nil
}
