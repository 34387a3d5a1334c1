// Package manifest maintains the index of every GeoJSON file produced under a data root.
package manifest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

const (
	// FileName is the manifest written at the data root.
	FileName = "manifest.json"
	// ConsumerDirName is the map client directory, a sibling of the data root, that entry paths are relative to.
	ConsumerDirName = "kakao-map"
	geojsonDirName  = "geojson"
	geojsonExt      = ".geojson"
)

var (
	yearDirPattern    = regexp.MustCompile(`^\d{4}$`)
	monthTokenPattern = regexp.MustCompile(`\d{6}`)
)

// Entry is one spatial output file in the manifest.
type Entry struct {
	Path  string `json:"path"`
	Label string `json:"label"`
}

// DefaultConsumerDir returns the consumer directory used when none is configured.
func DefaultConsumerDir(root string) string {
	return filepath.Join(filepath.Dir(filepath.Clean(root)), ConsumerDirName)
}

// Label derives the display label from the first 6-digit token of a file name ("YYYY.MM"),
// falling back to the name without extension.
func Label(name string) string {
	if token := monthTokenPattern.FindString(name); token != "" {
		return token[:4] + "." + token[4:]
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Build scans <root>/<YYYY>/geojson/*.geojson and returns entries sorted by label, then path.
// Paths are relative to consumerDir and use forward slashes.
func Build(root, consumerDir string) ([]Entry, error) {
	absConsumer, err := filepath.Abs(consumerDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve consumer directory: %w", err)
	}

	years, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read data root: %w", err)
	}

	entries := []Entry{}
	for _, year := range years {
		if !year.IsDir() || !yearDirPattern.MatchString(year.Name()) {
			continue
		}

		dir := filepath.Join(root, year.Name(), geojsonDirName)
		files, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", dir, err)
		}

		for _, file := range files {
			if file.IsDir() || filepath.Ext(file.Name()) != geojsonExt {
				continue
			}

			abs, err := filepath.Abs(filepath.Join(dir, file.Name()))
			if err != nil {
				return nil, fmt.Errorf("failed to resolve %s: %w", file.Name(), err)
			}
			rel, err := filepath.Rel(absConsumer, abs)
			if err != nil {
				return nil, fmt.Errorf("failed to relativize %s: %w", abs, err)
			}

			entries = append(entries, Entry{Path: filepath.ToSlash(rel), Label: Label(file.Name())})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Label != entries[j].Label {
			return entries[i].Label < entries[j].Label
		}
		return entries[i].Path < entries[j].Path
	})

	return entries, nil
}

// Write rebuilds the manifest from disk and stores it at <root>/manifest.json.
// An empty consumerDir means DefaultConsumerDir(root).
func Write(root, consumerDir string, log *slog.Logger) ([]Entry, error) {
	if consumerDir == "" {
		consumerDir = DefaultConsumerDir(root)
	}

	entries, err := Build(root, consumerDir)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(root, FileName)
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create manifest: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close manifest: %w", err)
	}

	log.Info("Manifest updated", "path", path, "items", len(entries))

	return entries, nil
}
