package featurefile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrymomot/togglekit/pkg/feature"
)

// LocalSource reads overrides from a document on the local file system.
// The file is read on every fetch; caching is left to feature.Cache.
type LocalSource struct {
	path   string
	format Format
}

// NewLocalSource creates a source for the document at path. An empty format
// is derived from the file extension.
func NewLocalSource(path string, format Format) (*LocalSource, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidConfig)
	}
	format, err := resolveFormat(path, format)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &LocalSource{path: abs, format: format}, nil
}

// Path returns the absolute path of the document.
func (s *LocalSource) Path() string { return s.path }

// Fetch implements feature.Source.
func (s *LocalSource) Fetch(ctx context.Context) (map[string]feature.Override, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, errors.Join(feature.ErrSourceUnavailable, err)
	}
	defer f.Close()

	overrides, err := DecodeOverrides(s.format, f)
	if err != nil {
		return nil, errors.Join(feature.ErrSourceUnavailable, fmt.Errorf("%s: %w", s.path, err))
	}
	return overrides, nil
}

// LoadDefinitions reads static definitions from the document at path.
func LoadDefinitions(path string, format Format) ([]feature.Definition, error) {
	format, err := resolveFormat(path, format)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeDefinitions(format, f)
}

// resolveFormat normalizes format, falling back to the extension of path.
func resolveFormat(path string, format Format) (Format, error) {
	if format == "" {
		format = Format(filepath.Ext(path))
	}
	return ParseFormat(string(format))
}
