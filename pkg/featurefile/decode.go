package featurefile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/togglekit/pkg/feature"
)

// Format is the encoding of a feature document.
type Format string

const (
	FormatJSON       Format = "json"
	FormatYAML       Format = "yaml"
	FormatProperties Format = "properties"
)

// ParseFormat maps a format name or file extension to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "properties", "props":
		return FormatProperties, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Decode reads a document of the given format. JSON and YAML documents are
// a list of entries and reject unknown fields. Entries must have unique,
// non-empty ids.
func Decode(format Format, r io.Reader) ([]Entry, error) {
	var (
		entries []Entry
		err     error
	)
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		err = dec.Decode(&entries)
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		err = dec.Decode(&entries)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	case FormatProperties:
		entries, err = decodeProperties(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, errors.Join(ErrInvalidDocument, err)
	}

	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("%w: entry %d has no featureId", ErrInvalidDocument, i)
		}
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("%w: feature %q appears twice", ErrInvalidDocument, e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	return entries, nil
}

// DecodeOverrides reads a document as an override snapshot.
func DecodeOverrides(format Format, r io.Reader) (map[string]feature.Override, error) {
	entries, err := Decode(format, r)
	if err != nil {
		return nil, err
	}
	out := make(map[string]feature.Override, len(entries))
	for _, e := range entries {
		out[e.ID] = e.Override()
	}
	return out, nil
}

// DecodeDefinitions reads a document as static definitions in document order.
func DecodeDefinitions(format Format, r io.Reader) ([]feature.Definition, error) {
	entries, err := Decode(format, r)
	if err != nil {
		return nil, err
	}
	defs := make([]feature.Definition, 0, len(entries))
	for _, e := range entries {
		def := e.Definition()
		if err := def.Validate(); err != nil {
			return nil, errors.Join(ErrInvalidDocument, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// Encode writes entries in the given format. Properties output is not supported.
func Encode(format Format, w io.Writer, entries []Entry) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
		_, err := w.Write(buf.Bytes())
		return err
	default:
		return fmt.Errorf("%w: cannot encode %q", ErrUnsupportedFormat, format)
	}
}
