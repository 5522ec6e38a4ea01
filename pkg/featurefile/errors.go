package featurefile

import "errors"

var (
	// ErrUnsupportedFormat is returned for document formats other than json, yaml and properties.
	ErrUnsupportedFormat = errors.New("unsupported feature document format")

	// ErrInvalidDocument is returned when a document cannot be decoded or holds invalid entries.
	ErrInvalidDocument = errors.New("invalid feature document")

	// ErrInvalidConfig is returned when a source is created with incomplete configuration.
	ErrInvalidConfig = errors.New("invalid feature source configuration")
)
