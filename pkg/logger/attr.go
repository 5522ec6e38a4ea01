package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Feature records the feature identifier under the key "feature".
func Feature(id string) slog.Attr {
	return slog.String("feature", id)
}

// Strategy records a strategy name under the key "strategy".
func Strategy(name string) slog.Attr {
	return slog.String("strategy", name)
}

// Instance records a feature instance identifier under the key "instance".
func Instance(id string) slog.Attr {
	return slog.String("instance", id)
}

// Snapshot records the override snapshot identifier under the key "snapshot".
func Snapshot(id string) slog.Attr {
	return slog.String("snapshot", id)
}

// Source records the configuration source type under the key "source".
// If kind is empty, it returns an empty Attr.
func Source(kind string) slog.Attr {
	if kind == "" {
		return slog.Attr{}
	}
	return slog.String("source", kind)
}

// RequestID records the request identifier under the key "request_id".
// If id is nil, it returns an empty Attr.
func RequestID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("request_id", id)
}

// Duration records a duration under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
