// Package bootstrap turns the process configuration into a ready feature
// engine: it loads definitions, connects the configured override source,
// and attaches the cache, Prometheus metrics and the optional file watcher.
package bootstrap
