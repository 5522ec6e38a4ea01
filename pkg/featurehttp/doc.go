// Package featurehttp serves a read-only JSON view of a feature engine over HTTP.
// See Router for the routes.
package featurehttp
