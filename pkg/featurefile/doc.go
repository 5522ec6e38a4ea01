// Package featurefile reads feature documents and serves them as override
// sources.
//
// A document is a list of entries in JSON, YAML or Java-style properties
// format. JSON and YAML use the same field names:
//
//	[
//	  {
//	    "featureId": "storage",
//	    "enabled": true,
//	    "featureInstances": ["local", "s3"],
//	    "currentInstance": "s3",
//	    "strategy": {"name": "AllowValues", "active": true, "config": {"allow-values": "yes,no"}}
//	  }
//	]
//
// Properties documents use feature.<id>.<property> keys:
//
//	feature.storage.enabled=true
//	feature.storage.featureInstances=local,s3
//	feature.storage.strategy=AllowValues
//	feature.storage.strategy.allow-values=yes,no
//
// LocalSource and S3Source implement feature.Source by reading and decoding
// the document on every fetch. Watcher invalidates a cache when a local
// document changes.
package featurefile
