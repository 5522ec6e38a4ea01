// Package requestid correlates log records that belong to one HTTP request or
// one command-line invocation.
//
//	r.Use(requestid.Middleware)
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
//	log.InfoContext(requestid.Ensure(ctx), "refreshing overrides")
package requestid
