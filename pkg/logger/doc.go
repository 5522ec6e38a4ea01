// Package logger builds *slog.Logger instances with functional options and
// provides attribute constructors so feature resolution logs use consistent
// keys across the codebase.
//
// New selects slog.NewTextHandler or slog.NewJSONHandler according to the
// configured Format and wraps it with LogHandlerDecorator, which runs the
// registered ContextExtractor callbacks for every record. This is how
// request-scoped values such as the environment end up in the output.
//
// # Usage
//
//	log := logger.New(
//		logger.WithEnvironment(environment.Production, "featurectl"),
//		logger.WithContextExtractors(environment.LoggerExtractor()),
//	)
//	log.WarnContext(ctx, "feature configuration refresh failed",
//		logger.Component("feature.cache"),
//		logger.Error(err),
//	)
//
// Constructors such as Error and RequestID return an empty slog.Attr for nil
// input, which slog drops silently.
package logger
