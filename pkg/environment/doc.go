// Package environment propagates the current application environment
// (development, staging, production or a custom name) through
// context.Context, HTTP requests and structured logs.
//
// The Environment strategy of the feature package reads the value set here
// by default, so a feature configured with environments=staging,production
// is only enabled for requests tagged with one of those environments.
//
// # Usage
//
//	env := environment.Parse(os.Getenv("APP_ENV"))
//	handler = environment.Middleware(env)(handler)
//
//	if environment.IsProduction(ctx) {
//	    // production-specific behaviour
//	}
//
// LoggerExtractor plugs into logger.WithContextValue so every record logged
// with a request context carries an "env" attribute.
//
// Missing values result in the zero value ("").
package environment
