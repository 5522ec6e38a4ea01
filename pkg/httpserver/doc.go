// Package httpserver runs an http.Handler with graceful shutdown.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		return err
//	}
//
// Run returns once ctx is cancelled, SIGINT or SIGTERM arrives, or Shutdown
// is called. HealthCheckHandler serves liveness and readiness probes.
package httpserver
