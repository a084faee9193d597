// Package app provides application initialization and lifecycle management for
// the fincast API server. It wires configuration, telemetry, the forecast and
// health services and the chi router together.
//
// # Initialization Flow
//
//  1. Resolve paths and create the output directories
//  2. Initialize OpenTelemetry (tracer, Prometheus-backed meter)
//  3. Create the observation loader and the forecast service
//  4. Set up middleware and handlers
//  5. Configure the HTTP server
//
// # Usage
//
//	cfg, _ := config.Load()
//	logger, _ := infrastructure.InitializeLogger(cfg.Logging)
//	application, err := app.NewApplication(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// # Graceful Shutdown
//
// Run returns once ctx is cancelled: in-flight requests get
// Server.ShutdownTimeout to finish and telemetry providers are flushed.
// The package never calls os.Exit.
package app
