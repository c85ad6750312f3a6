// Package app wires the intelligence engine together and manages its lifecycle.
//
// # Initialization Flow
//
//  1. Load configuration (defaults, YAML file, .env, INTEL_* variables)
//  2. Initialize logging and OpenTelemetry
//  3. Open and migrate the Postgres result archive when enabled
//  4. Create the loader, report exporter, intel and health services
//  5. Set up middleware, routes and the HTTP server
//
// # Usage
//
//	application, err := app.NewApplication(ctx, "configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Startup
//
// Start restores the newest archived run so the API answers immediately.
// When nothing was restored and server.run_on_start is set, a first run is
// started in the background; readiness reports not_ready until it finishes.
//
// # Graceful Shutdown
//
// Run stops on SIGINT or SIGTERM. Stop drains in-flight requests, waits for
// the startup run, closes the archive and flushes telemetry.
package app
