package config

import "time"

// Application constants
const (
	// Application Info
	AppName    = "praxiotech-intelligence-engine"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment variable (INTEL_SERVER_PORT, ...)
	EnvPrefix = "INTEL"

	// Server
	DefaultPort       = 8080
	DefaultRunTimeout = 5 * time.Minute

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// File Paths
	DefaultOutputDir = "reports"
)
