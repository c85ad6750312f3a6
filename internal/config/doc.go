// Package config provides centralized configuration management for the
// intelligence engine. It handles loading configuration from multiple sources,
// validation, and conversion into the immutable engine configuration.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//  1. Environment variables (highest priority), optionally from a .env file
//  2. The YAML configuration file
//  3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern INTEL_* for namespacing:
//
//	INTEL_SERVER_PORT=8080
//	INTEL_LOGGING_LEVEL=debug
//	INTEL_INPUT_ESTABLISHMENTS_FILE=data/berlin.xlsx
//	INTEL_RUN_AS_OF=2024-06-30
//	INTEL_RUN_WEIGHTS=0.30,0.25,0.20,0.15,0.10
//	INTEL_STORAGE_DSN=postgres://...
//
// The scoring constants, opportunity rules and momentum thresholds live under
// the "engine" key of the YAML file only.
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	engineCfg, err := cfg.EngineConfig(time.Now())
package config
