// Package config provides centralized configuration management for the IDQ
// enrichment pipeline. It handles loading configuration from multiple sources,
// validation, and provides a type-safe API for accessing configuration values
// throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration file (YAML)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern IDQ_* for namespacing:
//
//	IDQ_SERVER_PORT=8080
//	IDQ_MARKETPLACE_BASE_URL=https://sellingpartnerapi-eu.amazon.com
//	IDQ_MARKETPLACE_REFRESH_TOKEN=...
//	IDQ_PIPELINE_SKU_NORMALIZATION=strip_suffix
//	IDQ_LOGGING_LEVEL=info
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
