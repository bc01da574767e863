// Package config handles loading and validating hkbridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// The broker section holds bootstrap defaults only: once the user has
// saved broker settings through the bridge, the persisted copy in the
// settings store takes precedence (see internal/settings).
//
// Security Considerations:
//   - Sensitive values (broker password, InfluxDB token) should be set
//     via environment variables
//   - The config file should have restricted permissions (0600)
//
// Performance Characteristics:
//   - Configuration is loaded once at startup
//   - No runtime overhead after initial load
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Broker.Host)
package config
