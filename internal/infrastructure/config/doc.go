// Package config loads fleetd's YAML configuration, applies GRAYLOGIC_*
// environment overrides and validates the result.
//
// Secrets (MQTT password, InfluxDB token, JWT secret) are expected from
// the environment. The JWT secret has no default and must be at least
// 32 characters.
//
//	cfg, err := config.Load("configs/config.yaml")
package config
