// Package config provides configuration loading for Orchestrator Core.
//
// Configuration is loaded from a YAML file with hardcoded defaults and
// environment variable overrides (ORCHESTRATOR_SECTION_KEY pattern).
//
// # Loading Order
//
//  1. Hardcoded defaults
//  2. YAML file values
//  3. Environment variables
//
// # Usage
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.MQTT.Broker.Host)
//
// Validation runs on every load; a config that fails validation is never
// returned to the caller.
package config
