// Package config provides configuration loading for fincast.
//
// Values are layered in order of precedence:
//
//  1. Environment variables (FINCAST_*)
//  2. A YAML file (config.yaml, configs/config.yaml or FINCAST_CONFIG_FILE)
//  3. Default()
//
// Nested sections map onto env names by joining the struct tags, e.g.
//
//	FINCAST_SERVER_PORT=9090
//	FINCAST_FORECAST_POLICY=ramp
//	FINCAST_FORECAST_YEARS=2025,2026,2027
//	FINCAST_FORECAST_MULTIPLIERS=Base:1.0,Optimistic:1.3
//	FINCAST_FORECAST_RAMP=2025:0.3,2026:0.6,2027:1.0
//	FINCAST_PATHS_DATA_FILE=data/raw/ethiopia_fi_unified_data.xlsx
//
// Load validates struct tags with validator/v10 and then the semantic rules
// (known policy and unit, ramp fractions within [0,1], canonical scenarios).
package config
