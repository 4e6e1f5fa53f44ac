// Package config loads the settings the xrmsoap client and CLI run with.
//
// Values are layered with the following precedence (highest to lowest):
//
//  1. Command-line flags (applied by the CLI through Set)
//  2. Environment variables (XRMSOAP_* prefix)
//  3. Config file (--config, XRMSOAP_CONFIG, or xrmsoap.yaml in the
//     current directory)
//  4. Default values
//
// The file is YAML and may reference environment variables as ${VAR} or
// ${VAR:-default}:
//
//	orgUrl: https://crm.contoso.com/contoso
//	timeout: 30s
//	pageSize: 500
//	headers:
//	  Authorization: Bearer ${CRM_TOKEN}
//	log:
//	  level: debug
//	  format: json
//
// The source of every value is tracked in Config.Sources for diagnostics.
package config
