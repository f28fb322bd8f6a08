// Package config loads chat client configuration from YAML.
//
// Files may reference environment variables with ${VAR}; they are expanded
// before parsing. Missing optional fields receive defaults; Validate reports
// the first invalid field with a path-style message.
package config
