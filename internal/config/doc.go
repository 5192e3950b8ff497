// Package config loads run configuration from JSON or YAML files.
//
// Every field is optional. Unset fields resolve to defaults through the
// Get* accessors, so a partial file only overrides what it names.
package config
