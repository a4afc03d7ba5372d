// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, runtime metrics and debug introspection for page processes.
//
// Provides concurrent-safe state handling primitives including:
//   - typed YAML configuration with defaults and validation
//   - a key/value ConfigStore with reload listeners
//   - gauge and counter telemetry
//   - probe registration and state export
package control
