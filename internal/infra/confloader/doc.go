// Package confloader loads server configuration from multiple sources
// using koanf.
//
// Priority (highest to lowest):
//
//  1. Command-line flags (loaded as a map by the caller)
//  2. Environment variables (QRIFC_ prefix)
//  3. Configuration file (YAML)
//  4. Default values
//
// A companion fsnotify watcher triggers reload callbacks when the
// config file changes on disk.
package confloader
