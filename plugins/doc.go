// Package plugins collects example configurator-style plugins: each is a
// func(*ingest.Server) (interface{}, error) suitable for registration
// through a PluginLoader descriptor, demonstrating the plugin descriptor
// contract rather than forming part of the core.
package plugins
