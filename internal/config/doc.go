// Package config provides configuration loading, merging, and path management for the orchestrator.
//
// This package handles the configuration a driver loop needs to pick
// a model, a tool permission policy, and provider credentials, merging
// several sources with a fixed precedence.
//
// # Configuration Loading
//
// The Load function searches for and merges configuration from multiple
// sources in priority order:
//
//  1. Global config (~/.config/orchestrator/ - XDG compatible)
//  2. Project config in the session's working directory
//     (.orchestrator/orchestrator.json and .orchestrator/orchestrator.jsonc)
//  3. ORCHESTRATOR_CONFIG file
//  4. ORCHESTRATOR_CONFIG_CONTENT inline JSON
//  5. Environment variables
//
// Configuration files are loaded in a specific order to ensure that more specific
// configurations override more general ones, while environment variables have the
// highest precedence.
//
// # Supported Formats
//
// The package supports both JSON and JSONC (JSON with Comments) formats:
//   - orchestrator.json - Standard JSON configuration
//   - orchestrator.jsonc - JSON with comments; // and /* */ comments are
//     stripped by a regular expression before decoding
//
// # Configuration Merging
//
// When multiple configuration sources are found, each later source is merged
// over the earlier ones; the merge is shallow:
//   - $schema, model, small_model and username are overwritten when non-empty
//   - provider and agent maps are combined by key; an entry for the same key
//     replaces the earlier entry whole
//   - permission, mcp, command, lsp, watcher and experimental are replaced
//     whole when present
//   - other fields are not merged, and arrays are never appended
//
// # Path Management
//
// The package provides XDG Base Directory Specification compliant path management
// through the Paths type:
//   - Data: ~/.local/share/orchestrator (XDG_DATA_HOME)
//   - Config: ~/.config/orchestrator (XDG_CONFIG_HOME)
//   - Cache: ~/.cache/orchestrator (XDG_CACHE_HOME)
//   - State: ~/.local/state/orchestrator (XDG_STATE_HOME)
//
// On Windows, these paths are adapted to use APPDATA as appropriate.
//
// # Environment Variable Overrides
//
// Several environment variables provide direct configuration overrides:
//   - ORCHESTRATOR_MODEL - Override the default model
//   - ORCHESTRATOR_SMALL_MODEL - Override the small model
//   - ORCHESTRATOR_CONFIG - Path to a specific config file
//   - ORCHESTRATOR_CONFIG_CONTENT - Inline JSON configuration
//   - ANTHROPIC_API_KEY, OPENAI_API_KEY, GOOGLE_API_KEY, AWS_ACCESS_KEY_ID -
//     fill a provider's apiKey when the config leaves it empty
//
// # Usage Example
//
//	// Load configuration from the current directory
//	config, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Get standard paths
//	paths := config.GetPaths()
//	err = paths.EnsurePaths() // Create directories if they don't exist
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Save configuration
//	err = config.Save(config, config.GlobalConfigPath())
//	if err != nil {
//	    log.Fatal(err)
//	}
package config