// Package config loads the scaffold runtime configuration from a JSON file,
// applies defaults relative to the file location and honours a small set of
// environment overrides such as SCAFFOLD_TARGET_CHAIN_ID.
package config
