// Package cli defines the Cobra command tree for the xdm-updater CLI. Each
// file registers one top-level command (check, repo, plugin, config, version)
// with the root command. Commands delegate to the internal packages and only
// handle flags, output formatting and polling of install progress.
package cli
