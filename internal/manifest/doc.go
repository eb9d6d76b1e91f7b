// Package manifest reads the plugin.yaml manifests of locally installed
// plugins. Every manifest is validated against an embedded JSON schema before
// it is trusted; Scanner walks the plugin install paths and exposes the valid
// manifests as the installed plugin collection used by the registry.
package manifest
