// Package config manages user-level settings stored at ~/.xdm/config.yaml.
// Every setting can be overridden from the environment with the XDM_ prefix,
// e.g. XDM_EXTRA_PLUGIN_PATH.
package config
