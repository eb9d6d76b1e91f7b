// Package installer turns a downloaded plugin package into a plugin folder
// on disk. Archive handles zip and gzip'd tar packages: it downloads into
// memory, extracts into a scratch directory, locates the folder named after
// the plugin and moves it into the plugin install path.
package installer
