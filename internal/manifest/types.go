package manifest

import (
	"slices"

	"github.com/xdm-project/xdm-updater/internal/version"
)

// FileName is the manifest file expected at the top of every plugin folder.
const FileName = "plugin.yaml"

// DefaultInstance is the instance a manifest belongs to when it lists none.
const DefaultInstance = "Default"

// Manifest describes one installed plugin.
type Manifest struct {
	Identifier  string   `yaml:"identifier" json:"identifier"`
	Name        string   `yaml:"name" json:"name"`
	Version     string   `yaml:"version" json:"version"`
	Type        string   `yaml:"type,omitempty" json:"type,omitempty"`
	Format      string   `yaml:"format,omitempty" json:"format,omitempty"`
	UpdateURL   string   `yaml:"update_url,omitempty" json:"update_url,omitempty"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Author      string   `yaml:"author,omitempty" json:"author,omitempty"`
	Instances   []string `yaml:"instances,omitempty" json:"instances,omitempty"`
}

// Pair parses Version.
func (m *Manifest) Pair() (version.Pair, error) {
	return version.Parse(m.Version)
}

// InInstance reports whether the plugin is configured for instance.
func (m *Manifest) InInstance(instance string) bool {
	if len(m.Instances) == 0 {
		return instance == DefaultInstance
	}
	return slices.Contains(m.Instances, instance)
}
