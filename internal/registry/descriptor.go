package registry

import (
	"fmt"
	"slices"

	"github.com/xdm-project/xdm-updater/internal/version"
)

// Format is the packaging of a plugin as advertised by a repository.
type Format int

const (
	FormatUnknown Format = iota
	FormatArchive
	FormatRawSource
)

// ParseFormat maps the wire value of a listing entry to a Format.
func ParseFormat(s string) Format {
	switch s {
	case "zip":
		return FormatArchive
	case "py":
		return FormatRawSource
	default:
		return FormatUnknown
	}
}

func (f Format) String() string {
	switch f {
	case FormatArchive:
		return "zip"
	case FormatRawSource:
		return "py"
	default:
		return "unknown"
	}
}

// Descriptor is one version of one plugin as listed by a repository.
// Identifier is the join key with installed plugins; Name is display only.
type Descriptor struct {
	Identifier  string
	Name        string
	Description string
	Version     version.Pair
	Format      Format
	RawFormat   string
	UpdateURL   string
	DownloadURL string
	Kind        string
	IsLocal     bool
	Repository  string
}

// VersionHuman renders the version as "major.minor".
func (d Descriptor) VersionHuman() string {
	return d.Version.String()
}

// CheckKind reports whether the declared plugin kind is one of known.
func (d Descriptor) CheckKind(known []string) bool {
	return slices.Contains(known, d.Kind)
}

func (d Descriptor) String() string {
	return fmt.Sprintf("Name: %s, identifier: %s, download_url: %s, desc: %s", d.Name, d.Identifier, d.DownloadURL, d.Description)
}

// listing is the JSON body served by a repository URL.
type listing struct {
	Name    string                   `json:"name"`
	Plugins map[string][]versionInfo `json:"plugins"`
}

type versionInfo struct {
	MajorVersion int    `json:"major_version"`
	MinorVersion int    `json:"minor_version"`
	Format       string `json:"format"`
	Name         string `json:"name"`
	Desc         string `json:"desc"`
	UpdateURL    string `json:"update_url"`
	DownloadURL  string `json:"download_url"`
	Type         string `json:"type"`
}

// descriptors flattens the listing into one Descriptor per version entry,
// ordered by identifier and then by listing order.
func (l *listing) descriptors(repoURL string) []Descriptor {
	ids := make([]string, 0, len(l.Plugins))
	for id := range l.Plugins {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var out []Descriptor
	for _, id := range ids {
		for _, info := range l.Plugins[id] {
			out = append(out, Descriptor{
				Identifier:  id,
				Name:        info.Name,
				Description: info.Desc,
				Version:     version.New(info.MajorVersion, info.MinorVersion),
				Format:      ParseFormat(info.Format),
				RawFormat:   info.Format,
				UpdateURL:   info.UpdateURL,
				DownloadURL: info.DownloadURL,
				Kind:        info.Type,
				Repository:  repoURL,
			})
		}
	}
	return out
}
