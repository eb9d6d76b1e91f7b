package updater

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// NoUpdateMessage is the message of a default Result.
const NoUpdateMessage = "No update needed"

// Result is the outcome of one update check.
type Result struct {
	NeedsUpdate     bool           `json:"needs_update"`
	LocalVersion    string         `json:"local_version"`
	ExternalVersion string         `json:"external_version"`
	Message         string         `json:"message"`
	Extra           map[string]any `json:"extra,omitempty"`
}

// NewResult returns a Result in the default state.
func NewResult() *Result {
	return new(Result).Default()
}

// Default resets r to the default state and returns it.
func (r *Result) Default() *Result {
	r.NeedsUpdate = false
	r.LocalVersion = ""
	r.ExternalVersion = ""
	r.Message = NoUpdateMessage
	r.Extra = map[string]any{}
	return r
}

// Dirty reports whether the check was skipped because of local changes.
func (r *Result) Dirty() bool {
	dirty, _ := r.Extra["dirty"].(bool)
	return dirty
}

func (r *Result) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "needs update: %t\n", r.NeedsUpdate)
	fmt.Fprintf(&b, "local version: %s\n", r.LocalVersion)
	fmt.Fprintf(&b, "external version: %s\n", r.ExternalVersion)
	fmt.Fprintf(&b, "message: %s", r.Message)
	for _, k := range slices.Sorted(maps.Keys(r.Extra)) {
		fmt.Fprintf(&b, "\n%s: %v", k, r.Extra[k])
	}
	return b.String()
}
