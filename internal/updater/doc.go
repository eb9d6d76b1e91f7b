// Package updater checks whether the running XDM instance is out of date.
// The install type (packaged binary, Mac app, git checkout, plain source) is
// detected once and selects the strategy used for every check; only git
// checkouts can actually be compared against a remote. The package also
// checks individual plugins against their published update descriptors and
// keeps the last result on disk so the CLI can show a banner without a
// network round trip.
package updater
