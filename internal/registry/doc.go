// Package registry discovers plugins published in remote repositories,
// compares them with the plugins installed locally and drives installs. A
// Registry owns one Repository per configured listing URL; each Repository
// caches the descriptors its listing advertises. Installs are reported step
// by step through a journal that a UI can poll while the install runs.
package registry
