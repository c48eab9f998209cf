// Package persist writes and reads YAML manifests describing the state of
// a caching system: which cachers exist, how many entries they hold and
// their hit/miss counters.
//
// Manifests describe state, they do not serialize GPU resources; a loaded
// manifest is used to verify that a running system carries the expected
// registrations and to warm diagnostics, not to restore device objects.
//
// Save writes one file per scope so large systems persist in parallel:
//
//	<dir>/global.yaml
//	<dir>/devices/device-<id>.yaml
package persist
