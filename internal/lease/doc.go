// Package lease computes the validity window of a provisioned hotspot
// account: package tiers, their durations and the expiry timestamp in the
// representations needed by the router scheduler and by operators.
//
// Everything here is pure. "Now" reaches callers through Clock so tests can
// freeze it.
package lease
