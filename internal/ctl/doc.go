// Package ctl implements hotspotctl, the operator command line: issuing
// API tokens, checking the router and listing pending requests.
package ctl
