// Package routeros implements device.Gateway over the MikroTik RouterOS API
// (TCP 8728).
//
// Each Session wraps one API connection. Every command is bounded by the
// configured call timeout; a call that overruns closes the connection and
// reports device.ErrConnectivity, so the session is unusable afterwards.
package routeros
