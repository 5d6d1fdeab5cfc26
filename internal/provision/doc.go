// Package provision is the lease provisioning engine. It turns operator
// decisions on pending purchases into router state: an approval enables the
// prepared hotspot account and installs its expiry job, a rejection removes
// the account and the request.
//
// The router offers no multi-step transaction, so the approval steps that
// mutate it run as a saga: each action is paired with a compensation that
// undoes it when a later step fails. Every workflow for a username holds a
// per-username lock from loading the request until it finishes, and uses a
// single router session that is closed on every exit path.
//
// Failures are returned as *Error carrying a Kind; use errors.Is with the
// Err* sentinels or KindOf to branch on them, and Message to render them for
// an operator.
package provision
