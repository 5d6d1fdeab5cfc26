// Package httpapi exposes the provisioning engine over HTTP: the operator
// decision API behind JWT auth, read-only queries, and the end-user portal.
package httpapi
