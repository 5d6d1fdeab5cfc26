// Package pending persists purchase requests that await an operator
// decision. A request is keyed by username and lives from the moment a user
// submits payment until the provisioning engine approves or rejects it.
//
// Three backends share the Repository contract: plain JSON files in a
// directory (one <username>.json per request), SQLite and PostgreSQL.
package pending
