package provision

import (
	"time"

	"github.com/dmitrijs2005/hotspotkeeper/internal/device"
)

// Decision is an operator verdict on a pending request. PayerRef identifies
// the payment (for example the payer's wallet number) and ends up in the
// account comment.
type Decision struct {
	PayerRef string `json:"payer_ref"`
	Username string `json:"username"`
	Address  string `json:"address"`
	Package  string `json:"package"`
}

// ApprovalResult describes an enabled account. Warning is set when the
// account is live but the pending request could not be deleted.
type ApprovalResult struct {
	Username       string    `json:"username"`
	Credential     string    `json:"credential"`
	Address        string    `json:"address"`
	Package        string    `json:"package"`
	PackageKnown   bool      `json:"package_known"`
	ExpiresAt      time.Time `json:"expires_at"`
	DisplayExpiry  string    `json:"display_expiry"`
	DeviceSchedule string    `json:"device_schedule"`
	JobID          string    `json:"job_id"`
	Comment        string    `json:"comment"`
	Warning        *Error    `json:"-"`
}

// RejectionResult echoes what was rejected.
type RejectionResult struct {
	Username       string `json:"username"`
	Address        string `json:"address"`
	Package        string `json:"package"`
	AccountRemoved bool   `json:"account_removed"`
	RequestDeleted bool   `json:"request_deleted"`
}

// UsageResult is the traffic of a user's active session. Active is false
// when the user is not logged in; the counters are zero then.
type UsageResult struct {
	Username   string  `json:"username"`
	Active     bool    `json:"active"`
	UploadMB   float64 `json:"upload_mb"`
	DownloadMB float64 `json:"download_mb"`
}

// PortalStatus is what an end user sees on the captive-portal status page.
type PortalStatus struct {
	Username  string `json:"username"`
	Profile   string `json:"profile"`
	Connected bool   `json:"connected"`
	Uptime    string `json:"uptime"`
	Address   string `json:"ip"`
	MAC       string `json:"mac"`
	Upload    string `json:"upload"`
	Download  string `json:"download"`
	Remaining string `json:"remaining_time"`
	Expires   string `json:"expires,omitempty"`
}

// Sessions is a snapshot of active hotspot sessions.
type Sessions []device.ActiveSession
