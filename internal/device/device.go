// Package device abstracts the router that holds hotspot accounts, their
// expiry jobs and the live sessions. Callers open a short-lived Session per
// unit of work through a Gateway and close it on every exit path.
package device

import (
	"context"
	"errors"
)

var (
	// ErrConnectivity covers unreachable devices, dropped connections and
	// per-call timeouts.
	ErrConnectivity = errors.New("device unreachable")
	// ErrAuth means the device refused the management credentials.
	ErrAuth = errors.New("device authentication failed")
	// ErrRejected means the device understood a command and refused it.
	ErrRejected = errors.New("device rejected command")
)

// Account is a hotspot user as stored on the device. Disabled keeps the
// device's raw encoding; interpret it with an Encoding.
type Account struct {
	ID          string
	Name        string
	Credential  string
	Profile     string
	Disabled    string
	Comment     string
	LimitUptime string
}

// AccountSpec describes an account to create.
type AccountSpec struct {
	Name       string
	Credential string
	Profile    string
	Disabled   string
	Comment    string
}

// AccountUpdate is a partial update. Empty fields are left untouched.
type AccountUpdate struct {
	Disabled string
	Comment  string
}

// ExpiryJobSpec describes the one-shot job that removes an account once its
// lease ends. StartDate and StartTime use the device scheduler grammar.
type ExpiryJobSpec struct {
	Username   string
	ScriptBody string
	StartDate  string
	StartTime  string
}

// JobHandle identifies an installed expiry job.
type JobHandle struct {
	ScriptName    string
	SchedulerName string
	SchedulerID   string
}

// ActiveSession is a client currently logged in through the hotspot.
type ActiveSession struct {
	ID       string `json:"id"`
	User     string `json:"user"`
	Address  string `json:"address"`
	MAC      string `json:"mac"`
	Uptime   string `json:"uptime"`
	BytesIn  uint64 `json:"bytes_in"`
	BytesOut uint64 `json:"bytes_out"`
}

// Gateway opens sessions to the device.
type Gateway interface {
	Connect(ctx context.Context) (Session, error)
}

// Session is one management connection. It is not safe for concurrent use.
type Session interface {
	// FindAccount returns nil, nil when no account has that name.
	FindAccount(ctx context.Context, name string) (*Account, error)
	SetAccount(ctx context.Context, id string, upd AccountUpdate) error
	// CreateAccount adds the account and returns it as re-read from the
	// device, handle included.
	CreateAccount(ctx context.Context, spec AccountSpec) (*Account, error)
	// RemoveAccount succeeds when the account is already absent.
	RemoveAccount(ctx context.Context, name string) error

	// UpsertExpiryJob replaces any job previously installed for the user.
	// A half-created job is removed before the error is returned.
	UpsertExpiryJob(ctx context.Context, spec ExpiryJobSpec) (JobHandle, error)
	// RemoveExpiryJob succeeds when nothing is installed.
	RemoveExpiryJob(ctx context.Context, username string) error

	ListActiveSessions(ctx context.Context) ([]ActiveSession, error)
	RemoveActiveSession(ctx context.Context, id string) error

	Close() error
}

// ScriptName is the name of the removal script installed for username.
func ScriptName(username string) string { return "remove-user-" + username }

// SchedulerName is the name of the scheduler entry installed for username.
func SchedulerName(username string) string { return "expire-user-" + username }

// RemovalScript is the script body that deletes username's account.
func RemovalScript(username string) string {
	return "/ip hotspot user remove [find name=" + username + "]"
}
