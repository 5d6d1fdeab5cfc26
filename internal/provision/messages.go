package provision

import (
	"errors"
	"fmt"
	"strings"
)

// Message renders err as a sentence for the operator who made the
// decision. Every kind has its own wording.
func Message(err error) string {
	if err == nil {
		return ""
	}

	user := ""
	var detail string
	var pe *Error
	if errors.As(err, &pe) {
		user = pe.Username
		detail = mismatchDetail(pe.Mismatches)
	}

	switch KindOf(err) {
	case KindNotFound:
		return fmt.Sprintf("No pending request found for %s.", quoted(user))
	case KindDataIntegrity:
		return fmt.Sprintf("Decision for %s does not match the pending request%s.", quoted(user), detail)
	case KindDeviceAccountMissing:
		return fmt.Sprintf("Account %s does not exist on the router.", quoted(user))
	case KindAlreadyActive:
		return fmt.Sprintf("Account %s is already enabled or in an unexpected state%s.", quoted(user), detail)
	case KindDeviceDataMismatch:
		return fmt.Sprintf("Router account %s does not match the pending request%s.", quoted(user), detail)
	case KindSchedulingFailed:
		return fmt.Sprintf("Could not schedule expiry for %s; the account was left disabled.", quoted(user))
	case KindActivationFailed:
		return fmt.Sprintf("Could not enable %s; the expiry job was removed.", quoted(user))
	case KindVerificationFailed:
		return fmt.Sprintf("Enabling %s could not be confirmed; the expiry job was removed, check the account on the router.", quoted(user))
	case KindCommitWarning:
		return fmt.Sprintf("Account %s is active but its pending request could not be deleted; remove it by hand.", quoted(user))
	case KindPartialRejection:
		return fmt.Sprintf("Rejection of %s was only partly applied; reconcile the router and the pending queue by hand.", quoted(user))
	case KindConnectivity:
		return "Router is unreachable or did not answer in time."
	case KindAuth:
		return "Router refused the management credentials."
	case KindDeviceRejected:
		return fmt.Sprintf("Router rejected a command for %s.", quoted(user))
	case KindUnauthorized:
		return "Incorrect username or password."
	}
	return "Internal error; see the server log."
}

// Message is the confirmation the operator relays to the end user.
func (r *ApprovalResult) Message() string {
	var b strings.Builder
	fmt.Fprintf(&b, "User %s approved. Password: %s. Package: %s. Expires: %s.",
		r.Username, r.Credential, r.Package, r.DisplayExpiry)
	if r.Warning != nil {
		b.WriteString(" Warning: ")
		b.WriteString(Message(r.Warning))
	}
	return b.String()
}

func (r *RejectionResult) Message() string {
	return fmt.Sprintf("User %s rejected. IP: %s. Package: %s.", r.Username, r.Address, r.Package)
}

// Message describes the session traffic, or that the user is offline.
func (u *UsageResult) Message() string {
	if !u.Active {
		return fmt.Sprintf("User %s is not active.", u.Username)
	}
	return fmt.Sprintf("Usage for %s: upload %.2f MB, download %.2f MB.", u.Username, u.UploadMB, u.DownloadMB)
}

// SelfCheckMessage reports router reachability at startup.
func SelfCheckMessage(err error) string {
	if err == nil {
		return "Router is reachable."
	}
	return "Router self-check failed: " + Message(err)
}

func quoted(s string) string {
	if s == "" {
		return "user"
	}
	return "`" + s + "`"
}

func mismatchDetail(mm []Mismatch) string {
	if len(mm) == 0 {
		return ""
	}
	parts := make([]string, 0, len(mm))
	for _, m := range mm {
		if m.Expected == redacted {
			parts = append(parts, m.Field+" differs")
			continue
		}
		parts = append(parts, m.String())
	}
	return " (" + strings.Join(parts, "; ") + ")"
}
