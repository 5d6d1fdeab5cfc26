package httpapi

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/hotspotkeeper/internal/common"
	"github.com/dmitrijs2005/hotspotkeeper/internal/provision"
)

// Decision actions.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// ParseDecisionToken splits a callback token of the form
// "action|payer|username|ip|package". Exactly five fields are required and
// the action must be approve or reject.
func ParseDecisionToken(token string) (string, provision.Decision, error) {
	parts := strings.Split(strings.TrimSpace(token), "|")
	if len(parts) != 5 {
		return "", provision.Decision{}, fmt.Errorf("token has %d fields, want 5: %w", len(parts), common.ErrorValidation)
	}

	action := strings.ToLower(parts[0])
	d := provision.Decision{
		PayerRef: parts[1],
		Username: parts[2],
		Address:  parts[3],
		Package:  parts[4],
	}
	if err := validateDecision(action, d); err != nil {
		return "", provision.Decision{}, err
	}
	return action, d, nil
}

func validateDecision(action string, d provision.Decision) error {
	if action != ActionApprove && action != ActionReject {
		return fmt.Errorf("unknown action %q: %w", action, common.ErrorValidation)
	}
	if d.Username == "" {
		return fmt.Errorf("username is required: %w", common.ErrorValidation)
	}
	return nil
}
