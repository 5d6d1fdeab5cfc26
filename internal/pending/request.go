package pending

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/hotspotkeeper/internal/common"
)

// Request is a purchase awaiting approval.
type Request struct {
	Username   string `json:"username"`
	Credential string `json:"password"`
	Address    string `json:"ip"`
	Package    string `json:"package"`
}

// Repository stores pending requests keyed by username.
//
// Get returns common.ErrorNotFound when no request exists. Delete of an
// absent request is not an error.
type Repository interface {
	Get(ctx context.Context, username string) (*Request, error)
	Save(ctx context.Context, r *Request) error
	Delete(ctx context.Context, username string) error
	List(ctx context.Context) ([]Request, error)
}

// ValidateUsername rejects names that cannot safely key a record, such as
// anything that would escape the pending directory.
func ValidateUsername(username string) error {
	switch {
	case strings.TrimSpace(username) == "":
		return fmt.Errorf("%w: empty username", common.ErrorValidation)
	case strings.ContainsAny(username, "/\\\x00"), username == ".", username == "..":
		return fmt.Errorf("%w: illegal username %q", common.ErrorValidation, username)
	}
	return nil
}

// UnmarshalJSON accepts the password as either a JSON string or a number;
// older front ends wrote numeric PINs unquoted.
func (r *Request) UnmarshalJSON(data []byte) error {
	var aux struct {
		Username string          `json:"username"`
		Password json.RawMessage `json:"password"`
		IP       string          `json:"ip"`
		Package  string          `json:"package"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	cred, err := decodeCredential(aux.Password)
	if err != nil {
		return err
	}

	*r = Request{
		Username:   aux.Username,
		Credential: cred,
		Address:    aux.IP,
		Package:    aux.Package,
	}
	return nil
}

func decodeCredential(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("password: %w", err)
		}
		return s, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return "", fmt.Errorf("password must be a string or a number: %w", err)
	}
	return n.String(), nil
}
