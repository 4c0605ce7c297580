package sessionkit

import (
	"bytes"
	"encoding/json"
)

// State is the client-visible authentication state held by a [Manager].
type State uint8

const (
	// StateAnonymous is the initial state, before the first authentication
	// probe completes, and the terminal state after logout.
	StateAnonymous State = iota
	// StateChecking means an authentication operation is in flight.
	StateChecking
	// StatePendingTwoFactor means the password was verified and the server
	// is waiting for a second factor.
	StatePendingTwoFactor
	// StateAuthenticated means a complete user record is hydrated.
	StateAuthenticated
	// StateError means the last operation failed.
	StateError
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateChecking:
		return "checking"
	case StatePendingTwoFactor:
		return "pending_2fa"
	case StateAuthenticated:
		return "authenticated"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Role is a user's role projection. The server returns either a bare role
// identifier ("admin") or a populated object carrying the permission list;
// both decode into this type.
type Role struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// UnmarshalJSON accepts both the bare-identifier and populated-object
// encodings.
func (r *Role) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*r = Role{Name: name}
		return nil
	}

	type roleAlias Role
	var full roleAlias
	if err := json.Unmarshal(data, &full); err != nil {
		return err
	}
	*r = Role(full)
	return nil
}

// Populated reports whether the role carries more than a bare identifier.
func (r Role) Populated() bool {
	return r.ID != "" || len(r.Permissions) > 0
}

// User is the hydrated identity owned by the session. It is replaced
// wholesale on every successful hydration, never partially mutated.
type User struct {
	ID               string         `json:"id,omitempty"`
	AltID            string         `json:"_id,omitempty"`
	Email            string         `json:"email"`
	Name             string         `json:"name"`
	Role             Role           `json:"role"`
	Status           string         `json:"status,omitempty"`
	TwoFactorEnabled bool           `json:"twoFactorEnabled,omitempty"`
	Preferences      map[string]any `json:"preferences,omitempty"`
}

// Identifier returns the primary ID, falling back to the alternate ID.
func (u *User) Identifier() string {
	if u == nil {
		return ""
	}
	if u.ID != "" {
		return u.ID
	}
	return u.AltID
}

// Complete reports whether the record can be trusted for permission-bearing
// UI: it must carry an identifier, an email, and a name. Anything sparser
// must be re-hydrated before the session is declared authenticated.
func (u *User) Complete() bool {
	return u != nil && u.Identifier() != "" && u.Email != "" && u.Name != ""
}
