package models

import (
	"database/sql/driver"
	"fmt"
)

// Role is the closed set of account types.
type Role uint8

const (
	RoleMember Role = iota + 1
	RoleTherapist
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleMember:
		return "member"
	case RoleTherapist:
		return "therapist"
	case RoleAdmin:
		return "admin"
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}

func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleTherapist, RoleAdmin:
		return true
	default:
		return false
	}
}

// SelfAssignable reports whether the role may be chosen at registration.
func (r Role) SelfAssignable() bool {
	switch r {
	case RoleMember, RoleTherapist:
		return true
	case RoleAdmin:
		return false
	default:
		return false
	}
}

func ParseRole(s string) (Role, error) {
	switch s {
	case "member":
		return RoleMember, nil
	case "therapist":
		return RoleTherapist, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return r.String(), nil
}

func (r *Role) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		return r.UnmarshalText([]byte(v))
	case []byte:
		return r.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into Role", src)
	}
}
