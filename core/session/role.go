package session

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// Role is the closed set of identities a session can carry.
// Every switch over Role must handle all of AllRoles; unknown values panic.
type Role uint8

const (
	RoleGuest Role = iota
	RoleAdmin
	RoleStudent
	RoleParent
)

// AllRoles lists every Role. Tests iterate it to make sure new roles are wired everywhere.
var AllRoles = []Role{RoleAdmin, RoleStudent, RoleParent, RoleGuest}

var ErrInvalidRole = errors.New("invalid role")

func ParseRole(s string) (Role, error) {
	switch s {
	case "admin":
		return RoleAdmin, nil
	case "student":
		return RoleStudent, nil
	case "parent":
		return RoleParent, nil
	case "guest":
		return RoleGuest, nil
	default:
		return RoleGuest, errors.Wrapf(ErrInvalidRole, "%q", s)
	}
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleStudent:
		return "student"
	case RoleParent:
		return "parent"
	case RoleGuest:
		return "guest"
	default:
		panic(fmt.Sprintf("session: unhandled role %d", uint8(r)))
	}
}

// Valid reports whether r is one of AllRoles.
func (r Role) Valid() bool {
	return r <= RoleParent
}

// Family returns the route family the role may render.
func (r Role) Family() Family {
	switch r {
	case RoleAdmin:
		return FamilyAdmin
	case RoleStudent:
		return FamilyStudent
	case RoleParent:
		return FamilyParent
	case RoleGuest:
		return FamilyGuest
	default:
		panic(fmt.Sprintf("session: unhandled role %d", uint8(r)))
	}
}

// HomePath is where the gate sends a session that hit another family's route.
func (r Role) HomePath() string {
	switch r {
	case RoleAdmin:
		return "/admin/dashboard"
	case RoleStudent:
		return "/student/dashboard"
	case RoleParent:
		return "/parent/dashboard"
	case RoleGuest:
		return "/"
	default:
		panic(fmt.Sprintf("session: unhandled role %d", uint8(r)))
	}
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, errors.Wrapf(ErrInvalidRole, "%d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = role
	return nil
}

func (r Role) MarshalJSON() ([]byte, error) {
	text, err := r.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return r.UnmarshalText([]byte(s))
}

// Value implements driver.Valuer; roles are stored by name.
func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, errors.Wrapf(ErrInvalidRole, "%d", uint8(r))
	}
	return r.String(), nil
}

// Scan implements sql.Scanner.
func (r *Role) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		return r.UnmarshalText([]byte(v))
	case []byte:
		return r.UnmarshalText(v)
	default:
		return errors.Errorf("session: cannot scan %T into Role", src)
	}
}

// Family groups routes by the role allowed to render them.
type Family uint8

const (
	// FamilyAny matches every authenticated role except guests.
	FamilyAny Family = iota
	FamilyAdmin
	FamilyStudent
	FamilyParent
	FamilyGuest
)

func (f Family) String() string {
	switch f {
	case FamilyAny:
		return "any"
	case FamilyAdmin:
		return "admin"
	case FamilyStudent:
		return "student"
	case FamilyParent:
		return "parent"
	case FamilyGuest:
		return "guest"
	default:
		panic(fmt.Sprintf("session: unhandled family %d", uint8(f)))
	}
}

// Allows reports whether a session with role r may render routes of family f.
func (f Family) Allows(r Role) bool {
	if f == FamilyAny {
		return r != RoleGuest
	}
	return r.Family() == f
}
