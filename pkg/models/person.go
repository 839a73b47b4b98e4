package models

import (
	"fmt"

	"github.com/poised-pms/poised/pkg/errs"
)

// Role identifies which of the five parties a person record represents.
// The set is closed: every project carries exactly one person per role.
type Role string

const (
	RoleArchitect          Role = "architect"
	RoleContractor         Role = "contractor"
	RoleCustomer           Role = "customer"
	RoleStructuralEngineer Role = "engineer"
	RoleProjectManager     Role = "manager"
)

// Roles returns the five roles in display order: architect, contractor,
// customer, structural engineer, project manager. Output that walks a
// project's people must keep this order.
func Roles() []Role {
	return []Role{
		RoleArchitect,
		RoleContractor,
		RoleCustomer,
		RoleStructuralEngineer,
		RoleProjectManager,
	}
}

// Valid reports whether r is one of the five known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleArchitect, RoleContractor, RoleCustomer, RoleStructuralEngineer, RoleProjectManager:
		return true
	}
	return false
}

// Display returns the human-readable role label.
func (r Role) Display() string {
	switch r {
	case RoleArchitect:
		return "Architect"
	case RoleContractor:
		return "Contractor"
	case RoleCustomer:
		return "Customer"
	case RoleStructuralEngineer:
		return "Structural Engineer"
	case RoleProjectManager:
		return "Project Manager"
	}
	return ""
}

// Person is one of the five party records attached to a project. Name is
// the record's natural key: it is both the primary key of the role's
// table and the foreign-key value stored on the project row, so a name
// change must go through the lifecycle rename protocol rather than a
// simple field update.
type Person struct {
	Role    Role   `json:"role"`
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone" validate:"phone"`
	Email   string `json:"email" validate:"required"`
	Address string `json:"address" validate:"required"`
}

// NewPerson builds a Person, rejecting empty name, email, or address.
// Phone format is the caller's responsibility (see ValidPhone); the
// interactive surfaces re-prompt on a bad phone before ever constructing
// the record.
func NewPerson(role Role, name, phone, email, address string) (*Person, error) {
	if !role.Valid() {
		return nil, errs.Validation("role", fmt.Sprintf("unknown role %q", string(role)))
	}
	if name == "" {
		return nil, errs.Validation("name", "must not be empty")
	}
	if email == "" {
		return nil, errs.Validation("email", "must not be empty")
	}
	if address == "" {
		return nil, errs.Validation("address", "must not be empty")
	}
	return &Person{
		Role:    role,
		Name:    name,
		Phone:   phone,
		Email:   email,
		Address: address,
	}, nil
}

// SetName mutates the in-memory name only. Callers must run the store
// rename protocol to keep the persisted key and foreign key in sync.
func (p *Person) SetName(name string) { p.Name = name }

func (p *Person) SetPhone(phone string)     { p.Phone = phone }
func (p *Person) SetEmail(email string)     { p.Email = email }
func (p *Person) SetAddress(address string) { p.Address = address }

// String renders the person block used by project descriptions and
// invoices.
func (p *Person) String() string {
	out := "\n" + p.Role.Display()
	out += "\nName: " + p.Name
	out += "\nTelephone number: " + p.Phone
	out += "\nEmail: " + p.Email
	out += "\nAddress: " + p.Address + "\n"
	return out
}

// ValidPhone reports whether phone is acceptable: non-empty and starting
// with '0' or '+'. It is a pure predicate; retry loops belong to the
// caller.
func ValidPhone(phone string) bool {
	if phone == "" {
		return false
	}
	return phone[0] == '0' || phone[0] == '+'
}
