package models

import (
	"fmt"
	"strings"
	"time"
)

// Project is the aggregate: one ProjectInfo, five person records (one per
// role, referenced by name), and the finalized flag.
type Project struct {
	Info       *ProjectInfo `json:"info"`
	Architect  *Person      `json:"architect"`
	Contractor *Person      `json:"contractor"`
	Customer   *Person      `json:"customer"`
	Engineer   *Person      `json:"engineer"`
	Manager    *Person      `json:"manager"`
	Finalized  bool         `json:"finalized"`
}

// NewProject composes the aggregate. If the project name is empty it is
// derived here, exactly once: building type plus the customer's family
// name when the customer's name contains a space (split on the first
// space), otherwise building type plus the customer's full name.
func NewProject(info *ProjectInfo, architect, contractor, customer, engineer, manager *Person) *Project {
	if info.Name == "" {
		if idx := strings.Index(customer.Name, " "); idx >= 0 {
			info.Name = info.BuildingType + " " + customer.Name[idx+1:]
		} else {
			info.Name = info.BuildingType + " " + customer.Name
		}
	}
	return &Project{
		Info:       info,
		Architect:  architect,
		Contractor: contractor,
		Customer:   customer,
		Engineer:   engineer,
		Manager:    manager,
		Finalized:  false,
	}
}

// Person returns the record for the given role, nil for an unknown role.
func (p *Project) Person(role Role) *Person {
	switch role {
	case RoleArchitect:
		return p.Architect
	case RoleContractor:
		return p.Contractor
	case RoleCustomer:
		return p.Customer
	case RoleStructuralEngineer:
		return p.Engineer
	case RoleProjectManager:
		return p.Manager
	}
	return nil
}

// People returns the five person records in the fixed display order.
func (p *Project) People() []*Person {
	return []*Person{p.Architect, p.Contractor, p.Customer, p.Engineer, p.Manager}
}

// Overdue reports whether the project's deadline falls strictly before
// asOf's calendar date.
func (p *Project) Overdue(asOf time.Time) bool {
	return dateBefore(p.Info.Deadline, asOf)
}

// Invoice renders the customer invoice: customer block, completion date,
// amount owed. It is a pure function of current state apart from the
// lazy completion-date materialization in CompleteDate.
func (p *Project) Invoice() string {
	inv := "\nCustomer Invoice\n" + p.Customer.String()
	inv += "\nComplete Date: " + p.Info.CompleteDate()
	inv += fmt.Sprintf("\nAmount owed: R%.2f\n", p.Info.TotalOwed())
	return inv
}

// String renders the full project description: info block, completion
// line, then the five person blocks in role order.
func (p *Project) String() string {
	out := p.Info.String()
	if p.Finalized {
		out += "Date Complete: " + p.Info.CompleteDate() + "\n"
	} else {
		out += "Date Complete: Incomplete\n"
	}
	for _, person := range p.People() {
		out += person.String()
	}
	return out
}
