package models

import (
	"fmt"
	"time"

	"github.com/poised-pms/poised/pkg/errs"
)

// DateLayout is the calendar-date format used everywhere in the system:
// prompts, storage, and display.
const DateLayout = "2006-01-02"

// ProjectInfo carries a project's identity, site, financial, and
// scheduling state. Total owed is never stored: it is always recomputed
// from fee and paid.
type ProjectInfo struct {
	Number       int       `json:"number"`
	Name         string    `json:"name"`
	BuildingType string    `json:"building_type" validate:"required"`
	Address      string    `json:"address" validate:"required"`
	ERF          int       `json:"erf" validate:"required"`
	TotalFee     float64   `json:"total_fee" validate:"required"`
	TotalPaid    float64   `json:"total_paid"`
	Deadline     time.Time `json:"deadline"`

	complete *time.Time
}

// NewProjectInfo validates intake input and builds a ProjectInfo. The
// project name is the only optional field; building type, address, ERF,
// fee, and deadline must all be present, and the deadline may not be
// strictly before today (a deadline of today is accepted). The number is
// assigned later by the lifecycle layer.
func NewProjectInfo(name, buildingType, address string, erf int, fee float64, deadline time.Time) (*ProjectInfo, error) {
	if buildingType == "" {
		return nil, errs.Validation("building type", "must not be empty")
	}
	if address == "" {
		return nil, errs.Validation("building address", "must not be empty")
	}
	if erf == 0 {
		return nil, errs.Validation("ERF number", "must not be zero")
	}
	if fee == 0 {
		return nil, errs.Validation("total fee", "must not be zero")
	}
	if deadline.IsZero() {
		return nil, errs.Validation("deadline", "must not be empty")
	}
	if dateBefore(deadline, time.Now()) {
		return nil, errs.Validation("deadline", "cannot be set to a past date")
	}
	return &ProjectInfo{
		Name:         name,
		BuildingType: buildingType,
		Address:      address,
		ERF:          erf,
		TotalFee:     fee,
		TotalPaid:    0,
		Deadline:     deadline,
	}, nil
}

// dateBefore reports whether a's calendar date falls strictly before b's,
// ignoring time of day.
func dateBefore(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay < by
	}
	if am != bm {
		return am < bm
	}
	return ad < bd
}

// TotalOwed is always fee minus paid, recomputed on every read.
func (pi *ProjectInfo) TotalOwed() float64 {
	return pi.TotalFee - pi.TotalPaid
}

// AddPayment accumulates a payment onto the running total. Paid only ever
// moves upward; there is no refund path.
func (pi *ProjectInfo) AddPayment(amount float64) {
	pi.TotalPaid += amount
}

// SetTotalPaid replaces the paid total. Used when reconstructing from
// storage.
func (pi *ProjectInfo) SetTotalPaid(paid float64) { pi.TotalPaid = paid }

// SetCompleteDate records a completion date loaded from storage.
func (pi *ProjectInfo) SetCompleteDate(d time.Time) {
	pi.complete = &d
}

// HasCompleteDate reports whether a completion date has been materialized
// or loaded, without triggering materialization.
func (pi *ProjectInfo) HasCompleteDate() bool { return pi.complete != nil }

// CompleteDate returns the completion date, materializing it to today on
// first read if absent. The finalize transition relies on this: the date
// persisted is whatever the first post-finalize read produced, not the
// finalize instant itself.
func (pi *ProjectInfo) CompleteDate() string {
	if pi.complete == nil {
		now := time.Now()
		pi.complete = &now
	}
	return pi.complete.Format(DateLayout)
}

// DeadlineString formats the deadline as a calendar date.
func (pi *ProjectInfo) DeadlineString() string {
	return pi.Deadline.Format(DateLayout)
}

// String renders the project-information block. Currency uses the firm's
// rand formatting.
func (pi *ProjectInfo) String() string {
	out := fmt.Sprintf("Project Number: %d", pi.Number)
	out += "\nProject Name: " + pi.Name
	out += "\nBuilding Type: " + pi.BuildingType
	out += "\nBuilding Address: " + pi.Address
	out += fmt.Sprintf("\nERF Number: %d", pi.ERF)
	out += fmt.Sprintf("\nTotal Fee: R%.2f", pi.TotalFee)
	out += fmt.Sprintf("\nTotal Paid: R%.2f", pi.TotalPaid)
	out += fmt.Sprintf("\nTotal Owed: R%.2f", pi.TotalOwed())
	out += "\nDeadline: " + pi.DeadlineString() + "\n"
	return out
}
