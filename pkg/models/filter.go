package models

import "time"

// ListKind selects which projects a listing returns.
type ListKind string

const (
	ListAll        ListKind = "all"
	ListIncomplete ListKind = "incomplete"
	ListOverdue    ListKind = "overdue"
)

// ListFilter narrows a project listing. AsOf is only meaningful for
// ListOverdue, where a project counts as overdue when it is not yet
// finalized and its deadline falls strictly before AsOf's calendar date.
type ListFilter struct {
	Kind ListKind
	AsOf time.Time
}

// All matches every project.
func All() ListFilter { return ListFilter{Kind: ListAll} }

// Incomplete matches projects that have not been finalized.
func Incomplete() ListFilter { return ListFilter{Kind: ListIncomplete} }

// Overdue matches unfinalized projects whose deadline is before asOf.
func Overdue(asOf time.Time) ListFilter {
	return ListFilter{Kind: ListOverdue, AsOf: asOf}
}
