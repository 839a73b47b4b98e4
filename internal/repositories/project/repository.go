// Package project persists project_info and build_info rows and
// reconstructs the full project aggregate by joining the five person
// tables. The aggregate spans seven rows across seven tables; there is no
// transaction layer, so the lifecycle service sequences multi-row writes
// and reports which step failed.
package project

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/poised-pms/poised/pkg/database"
	"github.com/poised-pms/poised/pkg/models"
	"github.com/poised-pms/poised/pkg/tracing"
)

// Project fields accepted by UpdateField.
const (
	FieldName     = "name"
	FieldDeadline = "deadline"
	FieldFee      = "fee"
	FieldPaid     = "paid"
)

// Site fields accepted by UpdateSiteField.
const (
	FieldBuildingType    = "building_type"
	FieldBuildingAddress = "building_address"
)

var projectColumns = map[string]string{
	FieldName:     "proj_name",
	FieldDeadline: "deadline",
	FieldFee:      "total_fee",
	FieldPaid:     "total_paid",
}

var siteColumns = map[string]string{
	FieldBuildingType:    "build_type",
	FieldBuildingAddress: "build_address",
}

var personFKColumns = map[models.Role]string{
	models.RoleArchitect:          "architect_name",
	models.RoleContractor:         "contractor_name",
	models.RoleCustomer:           "customer_name",
	models.RoleStructuralEngineer: "engineer_name",
	models.RoleProjectManager:     "project_manager_name",
}

// FKColumn returns the project_info column that references a role's
// person table.
func FKColumn(role models.Role) (string, error) {
	c, ok := personFKColumns[role]
	if !ok {
		return "", fmt.Errorf("no project column for role %q", string(role))
	}
	return c, nil
}

// Repository implements project persistence over project_info, build_info,
// and the joined person tables.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new project repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// row is the flat result of the seven-table join.
type row struct {
	Number       int          `db:"proj_num"`
	Name         string       `db:"proj_name"`
	ERF          int          `db:"erf_num"`
	TotalFee     float64      `db:"total_fee"`
	TotalPaid    float64      `db:"total_paid"`
	Deadline     time.Time    `db:"deadline"`
	Finalised    bool         `db:"finalised"`
	CompleteDate sql.NullTime `db:"complete_date"`

	BuildType    string `db:"build_type"`
	BuildAddress string `db:"build_address"`

	ArchitectName     string `db:"architect_name"`
	ArchitectPhone    string `db:"architect_phone"`
	ArchitectEmail    string `db:"architect_email"`
	ArchitectAddress  string `db:"architect_address"`
	ContractorName    string `db:"contractor_name"`
	ContractorPhone   string `db:"contractor_phone"`
	ContractorEmail   string `db:"contractor_email"`
	ContractorAddress string `db:"contractor_address"`
	CustomerName      string `db:"customer_name"`
	CustomerPhone     string `db:"customer_phone"`
	CustomerEmail     string `db:"customer_email"`
	CustomerAddress   string `db:"customer_address"`
	EngineerName      string `db:"engineer_name"`
	EngineerPhone     string `db:"engineer_phone"`
	EngineerEmail     string `db:"engineer_email"`
	EngineerAddress   string `db:"engineer_address"`
	ManagerName       string `db:"manager_name"`
	ManagerPhone      string `db:"manager_phone"`
	ManagerEmail      string `db:"manager_email"`
	ManagerAddress    string `db:"manager_address"`
}

func (rw *row) toModel() *models.Project {
	info := &models.ProjectInfo{
		Number:       rw.Number,
		Name:         rw.Name,
		BuildingType: rw.BuildType,
		Address:      rw.BuildAddress,
		ERF:          rw.ERF,
		TotalFee:     rw.TotalFee,
		TotalPaid:    rw.TotalPaid,
		Deadline:     rw.Deadline,
	}
	if rw.CompleteDate.Valid {
		info.SetCompleteDate(rw.CompleteDate.Time)
	}

	mk := func(role models.Role, name, phone, email, address string) *models.Person {
		return &models.Person{Role: role, Name: name, Phone: phone, Email: email, Address: address}
	}

	return &models.Project{
		Info:       info,
		Architect:  mk(models.RoleArchitect, rw.ArchitectName, rw.ArchitectPhone, rw.ArchitectEmail, rw.ArchitectAddress),
		Contractor: mk(models.RoleContractor, rw.ContractorName, rw.ContractorPhone, rw.ContractorEmail, rw.ContractorAddress),
		Customer:   mk(models.RoleCustomer, rw.CustomerName, rw.CustomerPhone, rw.CustomerEmail, rw.CustomerAddress),
		Engineer:   mk(models.RoleStructuralEngineer, rw.EngineerName, rw.EngineerPhone, rw.EngineerEmail, rw.EngineerAddress),
		Manager:    mk(models.RoleProjectManager, rw.ManagerName, rw.ManagerPhone, rw.ManagerEmail, rw.ManagerAddress),
		Finalized:  rw.Finalised,
	}
}

func aggregateSelect() *sqlbuilder.SelectBuilder {
	sb := database.NewSelectBuilder()
	sb.Select(
		"project_info.proj_num",
		"project_info.proj_name",
		"project_info.erf_num",
		"project_info.total_fee",
		"project_info.total_paid",
		"project_info.deadline",
		"project_info.finalised",
		"project_info.complete_date",
		"build_info.build_type",
		"build_info.build_address",
		"architect.name AS architect_name",
		"architect.phone AS architect_phone",
		"architect.email AS architect_email",
		"architect.address AS architect_address",
		"contractor.name AS contractor_name",
		"contractor.phone AS contractor_phone",
		"contractor.email AS contractor_email",
		"contractor.address AS contractor_address",
		"customer.name AS customer_name",
		"customer.phone AS customer_phone",
		"customer.email AS customer_email",
		"customer.address AS customer_address",
		"engineer.name AS engineer_name",
		"engineer.phone AS engineer_phone",
		"engineer.email AS engineer_email",
		"engineer.address AS engineer_address",
		"project_manager.name AS manager_name",
		"project_manager.phone AS manager_phone",
		"project_manager.email AS manager_email",
		"project_manager.address AS manager_address",
	)
	sb.From("project_info")
	sb.Join("build_info", "project_info.erf_num = build_info.erf_num")
	sb.Join("architect", "project_info.architect_name = architect.name")
	sb.Join("contractor", "project_info.contractor_name = contractor.name")
	sb.Join("customer", "project_info.customer_name = customer.name")
	sb.Join("engineer", "project_info.engineer_name = engineer.name")
	sb.Join("project_manager", "project_info.project_manager_name = project_manager.name")
	sb.OrderBy("project_info.proj_num ASC")
	return sb
}

// NextNumber returns one past the highest assigned project number, 1 when
// the table is empty. Numbers freed by deletion are reused.
func (r *Repository) NextNumber(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "ProjectRepository.NextNumber")
	defer span.End()

	var next int
	query := "SELECT COALESCE(MAX(proj_num), 0) + 1 FROM project_info"
	if err := r.db.GetContext(ctx, &next, query); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to compute next project number")
		return 0, fmt.Errorf("failed to compute next project number: %w", err)
	}

	return next, nil
}

// NameExists reports whether any project already carries the given name.
func (r *Repository) NameExists(ctx context.Context, name string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "ProjectRepository.NameExists")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("project_info")
	sb.Where(sb.Equal("proj_name", name))

	query, args := sb.Build()

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to check project name")
		return false, fmt.Errorf("failed to check project name %q: %w", name, err)
	}

	return count > 0, nil
}

// InsertSite writes the build_info row for a new project.
func (r *Repository) InsertSite(ctx context.Context, info *models.ProjectInfo) error {
	ctx, span := tracing.StartSpan(ctx, "ProjectRepository.InsertSite")
	defer span.End()

	ib := database.NewInsertBuilder()
	ib.InsertInto("build_info")
	ib.Cols("erf_num", "build_type", "build_address")
	ib.Values(info.ERF, info.BuildingType, info.Address)

	query, args := ib.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to insert build_info row")
		return fmt.Errorf("failed to insert site for ERF %d: %w", info.ERF, err)
	}

	return nil
}

// Insert writes the project_info row for a new project. The five person
// rows and the build_info row must already exist.
func (r *Repository) Insert(ctx context.Context, p *models.Project) error {
	ctx, span := tracing.StartSpan(ctx, "ProjectRepository.Insert")
	defer span.End()

	ib := database.NewInsertBuilder()
	ib.InsertInto("project_info")
	ib.Cols(
		"proj_num", "proj_name", "erf_num",
		"architect_name", "contractor_name", "customer_name", "engineer_name", "project_manager_name",
		"total_fee", "total_paid", "deadline", "finalised",
	)
	ib.Values(
		p.Info.Number, p.Info.Name, p.Info.ERF,
		p.Architect.Name, p.Contractor.Name, p.Customer.Name, p.Engineer.Name, p.Manager.Name,
		p.Info.TotalFee, p.Info.TotalPaid, p.Info.Deadline, p.Finalized,
	)

	query, args := ib.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to insert project_info row")
		return fmt.Errorf("failed to insert project %d: %w", p.Info.Number, err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"proj_num":  p.Info.Number,
		"proj_name": p.Info.Name,
	}).Info("inserted project")

	return nil
}

// FindByNumber fetches the full aggregate for one project number. Returns
// nil when no project has that number.
func (r *Repository) FindByNumber(ctx context.Context, number int) (*models.Project, error) {
	ctx, span := tracing.StartSpan(ctx, "ProjectRepository.FindByNumber")
	defer span.End()

	sb := aggregateSelect()
	sb.Where(sb.Equal("project_info.proj_num", number))

	query, args := sb.Build()

	var rw row
	if err := r.db.GetContext(ctx, &rw, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get project by number")
		return nil, fmt.Errorf("failed to get project %d: %w", number, err)
	}

	return rw.toModel(), nil
}

// FindByName fetches every project whose name matches exactly. Names are
// not unique at the storage level, so more than one match is possible.
func (r *Repository) FindByName(ctx context.Context, name string) ([]*models.Project, error) {
	ctx, span := tracing.StartSpan(ctx, "ProjectRepository.FindByName")
	defer span.End()

	sb := aggregateSelect()
	sb.Where(sb.Equal("project_info.proj_name", name))

	query, args := sb.Build()

	var rows []row
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to get projects by name")
		return nil, fmt.Errorf("failed to get projects named %q: %w", name, err)
	}

	projects := make([]*models.Project, 0, len(rows))
	for i := range rows {
		projects = append(projects, rows[i].toModel())
	}

	return projects, nil
}

// List fetches project aggregates matching the filter, ordered by number.
// Incomplete selects unfinalized projects; overdue additionally requires
// the deadline to fall before the filter's as-of date.
func (r *Repository) List(ctx context.Context, filter models.ListFilter) ([]*models.Project, error) {
	ctx, span := tracing.StartSpan(ctx, "ProjectRepository.List")
	defer span.End()

	sb := aggregateSelect()
	switch filter.Kind {
	case models.ListIncomplete:
		sb.Where(sb.Equal("project_info.finalised", false))
	case models.ListOverdue:
		// deadline is a DATE column; compare against the as-of calendar
		// date so a deadline of today does not count as overdue.
		sb.Where(
			sb.Equal("project_info.finalised", false),
			sb.LessThan("project_info.deadline", filter.AsOf.Format(models.DateLayout)),
		)
	}

	query, args := sb.Build()

	var rows []row
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list projects")
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	projects := make([]*models.Project, 0, len(rows))
	for i := range rows {
		projects = append(projects, rows[i].toModel())
	}

	return projects, nil
}

// UpdateField updates a single project_info column (name, deadline, fee,
// or paid) on the row keyed by project number.
func (r *Repository) UpdateField(ctx context.Context, number int, field string, value any) error {
	ctx, span := tracing.StartSpan(ctx, "ProjectRepository.UpdateField")
	defer span.End()

	column, ok := projectColumns[field]
	if !ok {
		return fmt.Errorf("project field %q is not updatable", field)
	}

	ub := database.NewUpdateBuilder()
	ub.Update("project_info")
	ub.Set(ub.Assign(column, value))
	ub.Where(ub.Equal("proj_num", number))

	query, args := ub.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Errorf("failed to update project_info.%s", column)
		return fmt.Errorf("failed to update %s of project %d: %w", field, number, err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"proj_num": number,
		"field":    field,
	}).Info("updated project field")

	return nil
}

// UpdateSiteField updates a single build_info column on the row keyed by
// ERF number.
func (r *Repository) UpdateSiteField(ctx context.Context, erf int, field, value string) error {
	ctx, span := tracing.StartSpan(ctx, "ProjectRepository.UpdateSiteField")
	defer span.End()

	column, ok := siteColumns[field]
	if !ok {
		return fmt.Errorf("site field %q is not updatable", field)
	}

	ub := database.NewUpdateBuilder()
	ub.Update("build_info")
	ub.Set(ub.Assign(column, value))
	ub.Where(ub.Equal("erf_num", erf))

	query, args := ub.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Errorf("failed to update build_info.%s", column)
		return fmt.Errorf("failed to update %s of ERF %d: %w", field, erf, err)
	}

	return nil
}

// RepointPerson switches a project's role reference to a different person
// row. This is the middle step of the rename protocol: the new row must
// already exist when this runs, and the old row is deleted only after it
// succeeds.
func (r *Repository) RepointPerson(ctx context.Context, number int, role models.Role, newName string) error {
	ctx, span := tracing.StartSpan(ctx, "ProjectRepository.RepointPerson")
	defer span.End()

	column, err := FKColumn(role)
	if err != nil {
		return err
	}

	ub := database.NewUpdateBuilder()
	ub.Update("project_info")
	ub.Set(ub.Assign(column, newName))
	ub.Where(ub.Equal("proj_num", number))

	query, args := ub.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Errorf("failed to repoint project_info.%s", column)
		return fmt.Errorf("failed to repoint %s of project %d: %w", string(role), number, err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"proj_num": number,
		"role":     string(role),
		"new_name": newName,
	}).Info("repointed project person reference")

	return nil
}

// MarkFinalized sets the finalised flag and records the completion date.
func (r *Repository) MarkFinalized(ctx context.Context, number int, completeDate time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "ProjectRepository.MarkFinalized")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update("project_info")
	ub.Set(
		ub.Assign("finalised", true),
		ub.Assign("complete_date", completeDate),
	)
	ub.Where(ub.Equal("proj_num", number))

	query, args := ub.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to mark project finalised")
		return fmt.Errorf("failed to finalize project %d: %w", number, err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"proj_num":      number,
		"complete_date": completeDate.Format(models.DateLayout),
	}).Info("finalized project")

	return nil
}

// DeleteProjectRow removes the project_info row. Run before DeleteSiteRow
// and the person deletes so the foreign keys clear first.
func (r *Repository) DeleteProjectRow(ctx context.Context, number int) error {
	ctx, span := tracing.StartSpan(ctx, "ProjectRepository.DeleteProjectRow")
	defer span.End()

	db := database.NewDeleteBuilder()
	db.DeleteFrom("project_info")
	db.Where(db.Equal("proj_num", number))

	query, args := db.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to delete project_info row")
		return fmt.Errorf("failed to delete project %d: %w", number, err)
	}

	return nil
}

// DeleteSiteRow removes the build_info row for an ERF.
func (r *Repository) DeleteSiteRow(ctx context.Context, erf int) error {
	ctx, span := tracing.StartSpan(ctx, "ProjectRepository.DeleteSiteRow")
	defer span.End()

	db := database.NewDeleteBuilder()
	db.DeleteFrom("build_info")
	db.Where(db.Equal("erf_num", erf))

	query, args := db.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to delete build_info row")
		return fmt.Errorf("failed to delete site for ERF %d: %w", erf, err)
	}

	return nil
}
