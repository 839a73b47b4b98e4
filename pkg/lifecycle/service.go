// Package lifecycle implements the project lifecycle operations: intake,
// search, listing, person and project updates, finalization, and deletion.
// The store has no transactions, so every multi-row operation here runs as
// an ordered sequence of single-statement writes; when a sequence fails
// partway the error names the failed step and the steps already applied.
package lifecycle

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"

	"github.com/poised-pms/poised/pkg/errs"
	"github.com/poised-pms/poised/pkg/events"
	"github.com/poised-pms/poised/pkg/metrics"
	"github.com/poised-pms/poised/pkg/models"
	"github.com/poised-pms/poised/pkg/tracing"
)

// Person fields accepted by UpdatePersonField.
const (
	PersonFieldPhone   = "phone"
	PersonFieldEmail   = "email"
	PersonFieldAddress = "address"
)

// Messages returned by Finalize.
const (
	MsgAlreadyFinalized = "Project has already been finalised."
	MsgAccountSettled   = "Account already settled, no invoice required."
)

// PersonStore persists the five role-keyed person tables.
type PersonStore interface {
	Insert(ctx context.Context, p *models.Person) error
	GetByName(ctx context.Context, role models.Role, name string) (*models.Person, error)
	UpdateField(ctx context.Context, role models.Role, name, field, value string) error
	Delete(ctx context.Context, role models.Role, name string) error
}

// ProjectStore persists project and site rows and reconstructs aggregates.
type ProjectStore interface {
	NextNumber(ctx context.Context) (int, error)
	NameExists(ctx context.Context, name string) (bool, error)
	InsertSite(ctx context.Context, info *models.ProjectInfo) error
	Insert(ctx context.Context, p *models.Project) error
	FindByNumber(ctx context.Context, number int) (*models.Project, error)
	FindByName(ctx context.Context, name string) ([]*models.Project, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Project, error)
	UpdateField(ctx context.Context, number int, field string, value any) error
	UpdateSiteField(ctx context.Context, erf int, field, value string) error
	RepointPerson(ctx context.Context, number int, role models.Role, newName string) error
	MarkFinalized(ctx context.Context, number int, completeDate time.Time) error
	DeleteProjectRow(ctx context.Context, number int) error
	DeleteSiteRow(ctx context.Context, erf int) error
}

// Store field names the service routes to. These mirror the repository
// whitelists.
const (
	projectFieldName     = "name"
	projectFieldDeadline = "deadline"
	projectFieldFee      = "fee"
	projectFieldPaid     = "paid"

	siteFieldType    = "building_type"
	siteFieldAddress = "building_address"
)

// Service coordinates lifecycle operations over the two stores. The
// emitter may be nil when event publishing is disabled.
type Service struct {
	people   PersonStore
	projects ProjectStore
	emitter  *events.Emitter
	validate *validator.Validate
	logger   ectologger.Logger
}

// NewService creates a new lifecycle service
func NewService(people PersonStore, projects ProjectStore, emitter *events.Emitter, logger ectologger.Logger) *Service {
	validate := validator.New()
	_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return models.ValidPhone(fl.Field().String())
	})

	return &Service{
		people:   people,
		projects: projects,
		emitter:  emitter,
		validate: validate,
		logger:   logger,
	}
}

// CreateProject registers a new project: it derives the name if absent,
// rejects a duplicate name, assigns the next number, then writes the five
// person rows, the site row, and the project row in that order. A failure
// after the first write reports which rows already landed.
func (s *Service) CreateProject(ctx context.Context, info *models.ProjectInfo, architect, contractor, customer, engineer, manager *models.Person) (*models.Project, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.CreateProject")
	defer span.End()
	start := time.Now()

	project := models.NewProject(info, architect, contractor, customer, engineer, manager)

	for _, p := range project.People() {
		if err := s.validate.Struct(p); err != nil {
			metrics.RecordOperation("create_project", "invalid", time.Since(start).Seconds())
			return nil, errs.Validation(string(p.Role), err.Error())
		}
	}
	if err := s.validate.Struct(info); err != nil {
		metrics.RecordOperation("create_project", "invalid", time.Since(start).Seconds())
		return nil, errs.Validation("project", err.Error())
	}

	exists, err := s.projects.NameExists(ctx, info.Name)
	if err != nil {
		metrics.RecordOperation("create_project", "error", time.Since(start).Seconds())
		return nil, errs.Unavailable(err)
	}
	if exists {
		metrics.RecordOperation("create_project", "invalid", time.Since(start).Seconds())
		return nil, errs.Validation("project name", fmt.Sprintf("a project named %q already exists", info.Name))
	}

	number, err := s.projects.NextNumber(ctx)
	if err != nil {
		metrics.RecordOperation("create_project", "error", time.Since(start).Seconds())
		return nil, errs.Unavailable(err)
	}
	info.Number = number

	var completed []string
	fail := func(step string, err error) error {
		metrics.RecordOperation("create_project", "error", time.Since(start).Seconds())
		if len(completed) == 0 {
			return errs.Unavailable(err)
		}
		metrics.RecordPartialWrite("create_project", step)
		return errs.PartialWrite("create project", step, completed, err)
	}

	for _, p := range project.People() {
		step := "insert " + string(p.Role)
		if err := s.people.Insert(ctx, p); err != nil {
			return nil, fail(step, err)
		}
		completed = append(completed, step)
	}

	if err := s.projects.InsertSite(ctx, info); err != nil {
		return nil, fail("insert site", err)
	}
	completed = append(completed, "insert site")

	if err := s.projects.Insert(ctx, project); err != nil {
		return nil, fail("insert project", err)
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"proj_num":  info.Number,
		"proj_name": info.Name,
	}).Info("created project")

	if err := s.emitter.EmitProjectCreated(ctx, project); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("project created but event emission failed")
	}

	metrics.RecordOperation("create_project", "success", time.Since(start).Seconds())
	return project, nil
}

// Search resolves a single project from operator input: a numeric query
// looks up by project number, anything else matches the project name
// exactly. No match is NotFound; several name matches is Ambiguous and
// the operator should retry with the number.
func (s *Service) Search(ctx context.Context, query string) (*models.Project, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.Search")
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errs.Validation("search", "enter a project number or name")
	}

	if number, err := strconv.Atoi(query); err == nil {
		project, err := s.projects.FindByNumber(ctx, number)
		if err != nil {
			return nil, errs.Unavailable(err)
		}
		if project == nil {
			return nil, errs.NotFound(query)
		}
		return project, nil
	}

	matches, err := s.projects.FindByName(ctx, query)
	if err != nil {
		return nil, errs.Unavailable(err)
	}
	switch len(matches) {
	case 0:
		return nil, errs.NotFound(query)
	case 1:
		return matches[0], nil
	default:
		return nil, errs.Ambiguous(query, len(matches))
	}
}

// List returns projects matching the filter.
func (s *Service) List(ctx context.Context, filter models.ListFilter) ([]*models.Project, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.List")
	defer span.End()

	projects, err := s.projects.List(ctx, filter)
	if err != nil {
		return nil, errs.Unavailable(err)
	}
	return projects, nil
}

// RenamePerson changes a person's name, which is both their table's
// primary key and the value the project row references. It runs as three
// ordered statements: insert a new person row under the new name, repoint
// the project's reference, delete the old row. A failure after the first
// statement leaves the extra row or the dangling reference in place and
// the returned error says which.
func (s *Service) RenamePerson(ctx context.Context, project *models.Project, role models.Role, newName string) error {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.RenamePerson")
	defer span.End()
	start := time.Now()

	current := project.Person(role)
	if current == nil {
		return errs.Validation("role", fmt.Sprintf("unknown role %q", string(role)))
	}
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return errs.Validation("name", "must not be empty")
	}
	if newName == current.Name {
		return errs.Validation("name", "new name matches the current name")
	}

	oldName := current.Name
	replacement := &models.Person{
		Role:    role,
		Name:    newName,
		Phone:   current.Phone,
		Email:   current.Email,
		Address: current.Address,
	}

	var completed []string
	fail := func(step string, err error) error {
		metrics.RecordOperation("rename_person", "error", time.Since(start).Seconds())
		if len(completed) == 0 {
			return errs.Unavailable(err)
		}
		metrics.RecordPartialWrite("rename_person", step)
		return errs.PartialWrite("rename person", step, completed, err)
	}

	if err := s.people.Insert(ctx, replacement); err != nil {
		return fail("insert new row", err)
	}
	completed = append(completed, "insert new row")

	if err := s.projects.RepointPerson(ctx, project.Info.Number, role, newName); err != nil {
		return fail("repoint project", err)
	}
	completed = append(completed, "repoint project")

	if err := s.people.Delete(ctx, role, oldName); err != nil {
		return fail("delete old row", err)
	}

	current.SetName(newName)

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"proj_num": project.Info.Number,
		"role":     string(role),
		"old_name": oldName,
		"new_name": newName,
	}).Info("renamed person")

	if err := s.emitter.EmitPersonRenamed(ctx, project, role, oldName, newName); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("person renamed but event emission failed")
	}

	metrics.RecordOperation("rename_person", "success", time.Since(start).Seconds())
	return nil
}

// UpdatePersonField updates one contact field (phone, email, or address)
// for a project's person. Phone values must pass the phone predicate.
func (s *Service) UpdatePersonField(ctx context.Context, project *models.Project, role models.Role, field, value string) error {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.UpdatePersonField")
	defer span.End()

	current := project.Person(role)
	if current == nil {
		return errs.Validation("role", fmt.Sprintf("unknown role %q", string(role)))
	}

	switch field {
	case PersonFieldPhone:
		if !models.ValidPhone(value) {
			return errs.Validation("phone", "must start with 0 or +")
		}
	case PersonFieldEmail:
		if value == "" {
			return errs.Validation("email", "must not be empty")
		}
	case PersonFieldAddress:
		if value == "" {
			return errs.Validation("address", "must not be empty")
		}
	default:
		return errs.Validation("field", fmt.Sprintf("unknown person field %q", field))
	}

	if err := s.people.UpdateField(ctx, role, current.Name, field, value); err != nil {
		return errs.Unavailable(err)
	}

	switch field {
	case PersonFieldPhone:
		current.SetPhone(value)
	case PersonFieldEmail:
		current.SetEmail(value)
	case PersonFieldAddress:
		current.SetAddress(value)
	}

	return nil
}

// PersonUpdate carries the full set of values for UpdateAllPersonFields.
// An empty field keeps the current value.
type PersonUpdate struct {
	Name    string
	Phone   string
	Email   string
	Address string
}

// UpdateAllPersonFields applies a full person update in a fixed order:
// name first (via the rename protocol), then phone, email, address. The
// sequence stops at the first failure, leaving earlier fields updated.
func (s *Service) UpdateAllPersonFields(ctx context.Context, project *models.Project, role models.Role, update PersonUpdate) error {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.UpdateAllPersonFields")
	defer span.End()

	current := project.Person(role)
	if current == nil {
		return errs.Validation("role", fmt.Sprintf("unknown role %q", string(role)))
	}

	if update.Name != "" && update.Name != current.Name {
		if err := s.RenamePerson(ctx, project, role, update.Name); err != nil {
			return err
		}
	}
	if update.Phone != "" && update.Phone != current.Phone {
		if err := s.UpdatePersonField(ctx, project, role, PersonFieldPhone, update.Phone); err != nil {
			return err
		}
	}
	if update.Email != "" && update.Email != current.Email {
		if err := s.UpdatePersonField(ctx, project, role, PersonFieldEmail, update.Email); err != nil {
			return err
		}
	}
	if update.Address != "" && update.Address != current.Address {
		if err := s.UpdatePersonField(ctx, project, role, PersonFieldAddress, update.Address); err != nil {
			return err
		}
	}

	return nil
}

// RenameProject changes the project's name, subject to the same duplicate
// check as intake.
func (s *Service) RenameProject(ctx context.Context, project *models.Project, newName string) error {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.RenameProject")
	defer span.End()

	newName = strings.TrimSpace(newName)
	if newName == "" {
		return errs.Validation("project name", "must not be empty")
	}
	if newName == project.Info.Name {
		return nil
	}

	exists, err := s.projects.NameExists(ctx, newName)
	if err != nil {
		return errs.Unavailable(err)
	}
	if exists {
		return errs.Validation("project name", fmt.Sprintf("a project named %q already exists", newName))
	}

	if err := s.projects.UpdateField(ctx, project.Info.Number, projectFieldName, newName); err != nil {
		return errs.Unavailable(err)
	}

	project.Info.Name = newName
	return nil
}

// SetDeadline replaces the project deadline. Past dates are accepted
// here: the past-date rule applies at intake only, and moving a deadline
// back is how an operator marks a slipped project overdue.
func (s *Service) SetDeadline(ctx context.Context, project *models.Project, deadline time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.SetDeadline")
	defer span.End()

	if deadline.IsZero() {
		return errs.Validation("deadline", "must not be empty")
	}
	if err := s.projects.UpdateField(ctx, project.Info.Number, projectFieldDeadline, deadline); err != nil {
		return errs.Unavailable(err)
	}

	project.Info.Deadline = deadline
	return nil
}

// SetFee replaces the project's total fee.
func (s *Service) SetFee(ctx context.Context, project *models.Project, fee float64) error {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.SetFee")
	defer span.End()

	if fee <= 0 {
		return errs.Validation("total fee", "must be positive")
	}
	if err := s.projects.UpdateField(ctx, project.Info.Number, projectFieldFee, fee); err != nil {
		return errs.Unavailable(err)
	}

	project.Info.TotalFee = fee
	return nil
}

// AddPayment records a payment. Paid only accumulates; the amount must be
// positive and the new total is persisted as paid-so-far plus amount.
func (s *Service) AddPayment(ctx context.Context, project *models.Project, amount float64) error {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.AddPayment")
	defer span.End()

	if amount <= 0 {
		return errs.Validation("payment", "must be positive")
	}

	newPaid := project.Info.TotalPaid + amount
	if err := s.projects.UpdateField(ctx, project.Info.Number, projectFieldPaid, newPaid); err != nil {
		return errs.Unavailable(err)
	}

	project.Info.AddPayment(amount)
	return nil
}

// SetBuildingType updates the site's building type.
func (s *Service) SetBuildingType(ctx context.Context, project *models.Project, buildingType string) error {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.SetBuildingType")
	defer span.End()

	if buildingType == "" {
		return errs.Validation("building type", "must not be empty")
	}
	if err := s.projects.UpdateSiteField(ctx, project.Info.ERF, siteFieldType, buildingType); err != nil {
		return errs.Unavailable(err)
	}

	project.Info.BuildingType = buildingType
	return nil
}

// SetBuildingAddress updates the site's address.
func (s *Service) SetBuildingAddress(ctx context.Context, project *models.Project, address string) error {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.SetBuildingAddress")
	defer span.End()

	if address == "" {
		return errs.Validation("building address", "must not be empty")
	}
	if err := s.projects.UpdateSiteField(ctx, project.Info.ERF, siteFieldAddress, address); err != nil {
		return errs.Unavailable(err)
	}

	project.Info.Address = address
	return nil
}

// Finalize marks the project complete and returns the text to show the
// operator. The paid-vs-fee check runs whether or not the transition
// happened: the customer invoice when money is still owed, a settled
// message otherwise. Finalizing an already-finalized project skips the
// write and prefixes the text saying so. The completion date persisted
// is the one the first post-finalize read materializes.
func (s *Service) Finalize(ctx context.Context, project *models.Project) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.Finalize")
	defer span.End()
	start := time.Now()

	message := MsgAccountSettled
	if project.Info.TotalOwed() != 0 {
		message = project.Invoice()
	}

	if project.Finalized {
		return MsgAlreadyFinalized + "\n" + message, nil
	}

	completeDate, err := time.Parse(models.DateLayout, project.Info.CompleteDate())
	if err != nil {
		return "", fmt.Errorf("failed to parse complete date: %w", err)
	}

	if err := s.projects.MarkFinalized(ctx, project.Info.Number, completeDate); err != nil {
		metrics.RecordOperation("finalize", "error", time.Since(start).Seconds())
		return "", errs.Unavailable(err)
	}

	project.Finalized = true
	metrics.ProjectsFinalized.Inc()
	metrics.RecordOperation("finalize", "success", time.Since(start).Seconds())

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"proj_num": project.Info.Number,
	}).Info("finalized project")

	if err := s.emitter.EmitProjectFinalized(ctx, project); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("project finalized but event emission failed")
	}

	return message, nil
}

// DeleteProject removes all seven rows backing a project: the project
// row first (clearing its references), then the site row, then the five
// person rows in role order. A failure partway leaves the remaining rows
// in place and the error names the failed step.
func (s *Service) DeleteProject(ctx context.Context, project *models.Project) error {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.DeleteProject")
	defer span.End()
	start := time.Now()

	number := project.Info.Number
	name := project.Info.Name

	var completed []string
	fail := func(step string, err error) error {
		metrics.RecordOperation("delete_project", "error", time.Since(start).Seconds())
		if len(completed) == 0 {
			return errs.Unavailable(err)
		}
		metrics.RecordPartialWrite("delete_project", step)
		return errs.PartialWrite("delete project", step, completed, err)
	}

	if err := s.projects.DeleteProjectRow(ctx, number); err != nil {
		return fail("delete project row", err)
	}
	completed = append(completed, "delete project row")

	if err := s.projects.DeleteSiteRow(ctx, project.Info.ERF); err != nil {
		return fail("delete site row", err)
	}
	completed = append(completed, "delete site row")

	for _, p := range project.People() {
		step := "delete " + string(p.Role)
		if err := s.people.Delete(ctx, p.Role, p.Name); err != nil {
			return fail(step, err)
		}
		completed = append(completed, step)
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"proj_num":  number,
		"proj_name": name,
	}).Info("deleted project")

	if err := s.emitter.EmitProjectDeleted(ctx, number, name); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("project deleted but event emission failed")
	}

	metrics.RecordOperation("delete_project", "success", time.Since(start).Seconds())
	return nil
}
