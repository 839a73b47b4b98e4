// Package person persists the five role-keyed party tables. Each role has
// its own table and the person's name is the table's primary key, so this
// repository never updates a name in place: renames are driven by the
// lifecycle layer as insert-new / repoint / delete-old.
package person

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/poised-pms/poised/pkg/database"
	"github.com/poised-pms/poised/pkg/models"
	"github.com/poised-pms/poised/pkg/tracing"
)

// Field names accepted by UpdateField.
const (
	FieldPhone   = "phone"
	FieldEmail   = "email"
	FieldAddress = "address"
)

var tables = map[models.Role]string{
	models.RoleArchitect:          "architect",
	models.RoleContractor:         "contractor",
	models.RoleCustomer:           "customer",
	models.RoleStructuralEngineer: "engineer",
	models.RoleProjectManager:     "project_manager",
}

var updatableColumns = map[string]string{
	FieldPhone:   "phone",
	FieldEmail:   "email",
	FieldAddress: "address",
}

// Table returns the table backing a role.
func Table(role models.Role) (string, error) {
	t, ok := tables[role]
	if !ok {
		return "", fmt.Errorf("no table for role %q", string(role))
	}
	return t, nil
}

// Repository implements person-row persistence over the role tables.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new person repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

type row struct {
	Name    string `db:"name"`
	Phone   string `db:"phone"`
	Email   string `db:"email"`
	Address string `db:"address"`
}

// Insert writes a new person row into its role table.
func (r *Repository) Insert(ctx context.Context, p *models.Person) error {
	ctx, span := tracing.StartSpan(ctx, "PersonRepository.Insert")
	defer span.End()

	table, err := Table(p.Role)
	if err != nil {
		return err
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols("name", "phone", "email", "address")
	ib.Values(p.Name, p.Phone, p.Email, p.Address)

	query, args := ib.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Errorf("failed to insert %s row", table)
		return fmt.Errorf("failed to insert %s %q: %w", string(p.Role), p.Name, err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"role": string(p.Role),
		"name": p.Name,
	}).Info("inserted person")

	return nil
}

// GetByName fetches a person row by its natural key. Returns nil when no
// row exists.
func (r *Repository) GetByName(ctx context.Context, role models.Role, name string) (*models.Person, error) {
	ctx, span := tracing.StartSpan(ctx, "PersonRepository.GetByName")
	defer span.End()

	table, err := Table(role)
	if err != nil {
		return nil, err
	}

	sb := database.NewSelectBuilder()
	sb.Select("name", "phone", "email", "address")
	sb.From(table)
	sb.Where(sb.Equal("name", name))

	query, args := sb.Build()

	var rw row
	if err := r.db.GetContext(ctx, &rw, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Errorf("failed to get %s row", table)
		return nil, fmt.Errorf("failed to get %s %q: %w", string(role), name, err)
	}

	return &models.Person{
		Role:    role,
		Name:    rw.Name,
		Phone:   rw.Phone,
		Email:   rw.Email,
		Address: rw.Address,
	}, nil
}

// UpdateField updates a single mutable column (phone, email, or address)
// on the row keyed by name. The name column itself is not updatable here.
func (r *Repository) UpdateField(ctx context.Context, role models.Role, name, field, value string) error {
	ctx, span := tracing.StartSpan(ctx, "PersonRepository.UpdateField")
	defer span.End()

	table, err := Table(role)
	if err != nil {
		return err
	}

	column, ok := updatableColumns[field]
	if !ok {
		return fmt.Errorf("person field %q is not updatable", field)
	}

	ub := database.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(ub.Assign(column, value))
	ub.Where(ub.Equal("name", name))

	query, args := ub.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Errorf("failed to update %s.%s", table, column)
		return fmt.Errorf("failed to update %s of %s %q: %w", field, string(role), name, err)
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"role":          string(role),
		"name":          name,
		"field":         field,
		"rows_affected": rowsAffected,
	}).Info("updated person field")

	return nil
}

// Delete removes a person row by its natural key.
func (r *Repository) Delete(ctx context.Context, role models.Role, name string) error {
	ctx, span := tracing.StartSpan(ctx, "PersonRepository.Delete")
	defer span.End()

	table, err := Table(role)
	if err != nil {
		return err
	}

	db := database.NewDeleteBuilder()
	db.DeleteFrom(table)
	db.Where(db.Equal("name", name))

	query, args := db.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Errorf("failed to delete %s row", table)
		return fmt.Errorf("failed to delete %s %q: %w", string(role), name, err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"role": string(role),
		"name": name,
	}).Info("deleted person")

	return nil
}
