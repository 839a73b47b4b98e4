package project_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/poised-pms/poised/internal/repositories/person"
	"github.com/poised-pms/poised/internal/repositories/project"
	"github.com/poised-pms/poised/pkg/database"
	"github.com/poised-pms/poised/pkg/models"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func getTestDB(t *testing.T) database.DB {
	// Use environment variables or defaults for test DB
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}
	dbUser := os.Getenv("DB_USER_NAME")
	if dbUser == "" {
		dbUser = "user"
	}
	dbPass := os.Getenv("DB_PASSWORD")
	if dbPass == "" {
		dbPass = "password"
	}
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "poised"
	}

	dsn := "host=" + dbHost + " user=" + dbUser + " password=" + dbPass + " dbname=" + dbName + " sslmode=disable"
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err, "Failed to connect to test database")

	return database.NewDatabaseInstance(db, getTestLogger())
}

func uniqueName(prefix string) string {
	return prefix + " " + uuid.NewString()[:8]
}

// seedProject inserts the five person rows, the site row, and the project
// row, returning the aggregate and a cleanup that removes all seven rows.
func seedProject(t *testing.T, ctx context.Context, db database.DB) *models.Project {
	t.Helper()

	logger := getTestLogger()
	people := person.NewRepository(db, logger)
	projects := project.NewRepository(db, logger)

	persons := make(map[models.Role]*models.Person)
	for _, role := range models.Roles() {
		p := &models.Person{
			Role:    role,
			Name:    uniqueName(string(role)),
			Phone:   "0821234567",
			Email:   string(role) + "@example.com",
			Address: "1 Test Road",
		}
		require.NoError(t, people.Insert(ctx, p))
		persons[role] = p
	}

	number, err := projects.NextNumber(ctx)
	require.NoError(t, err)

	info := &models.ProjectInfo{
		Number:       number,
		Name:         uniqueName("House"),
		BuildingType: "House",
		Address:      "12 Main Street",
		ERF:          int(time.Now().UnixNano() % 1_000_000_000),
		TotalFee:     100000,
		TotalPaid:    0,
		Deadline:     time.Now().AddDate(0, 6, 0),
	}
	proj := &models.Project{
		Info:       info,
		Architect:  persons[models.RoleArchitect],
		Contractor: persons[models.RoleContractor],
		Customer:   persons[models.RoleCustomer],
		Engineer:   persons[models.RoleStructuralEngineer],
		Manager:    persons[models.RoleProjectManager],
	}

	require.NoError(t, projects.InsertSite(ctx, info))
	require.NoError(t, projects.Insert(ctx, proj))

	t.Cleanup(func() {
		_ = projects.DeleteProjectRow(ctx, info.Number)
		_ = projects.DeleteSiteRow(ctx, info.ERF)
		for role, p := range persons {
			_ = people.Delete(ctx, role, p.Name)
		}
	})

	return proj
}

func TestProjectRepository_InsertAndFind(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	repo := project.NewRepository(db, getTestLogger())
	ctx := context.Background()

	seeded := seedProject(t, ctx, db)

	fetched, err := repo.FindByNumber(ctx, seeded.Info.Number)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, seeded.Info.Name, fetched.Info.Name)
	assert.Equal(t, seeded.Info.ERF, fetched.Info.ERF)
	assert.Equal(t, "House", fetched.Info.BuildingType)
	assert.Equal(t, seeded.Customer.Name, fetched.Customer.Name)
	assert.Equal(t, seeded.Manager.Name, fetched.Manager.Name)
	assert.False(t, fetched.Finalized)
	assert.False(t, fetched.Info.HasCompleteDate())

	byName, err := repo.FindByName(ctx, seeded.Info.Name)
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, seeded.Info.Number, byName[0].Info.Number)

	exists, err := repo.NameExists(ctx, seeded.Info.Name)
	require.NoError(t, err)
	assert.True(t, exists)

	missing, err := repo.FindByNumber(ctx, 999999999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProjectRepository_UpdateAndFinalize(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	repo := project.NewRepository(db, getTestLogger())
	ctx := context.Background()

	seeded := seedProject(t, ctx, db)

	require.NoError(t, repo.UpdateField(ctx, seeded.Info.Number, project.FieldPaid, 25000.0))
	require.NoError(t, repo.UpdateSiteField(ctx, seeded.Info.ERF, project.FieldBuildingAddress, "99 New Road"))

	updated, err := repo.FindByNumber(ctx, seeded.Info.Number)
	require.NoError(t, err)
	assert.Equal(t, 25000.0, updated.Info.TotalPaid)
	assert.Equal(t, 75000.0, updated.Info.TotalOwed())
	assert.Equal(t, "99 New Road", updated.Info.Address)

	completeDate := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkFinalized(ctx, seeded.Info.Number, completeDate))

	finalized, err := repo.FindByNumber(ctx, seeded.Info.Number)
	require.NoError(t, err)
	assert.True(t, finalized.Finalized)
	assert.True(t, finalized.Info.HasCompleteDate())
	assert.Equal(t, "2026-03-15", finalized.Info.CompleteDate())
}

func TestProjectRepository_RepointPerson(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	logger := getTestLogger()
	repo := project.NewRepository(db, logger)
	people := person.NewRepository(db, logger)
	ctx := context.Background()

	seeded := seedProject(t, ctx, db)

	replacement := &models.Person{
		Role:    models.RoleCustomer,
		Name:    uniqueName("Replacement"),
		Phone:   "0829999999",
		Email:   "replacement@example.com",
		Address: "5 Other Street",
	}
	require.NoError(t, people.Insert(ctx, replacement))
	t.Cleanup(func() { _ = people.Delete(ctx, models.RoleCustomer, replacement.Name) })

	require.NoError(t, repo.RepointPerson(ctx, seeded.Info.Number, models.RoleCustomer, replacement.Name))

	fetched, err := repo.FindByNumber(ctx, seeded.Info.Number)
	require.NoError(t, err)
	assert.Equal(t, replacement.Name, fetched.Customer.Name)
	assert.Equal(t, "0829999999", fetched.Customer.Phone)
}

func TestProjectRepository_ListFilters(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	repo := project.NewRepository(db, getTestLogger())
	ctx := context.Background()

	seeded := seedProject(t, ctx, db)

	all, err := repo.List(ctx, models.All())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(all), 1)

	incomplete, err := repo.List(ctx, models.Incomplete())
	require.NoError(t, err)
	found := false
	for _, p := range incomplete {
		assert.False(t, p.Finalized)
		if p.Info.Number == seeded.Info.Number {
			found = true
		}
	}
	assert.True(t, found, "seeded project should be listed as incomplete")

	// Deadline is six months out, so asking for overdue as of today must
	// exclude it, and asking as of a far-future date must include it.
	overdueNow, err := repo.List(ctx, models.Overdue(time.Now()))
	require.NoError(t, err)
	for _, p := range overdueNow {
		assert.NotEqual(t, seeded.Info.Number, p.Info.Number)
	}

	overdueLater, err := repo.List(ctx, models.Overdue(time.Now().AddDate(2, 0, 0)))
	require.NoError(t, err)
	found = false
	for _, p := range overdueLater {
		if p.Info.Number == seeded.Info.Number {
			found = true
		}
	}
	assert.True(t, found, "seeded project should be overdue against a far-future date")

	// A deadline of today is not overdue until tomorrow, regardless of the
	// time of day the listing runs.
	today, err := time.Parse(models.DateLayout, time.Now().Format(models.DateLayout))
	require.NoError(t, err)
	require.NoError(t, repo.UpdateField(ctx, seeded.Info.Number, project.FieldDeadline, today))

	overdueToday, err := repo.List(ctx, models.Overdue(time.Now()))
	require.NoError(t, err)
	for _, p := range overdueToday {
		assert.NotEqual(t, seeded.Info.Number, p.Info.Number)
	}

	overdueTomorrow, err := repo.List(ctx, models.Overdue(time.Now().AddDate(0, 0, 1)))
	require.NoError(t, err)
	found = false
	for _, p := range overdueTomorrow {
		if p.Info.Number == seeded.Info.Number {
			found = true
		}
	}
	assert.True(t, found, "a deadline of today should be overdue as of tomorrow")

	// Finalized projects drop out of the overdue listing entirely.
	require.NoError(t, repo.MarkFinalized(ctx, seeded.Info.Number, today))
	overdueFinalized, err := repo.List(ctx, models.Overdue(time.Now().AddDate(2, 0, 0)))
	require.NoError(t, err)
	for _, p := range overdueFinalized {
		assert.NotEqual(t, seeded.Info.Number, p.Info.Number)
	}
}
