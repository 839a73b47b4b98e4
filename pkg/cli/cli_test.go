package cli_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/poised-pms/poised/pkg/cli"
	"github.com/poised-pms/poised/pkg/lifecycle"
	"github.com/poised-pms/poised/pkg/models"
)

type personKey struct {
	role models.Role
	name string
}

type memPersonStore struct {
	rows map[personKey]*models.Person
}

func newMemPersonStore() *memPersonStore {
	return &memPersonStore{rows: map[personKey]*models.Person{}}
}

func (s *memPersonStore) Insert(_ context.Context, p *models.Person) error {
	clone := *p
	s.rows[personKey{p.Role, p.Name}] = &clone
	return nil
}

func (s *memPersonStore) GetByName(_ context.Context, role models.Role, name string) (*models.Person, error) {
	p, ok := s.rows[personKey{role, name}]
	if !ok {
		return nil, nil
	}
	clone := *p
	return &clone, nil
}

func (s *memPersonStore) UpdateField(_ context.Context, role models.Role, name, field, value string) error {
	p, ok := s.rows[personKey{role, name}]
	if !ok {
		return nil
	}
	switch field {
	case "phone":
		p.Phone = value
	case "email":
		p.Email = value
	case "address":
		p.Address = value
	}
	return nil
}

func (s *memPersonStore) Delete(_ context.Context, role models.Role, name string) error {
	delete(s.rows, personKey{role, name})
	return nil
}

type memProjectStore struct {
	projects map[int]*models.Project
	sites    map[int]bool
}

func newMemProjectStore() *memProjectStore {
	return &memProjectStore{projects: map[int]*models.Project{}, sites: map[int]bool{}}
}

func (s *memProjectStore) NextNumber(_ context.Context) (int, error) {
	max := 0
	for n := range s.projects {
		if n > max {
			max = n
		}
	}
	return max + 1, nil
}

func (s *memProjectStore) NameExists(_ context.Context, name string) (bool, error) {
	for _, p := range s.projects {
		if p.Info.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (s *memProjectStore) InsertSite(_ context.Context, info *models.ProjectInfo) error {
	s.sites[info.ERF] = true
	return nil
}

func (s *memProjectStore) Insert(_ context.Context, p *models.Project) error {
	s.projects[p.Info.Number] = p
	return nil
}

func (s *memProjectStore) FindByNumber(_ context.Context, number int) (*models.Project, error) {
	return s.projects[number], nil
}

func (s *memProjectStore) FindByName(_ context.Context, name string) ([]*models.Project, error) {
	var out []*models.Project
	for _, p := range s.projects {
		if p.Info.Name == name {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memProjectStore) List(_ context.Context, filter models.ListFilter) ([]*models.Project, error) {
	var out []*models.Project
	for _, p := range s.projects {
		switch filter.Kind {
		case models.ListIncomplete:
			if p.Finalized {
				continue
			}
		case models.ListOverdue:
			if p.Finalized || !p.Overdue(filter.AsOf) {
				continue
			}
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *memProjectStore) UpdateField(_ context.Context, number int, field string, value any) error {
	p, ok := s.projects[number]
	if !ok {
		return nil
	}
	switch field {
	case "name":
		p.Info.Name = value.(string)
	case "deadline":
		p.Info.Deadline = value.(time.Time)
	case "fee":
		p.Info.TotalFee = value.(float64)
	case "paid":
		p.Info.SetTotalPaid(value.(float64))
	}
	return nil
}

func (s *memProjectStore) UpdateSiteField(_ context.Context, erf int, field, value string) error {
	for _, p := range s.projects {
		if p.Info.ERF != erf {
			continue
		}
		switch field {
		case "building_type":
			p.Info.BuildingType = value
		case "building_address":
			p.Info.Address = value
		}
	}
	return nil
}

func (s *memProjectStore) RepointPerson(_ context.Context, number int, role models.Role, newName string) error {
	return nil
}

func (s *memProjectStore) MarkFinalized(_ context.Context, number int, completeDate time.Time) error {
	if p, ok := s.projects[number]; ok {
		p.Finalized = true
		p.Info.SetCompleteDate(completeDate)
	}
	return nil
}

func (s *memProjectStore) DeleteProjectRow(_ context.Context, number int) error {
	delete(s.projects, number)
	return nil
}

func (s *memProjectStore) DeleteSiteRow(_ context.Context, erf int) error {
	delete(s.sites, erf)
	return nil
}

func newTestCLI(t *testing.T, script string) (*cli.CLI, *bytes.Buffer, *memPersonStore, *memProjectStore) {
	t.Helper()

	logger := zapadapter.NewZapEctoLogger(zap.NewNop(), nil)

	people := newMemPersonStore()
	projects := newMemProjectStore()
	service := lifecycle.NewService(people, projects, nil, logger)

	out := &bytes.Buffer{}
	c := cli.New(service, strings.NewReader(script), out, logger)
	return c, out, people, projects
}

func seedProject(t *testing.T, people *memPersonStore, projects *memProjectStore, number int, name string) *models.Project {
	t.Helper()
	ctx := context.Background()

	persons := make([]*models.Person, 0, 5)
	for _, role := range models.Roles() {
		p, err := models.NewPerson(role, role.Display()+" Person", "0821230000", "p@example.com", "1 Test Rd")
		require.NoError(t, err)
		require.NoError(t, people.Insert(ctx, p))
		persons = append(persons, p)
	}

	info, err := models.NewProjectInfo(name, "House", "12 Oak Ave", 9000+number, 100000, time.Now().AddDate(0, 6, 0))
	require.NoError(t, err)

	project := models.NewProject(info, persons[0], persons[1], persons[2], persons[3], persons[4])
	project.Info.Number = number
	require.NoError(t, projects.InsertSite(ctx, info))
	require.NoError(t, projects.Insert(ctx, project))
	return project
}

func TestRunExitsWithGoodbye(t *testing.T) {
	c, out, _, _ := newTestCLI(t, "exit\n")

	require.NoError(t, c.Run(context.Background()))

	assert.Contains(t, out.String(), "Select an option:")
	assert.Contains(t, out.String(), "Goodbye!")
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	c, out, _, _ := newTestCLI(t, "bogus\nexit\n")

	require.NoError(t, c.Run(context.Background()))

	assert.Contains(t, out.String(), "You have input invalid information. Try Again.")
	assert.Contains(t, out.String(), "Goodbye!")
}

func TestNewProjectFlowCreatesProject(t *testing.T) {
	deadline := time.Now().AddDate(1, 0, 0).Format(models.DateLayout)
	script := strings.Join([]string{
		"new",
		"",            // project name left blank, derived from customer
		"House",       // building type
		"12 Oak Ave",  // building address
		"9001",        // ERF
		"100000",      // fee
		deadline,      // deadline
		"Alice Able", "0821231234", "alice@example.com", "1 Arch St",
		"Bob Builder", "0834564567", "bob@example.com", "2 Build St",
		"Cara Client", "+27825550000", "cara@example.com", "3 Client St",
		"Dan Davies", "0847897890", "dan@example.com", "4 Eng St",
		"Eve Evans", "0820000000", "eve@example.com", "5 Mgr St",
		"exit",
	}, "\n") + "\n"

	c, out, people, projects := newTestCLI(t, script)
	require.NoError(t, c.Run(context.Background()))

	require.Len(t, projects.projects, 1)
	project := projects.projects[1]
	assert.Equal(t, "House Client", project.Info.Name)
	assert.Equal(t, 9001, project.Info.ERF)
	assert.Len(t, people.rows, 5)
	assert.Contains(t, out.String(), "House Client")
}

func TestNewProjectRetriesInvalidPhone(t *testing.T) {
	deadline := time.Now().AddDate(1, 0, 0).Format(models.DateLayout)
	script := strings.Join([]string{
		"new",
		"Garden Flat",
		"Flat",
		"9 Pine St",
		"9002",
		"50000",
		deadline,
		"Alice Able", "12345", "0821231234", "alice@example.com", "1 Arch St",
		"Bob Builder", "0834564567", "bob@example.com", "2 Build St",
		"Cara Client", "0825550000", "cara@example.com", "3 Client St",
		"Dan Davies", "0847897890", "dan@example.com", "4 Eng St",
		"Eve Evans", "0820000000", "eve@example.com", "5 Mgr St",
		"exit",
	}, "\n") + "\n"

	c, out, _, projects := newTestCLI(t, script)
	require.NoError(t, c.Run(context.Background()))

	assert.Contains(t, out.String(), "Make sure the telephone number starts with a 0 or a +. Try Again.")
	require.Len(t, projects.projects, 1)
	assert.Equal(t, "0821231234", projects.projects[1].Architect.Phone)
}

func TestNewProjectRejectsPastDeadline(t *testing.T) {
	past := time.Now().AddDate(0, 0, -10).Format(models.DateLayout)
	future := time.Now().AddDate(1, 0, 0).Format(models.DateLayout)
	script := strings.Join([]string{
		"new",
		"Garden Flat",
		"Flat",
		"9 Pine St",
		"9002",
		"50000",
		past,
		future,
		"Alice Able", "0821231234", "alice@example.com", "1 Arch St",
		"Bob Builder", "0834564567", "bob@example.com", "2 Build St",
		"Cara Client", "0825550000", "cara@example.com", "3 Client St",
		"Dan Davies", "0847897890", "dan@example.com", "4 Eng St",
		"Eve Evans", "0820000000", "eve@example.com", "5 Mgr St",
		"exit",
	}, "\n") + "\n"

	c, out, _, projects := newTestCLI(t, script)
	require.NoError(t, c.Run(context.Background()))

	assert.Contains(t, out.String(), "The deadline cannot be set to a past date. Try Again.")
	require.Len(t, projects.projects, 1)
}

func TestViewReportsWhenEmpty(t *testing.T) {
	c, out, _, _ := newTestCLI(t, "view\nincomplete\noverdue\nback\nexit\n")

	require.NoError(t, c.Run(context.Background()))

	assert.Contains(t, out.String(), "No projects found.")
	assert.Contains(t, out.String(), "No incomplete projects found.")
	assert.Contains(t, out.String(), "No overdue projects found.")
}

func TestViewPrintsProjects(t *testing.T) {
	c, out, people, projects := newTestCLI(t, "view\nback\nexit\n")
	seedProject(t, people, projects, 1, "Seaside House")

	require.NoError(t, c.Run(context.Background()))

	assert.Contains(t, out.String(), "Seaside House")
}

func TestSearchNotFound(t *testing.T) {
	c, out, _, _ := newTestCLI(t, "search\n42\nexit\n")

	require.NoError(t, c.Run(context.Background()))

	assert.Contains(t, out.String(), "No project found. Try again.")
}

func TestSearchAndAddPayment(t *testing.T) {
	script := strings.Join([]string{
		"search",
		"1",
		"project",
		"paid",
		"25000",
		"back",
		"back",
		"exit",
	}, "\n") + "\n"

	c, out, people, projects := newTestCLI(t, script)
	seedProject(t, people, projects, 1, "Seaside House")

	require.NoError(t, c.Run(context.Background()))

	assert.Contains(t, out.String(), "The current amount paid out of R100000.00: R0.00")
	assert.Equal(t, 25000.0, projects.projects[1].Info.TotalPaid)
}

func TestSearchAndUpdatePersonPhone(t *testing.T) {
	script := strings.Join([]string{
		"search",
		"Seaside House",
		"architect",
		"phone",
		"0839998888",
		"back",
		"exit",
	}, "\n") + "\n"

	c, _, people, projects := newTestCLI(t, script)
	seedProject(t, people, projects, 1, "Seaside House")

	require.NoError(t, c.Run(context.Background()))

	assert.Equal(t, "0839998888", projects.projects[1].Architect.Phone)
	stored := people.rows[personKey{models.RoleArchitect, "Architect Person"}]
	require.NotNil(t, stored)
	assert.Equal(t, "0839998888", stored.Phone)
}

func TestFinalizePrintsInvoiceAndClosesMenu(t *testing.T) {
	script := strings.Join([]string{
		"search",
		"1",
		"f",
		"exit",
	}, "\n") + "\n"

	c, out, people, projects := newTestCLI(t, script)
	seedProject(t, people, projects, 1, "Seaside House")

	require.NoError(t, c.Run(context.Background()))

	assert.Contains(t, out.String(), "Customer Invoice")
	assert.Contains(t, out.String(), "Amount owed: R100000.00")
	assert.True(t, projects.projects[1].Finalized)
	assert.Contains(t, out.String(), "Goodbye!")
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	script := strings.Join([]string{
		"search",
		"1",
		"delete",
		"n",
		"back",
		"exit",
	}, "\n") + "\n"

	c, _, people, projects := newTestCLI(t, script)
	seedProject(t, people, projects, 1, "Seaside House")

	require.NoError(t, c.Run(context.Background()))

	require.Len(t, projects.projects, 1)
}

func TestDeleteRemovesProject(t *testing.T) {
	script := strings.Join([]string{
		"search",
		"1",
		"delete",
		"y",
		"exit",
	}, "\n") + "\n"

	c, out, people, projects := newTestCLI(t, script)
	seedProject(t, people, projects, 1, "Seaside House")

	require.NoError(t, c.Run(context.Background()))

	assert.Contains(t, out.String(), "Project deleted.")
	assert.Empty(t, projects.projects)
	assert.Empty(t, people.rows)
}
