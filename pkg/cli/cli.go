// Package cli implements the interactive console. Menus are plain loops
// over line input; field validation lives in pkg/models and the lifecycle
// service, and the loops here only decide when to re-prompt. A store
// outage is reported and the session continues.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/poised-pms/poised/pkg/appctx"
	"github.com/poised-pms/poised/pkg/errs"
	"github.com/poised-pms/poised/pkg/lifecycle"
	"github.com/poised-pms/poised/pkg/models"
)

const (
	msgInputError  = "You have input invalid information. Try Again."
	msgUnavailable = "Could not connect to database. Try again."
)

// CLI drives the interactive menu session.
type CLI struct {
	service *lifecycle.Service
	in      *bufio.Scanner
	out     io.Writer
	logger  ectologger.Logger
}

// New creates a CLI reading commands from in and writing to out.
func New(service *lifecycle.Service, in io.Reader, out io.Writer, logger ectologger.Logger) *CLI {
	return &CLI{
		service: service,
		in:      bufio.NewScanner(in),
		out:     out,
		logger:  logger,
	}
}

// Run executes the main menu loop until the operator exits or input ends.
func (c *CLI) Run(ctx context.Context) error {
	ctx = appctx.SetChannel(ctx, appctx.ChannelCLI)

	for {
		fmt.Fprintln(c.out, "Select an option:")
		fmt.Fprintln(c.out, "new - create a new project")
		fmt.Fprintln(c.out, "view - view and update projects")
		fmt.Fprintln(c.out, "search - search and update projects")
		fmt.Fprintln(c.out, "exit - exit the program")

		choice, ok := c.readLine()
		if !ok {
			return nil
		}

		switch choice {
		case "new":
			c.newProject(ctx)
		case "view":
			c.printProjects(ctx, models.All())
			c.viewMenu(ctx)
		case "search":
			c.searchToUpdate(ctx)
		case "exit":
			fmt.Fprintln(c.out, "Goodbye!")
			return nil
		default:
			fmt.Fprintln(c.out, msgInputError)
		}
	}
}

func (c *CLI) readLine() (string, bool) {
	if !c.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.in.Text()), true
}

func (c *CLI) prompt(label string) (string, bool) {
	fmt.Fprintln(c.out, label)
	return c.readLine()
}

func (c *CLI) promptNonEmpty(label string) (string, bool) {
	for {
		value, ok := c.prompt(label)
		if !ok {
			return "", false
		}
		if value != "" {
			return value, true
		}
		fmt.Fprintln(c.out, "Make sure you input all relevant information. Try Again.")
	}
}

func (c *CLI) promptInt(label string) (int, bool) {
	for {
		value, ok := c.prompt(label)
		if !ok {
			return 0, false
		}
		n, err := strconv.Atoi(value)
		if err == nil && n != 0 {
			return n, true
		}
		fmt.Fprintln(c.out, msgInputError)
	}
}

func (c *CLI) promptFloat(label string) (float64, bool) {
	for {
		value, ok := c.prompt(label)
		if !ok {
			return 0, false
		}
		f, err := strconv.ParseFloat(value, 64)
		if err == nil && f != 0 {
			return f, true
		}
		fmt.Fprintln(c.out, msgInputError)
	}
}

func (c *CLI) promptDate(label string) (time.Time, bool) {
	for {
		value, ok := c.prompt(label)
		if !ok {
			return time.Time{}, false
		}
		d, err := time.Parse(models.DateLayout, value)
		if err == nil {
			return d, true
		}
		fmt.Fprintln(c.out, msgInputError)
	}
}

// promptFutureDate re-prompts while the entered date is in the past. Used
// at intake only; deadline edits later accept any date.
func (c *CLI) promptFutureDate(label string) (time.Time, bool) {
	for {
		d, ok := c.promptDate(label)
		if !ok {
			return time.Time{}, false
		}
		today, _ := time.Parse(models.DateLayout, time.Now().Format(models.DateLayout))
		if !d.Before(today) {
			return d, true
		}
		fmt.Fprintln(c.out, "The deadline cannot be set to a past date. Try Again.")
	}
}

// promptPhone re-prompts until the value passes the phone predicate.
func (c *CLI) promptPhone(label string) (string, bool) {
	for {
		value, ok := c.prompt(label)
		if !ok {
			return "", false
		}
		if models.ValidPhone(value) {
			return value, true
		}
		fmt.Fprintln(c.out, "Make sure the telephone number starts with a 0 or a +. Try Again.")
	}
}

func (c *CLI) promptPerson(role models.Role) (*models.Person, bool) {
	label := strings.ToLower(role.Display())

	name, ok := c.promptNonEmpty("Enter the " + label + "'s name: ")
	if !ok {
		return nil, false
	}
	phone, ok := c.promptPhone("Enter the " + label + "'s telephone number: ")
	if !ok {
		return nil, false
	}
	email, ok := c.promptNonEmpty("Enter the " + label + "'s email address: ")
	if !ok {
		return nil, false
	}
	address, ok := c.promptNonEmpty("Enter the " + label + "'s physical address: ")
	if !ok {
		return nil, false
	}

	person, err := models.NewPerson(role, name, phone, email, address)
	if err != nil {
		fmt.Fprintln(c.out, err.Error())
		return c.promptPerson(role)
	}
	return person, true
}

func (c *CLI) newProject(ctx context.Context) {
	name, ok := c.prompt("Enter the project name (Optional): ")
	if !ok {
		return
	}
	building, ok := c.promptNonEmpty("Enter the building type: ")
	if !ok {
		return
	}
	address, ok := c.promptNonEmpty("Enter the building address: ")
	if !ok {
		return
	}
	erf, ok := c.promptInt("Enter the ERF Number: ")
	if !ok {
		return
	}
	fee, ok := c.promptFloat("Enter the total fee: ")
	if !ok {
		return
	}
	deadline, ok := c.promptFutureDate("Enter the deadline (yyyy-mm-dd): ")
	if !ok {
		return
	}

	info, err := models.NewProjectInfo(name, building, address, erf, fee, deadline)
	if err != nil {
		fmt.Fprintln(c.out, err.Error())
		return
	}

	people := make(map[models.Role]*models.Person, 5)
	for _, role := range models.Roles() {
		p, ok := c.promptPerson(role)
		if !ok {
			return
		}
		people[role] = p
	}

	project, err := c.service.CreateProject(ctx, info,
		people[models.RoleArchitect],
		people[models.RoleContractor],
		people[models.RoleCustomer],
		people[models.RoleStructuralEngineer],
		people[models.RoleProjectManager],
	)
	if err != nil {
		c.reportError(err)
		return
	}

	fmt.Fprintln(c.out, project.String())
}

func (c *CLI) viewMenu(ctx context.Context) {
	for {
		fmt.Fprintln(c.out, "Select an option:")
		fmt.Fprintln(c.out, "incomplete - view all incomplete projects")
		fmt.Fprintln(c.out, "overdue - view all overdue projects")
		fmt.Fprintln(c.out, "back - go back")

		choice, ok := c.readLine()
		if !ok {
			return
		}

		switch choice {
		case "incomplete":
			c.printProjects(ctx, models.Incomplete())
		case "overdue":
			c.printProjects(ctx, models.Overdue(time.Now()))
		case "back":
			fmt.Fprintln(c.out)
			return
		default:
			fmt.Fprintln(c.out, msgInputError)
		}
	}
}

func (c *CLI) printProjects(ctx context.Context, filter models.ListFilter) {
	projects, err := c.service.List(ctx, filter)
	if err != nil {
		c.reportError(err)
		return
	}

	if len(projects) == 0 {
		switch filter.Kind {
		case models.ListOverdue:
			fmt.Fprintln(c.out, "No overdue projects found.")
		case models.ListIncomplete:
			fmt.Fprintln(c.out, "No incomplete projects found.")
		default:
			fmt.Fprintln(c.out, "No projects found.")
		}
		return
	}

	for _, project := range projects {
		fmt.Fprintln(c.out, project.String())
	}
}

func (c *CLI) searchToUpdate(ctx context.Context) {
	query, ok := c.prompt("Enter the name or number of the project you wish to update (Enter 'back' to exit): ")
	if !ok || query == "back" {
		return
	}

	project, err := c.service.Search(ctx, query)
	if err != nil {
		switch {
		case errs.IsNotFound(err):
			fmt.Fprintln(c.out, "No project found. Try again.")
		case errs.IsAmbiguous(err):
			fmt.Fprintln(c.out, "Multiple projects found. Please refine your search with the appropriate project number.")
		default:
			c.reportError(err)
		}
		return
	}

	fmt.Fprintln(c.out, project.String())
	c.updateMenu(ctx, project)
}

func (c *CLI) updateMenu(ctx context.Context, project *models.Project) {
	for {
		fmt.Fprintln(c.out, "Select an option:")
		fmt.Fprintln(c.out, "project - update project info")
		fmt.Fprintln(c.out, "architect - update architect info")
		fmt.Fprintln(c.out, "contractor - update contractor info")
		fmt.Fprintln(c.out, "customer - update customer info")
		fmt.Fprintln(c.out, "engineer - update structural engineer info")
		fmt.Fprintln(c.out, "manager - update project manager info")
		fmt.Fprintln(c.out, "f - finalise project")
		fmt.Fprintln(c.out, "delete - delete project")
		fmt.Fprintln(c.out, "search - search for another project")
		fmt.Fprintln(c.out, "back - go back")

		choice, ok := c.readLine()
		if !ok {
			return
		}

		switch choice {
		case "project":
			c.projectInfoMenu(ctx, project)
		case "architect":
			c.personMenu(ctx, project, models.RoleArchitect)
		case "contractor":
			c.personMenu(ctx, project, models.RoleContractor)
		case "customer":
			c.personMenu(ctx, project, models.RoleCustomer)
		case "engineer":
			c.personMenu(ctx, project, models.RoleStructuralEngineer)
		case "manager":
			c.personMenu(ctx, project, models.RoleProjectManager)
		case "f":
			message, err := c.service.Finalize(ctx, project)
			if err != nil {
				c.reportError(err)
				continue
			}
			fmt.Fprintln(c.out, message)
			return
		case "delete":
			if c.deleteProject(ctx, project) {
				return
			}
		case "search":
			c.searchToUpdate(ctx)
			return
		case "back":
			return
		default:
			fmt.Fprintln(c.out, msgInputError)
		}
	}
}

func (c *CLI) projectInfoMenu(ctx context.Context, project *models.Project) {
	for {
		fmt.Fprintln(c.out, "What project information would you like to update?")
		fmt.Fprintln(c.out, "name - project name")
		fmt.Fprintln(c.out, "type - building type")
		fmt.Fprintln(c.out, "address - address")
		fmt.Fprintln(c.out, "fee - Total Fee")
		fmt.Fprintln(c.out, "paid - Total Paid")
		fmt.Fprintln(c.out, "deadline - deadline")
		fmt.Fprintln(c.out, "back - go back")

		choice, ok := c.readLine()
		if !ok {
			return
		}

		var err error
		switch choice {
		case "name":
			value, ok := c.promptNonEmpty("Enter the new project name:")
			if !ok {
				return
			}
			err = c.service.RenameProject(ctx, project, value)
		case "type":
			value, ok := c.promptNonEmpty("Enter the new building type:")
			if !ok {
				return
			}
			err = c.service.SetBuildingType(ctx, project, value)
		case "address":
			value, ok := c.promptNonEmpty("Enter the address:")
			if !ok {
				return
			}
			err = c.service.SetBuildingAddress(ctx, project, value)
		case "fee":
			value, ok := c.promptFloat("Enter the new fee:")
			if !ok {
				return
			}
			err = c.service.SetFee(ctx, project, value)
		case "paid":
			fmt.Fprintf(c.out, "The current amount paid out of R%.2f: R%.2f\n",
				project.Info.TotalFee, project.Info.TotalPaid)
			value, ok := c.promptFloat("Enter amount paid: ")
			if !ok {
				return
			}
			err = c.service.AddPayment(ctx, project, value)
		case "deadline":
			fmt.Fprintf(c.out, "The current due date is: %s\n", project.Info.DeadlineString())
			value, ok := c.promptDate("Enter new due date (yyyy-mm-dd): ")
			if !ok {
				return
			}
			err = c.service.SetDeadline(ctx, project, value)
		case "back":
			return
		default:
			fmt.Fprintln(c.out, msgInputError)
			continue
		}

		if err != nil {
			c.reportError(err)
			continue
		}
		fmt.Fprintln(c.out, project.String())
	}
}

func (c *CLI) personMenu(ctx context.Context, project *models.Project, role models.Role) {
	label := strings.ToLower(role.Display())

	fmt.Fprintf(c.out, "What %s information would you like to update?\n", label)
	fmt.Fprintf(c.out, "all - update all %s's information\n", label)
	fmt.Fprintf(c.out, "name - update %s's name\n", label)
	fmt.Fprintf(c.out, "phone - update %s's phone number\n", label)
	fmt.Fprintf(c.out, "email - update %s's email address\n", label)
	fmt.Fprintf(c.out, "address - update %s's address\n", label)
	fmt.Fprintln(c.out, "back - go back")

	choice, ok := c.readLine()
	if !ok {
		return
	}

	var err error
	switch choice {
	case "all":
		var update lifecycle.PersonUpdate
		if update.Name, ok = c.promptNonEmpty("Enter the new " + label + "'s name: "); !ok {
			return
		}
		if update.Phone, ok = c.promptPhone("Enter the " + label + "'s telephone number: "); !ok {
			return
		}
		if update.Email, ok = c.promptNonEmpty("Enter the " + label + "'s email address: "); !ok {
			return
		}
		if update.Address, ok = c.promptNonEmpty("Enter the " + label + "'s physical address: "); !ok {
			return
		}
		err = c.service.UpdateAllPersonFields(ctx, project, role, update)
	case "name":
		value, ok := c.promptNonEmpty("Enter the new " + label + "'s name: ")
		if !ok {
			return
		}
		err = c.service.RenamePerson(ctx, project, role, value)
	case "phone":
		value, ok := c.promptPhone("Enter the " + label + "'s telephone number: ")
		if !ok {
			return
		}
		err = c.service.UpdatePersonField(ctx, project, role, lifecycle.PersonFieldPhone, value)
	case "email":
		value, ok := c.promptNonEmpty("Enter the " + label + "'s email address: ")
		if !ok {
			return
		}
		err = c.service.UpdatePersonField(ctx, project, role, lifecycle.PersonFieldEmail, value)
	case "address":
		value, ok := c.promptNonEmpty("Enter the " + label + "'s physical address: ")
		if !ok {
			return
		}
		err = c.service.UpdatePersonField(ctx, project, role, lifecycle.PersonFieldAddress, value)
	case "back":
		return
	default:
		fmt.Fprintln(c.out, msgInputError)
		return
	}

	if err != nil {
		c.reportError(err)
		return
	}
	fmt.Fprintln(c.out, project.String())
}

// deleteProject confirms and deletes. Returns true when the project was
// deleted and the update menu should close.
func (c *CLI) deleteProject(ctx context.Context, project *models.Project) bool {
	for {
		choice, ok := c.prompt("Are you sure you want to delete this project? This cannot be undone. (y/n): ")
		if !ok {
			return false
		}
		switch choice {
		case "y":
			if err := c.service.DeleteProject(ctx, project); err != nil {
				c.reportError(err)
				return false
			}
			fmt.Fprintln(c.out, "Project deleted.")
			return true
		case "n":
			return false
		default:
			fmt.Fprintln(c.out, msgInputError)
		}
	}
}

func (c *CLI) reportError(err error) {
	switch {
	case errs.IsPartialWrite(err):
		fmt.Fprintln(c.out, "Warning: the update did not fully complete and the stored data may need attention.")
		fmt.Fprintln(c.out, err.Error())
	case errs.IsUnavailable(err):
		fmt.Fprintln(c.out, msgUnavailable)
	case errs.IsValidation(err):
		fmt.Fprintln(c.out, err.Error())
	default:
		fmt.Fprintln(c.out, err.Error())
	}
	c.logger.WithError(err).Error("console operation failed")
}
