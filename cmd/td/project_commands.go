package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ahenry/taskdeck/internal/ui"
	"github.com/ahenry/taskdeck/project"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

// td project list
var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Args:  cobra.NoArgs,
	RunE:  runProjectList,
}

var projectListFormat string

// td project create
var projectCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectCreate,
}

var projectCreateDescription string

// td project update
var projectUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectUpdate,
}

var (
	projectUpdateName        string
	projectUpdateDescription string
)

// td project delete
var projectDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete one or more projects",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProjectDelete,
}

var projectDeleteYes bool

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectListCmd, projectCreateCmd, projectUpdateCmd, projectDeleteCmd)

	projectListCmd.Flags().StringVar(&projectListFormat, "format", "text", "Output format (text, json, yaml)")

	projectCreateCmd.Flags().StringVarP(&projectCreateDescription, "description", "d", "", "Project description")

	projectUpdateCmd.Flags().StringVar(&projectUpdateName, "name", "", "New name")
	projectUpdateCmd.Flags().StringVarP(&projectUpdateDescription, "description", "d", "", "New description")

	projectDeleteCmd.Flags().BoolVarP(&projectDeleteYes, "yes", "y", false, "Skip the confirmation prompt")
}

func parseProjectID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid project id %q", arg)
	}
	return id, nil
}

func runProjectList(cmd *cobra.Command, args []string) error {
	format, err := ParseFormat(projectListFormat)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	if err := a.loadProjects(cmd.Context()); err != nil {
		return err
	}

	projects := a.projects.Projects()
	return writeFormatted(format, projects, func() string {
		return formatProjectTable(projects)
	})
}

func formatProjectTable(projects []project.Project) string {
	if len(projects) == 0 {
		return "No projects found.\n"
	}
	builder := ui.NewTableBuilder([]string{"ID", "NAME", "DESCRIPTION"}, len(projects))
	for _, p := range projects {
		builder.AddRow([]string{
			strconv.FormatInt(p.ID, 10),
			ui.TruncateTableCell(p.Name),
			ui.TruncateTableCell(p.Description),
		})
	}
	return builder.String()
}

func runProjectCreate(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}

	draft := project.New(args[0])
	draft.Description = projectCreateDescription
	created, err := a.projects.Create(cmd.Context(), draft)
	if err != nil {
		return projectStoreError(a, err)
	}
	pr.Successf("Created project #%d: %s", created.ID, created.Name)
	return nil
}

func runProjectUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseProjectID(args[0])
	if err != nil {
		return err
	}

	var patch project.Patch
	if cmd.Flags().Changed("name") {
		patch.Name = &projectUpdateName
	}
	if cmd.Flags().Changed("description") {
		patch.Description = &projectUpdateDescription
	}
	if patch.IsEmpty() {
		return fmt.Errorf("nothing to update (pass --name or --description)")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	if err := a.projects.Update(cmd.Context(), id, patch); err != nil {
		return projectStoreError(a, err)
	}
	pr.Successf("Updated project #%d", id)
	return nil
}

func runProjectDelete(cmd *cobra.Command, args []string) error {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseProjectID(arg)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	if !projectDeleteYes {
		ok, err := confirm(fmt.Sprintf("Delete %d project(s)? Their tasks become quick tasks. [y/N] ", len(ids)))
		if err != nil {
			return err
		}
		if !ok {
			pr.Subtlef("Aborted.")
			return nil
		}
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := a.projects.Delete(cmd.Context(), id); err != nil {
			return projectStoreError(a, err)
		}
		pr.Successf("Deleted project #%d", id)
	}
	return nil
}

func projectStoreError(a *app, err error) error {
	if msg := a.projects.Err(); msg != "" {
		return fmt.Errorf("%s", msg)
	}
	return err
}
