package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ahenry/taskdeck/editor"
	"github.com/ahenry/taskdeck/task"
)

// td list
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var (
	listCompleted bool
	listOpen      bool
	listPriority  int
	listProject   int64
	listQuick     bool
	listTitle     string
	listFormat    string
)

// td create
var createCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a new task",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreate,
}

var (
	createPriority    int
	createProject     int64
	createDescription string
	createDue         string
	createStart       string
	createRecurrence  string
	createRemind      string
	createSubtasks    []string
)

// td show
var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show detailed information about a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var showFormat string

// td update
var updateCmd = &cobra.Command{
	Use:     "update <id>",
	Short:   "Update a task",
	Aliases: []string{"edit"},
	Args:    cobra.ExactArgs(1),
	RunE:    runUpdate,
}

var (
	updateTitle         string
	updateDescription   string
	updatePriority      int
	updateProject       int64
	updateNoProject     bool
	updateDue           string
	updateStart         string
	updateRecurrence    string
	updateRemind        string
	updateNoRemind      bool
	updateAddSubtask    []string
	updateToggleSubtask []string
	updateRemoveSubtask []string
)

// td done
var doneCmd = &cobra.Command{
	Use:   "done <id>...",
	Short: "Mark one or more tasks as completed",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDone,
}

// td reopen
var reopenCmd = &cobra.Command{
	Use:   "reopen <id>...",
	Short: "Reopen one or more completed tasks",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runReopen,
}

// td delete
var deleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete one or more tasks",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDelete,
}

var deleteYes bool

// td deps
var depsCmd = &cobra.Command{
	Use:   "deps <id>",
	Short: "Show a task's dependencies and related tasks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeps,
}

var depsFormat string

// td block / unblock
var blockCmd = &cobra.Command{
	Use:   "block <id> <target-id>",
	Short: "Mark a task as blocking another task",
	Args:  cobra.ExactArgs(2),
	RunE:  runRelationAdd(task.RelationBlocking, "now blocks"),
}

var unblockCmd = &cobra.Command{
	Use:   "unblock <id> <target-id>",
	Short: "Remove a blocking edge between two tasks",
	Args:  cobra.ExactArgs(2),
	RunE:  runRelationRemove(task.RelationBlocking, "no longer blocks"),
}

// td link / unlink
var linkCmd = &cobra.Command{
	Use:   "link <id> <target-id>",
	Short: "Link two related tasks",
	Args:  cobra.ExactArgs(2),
	RunE:  runRelationAdd(task.RelationLinked, "is now linked to"),
}

var unlinkCmd = &cobra.Command{
	Use:   "unlink <id> <target-id>",
	Short: "Remove a link between two tasks",
	Args:  cobra.ExactArgs(2),
	RunE:  runRelationRemove(task.RelationLinked, "is no longer linked to"),
}

func init() {
	rootCmd.AddCommand(listCmd, createCmd, showCmd, updateCmd, doneCmd, reopenCmd,
		deleteCmd, depsCmd, blockCmd, unblockCmd, linkCmd, unlinkCmd)
	addFlagAliases(listCmd, createCmd, updateCmd)

	// list flags
	listCmd.Flags().BoolVar(&listCompleted, "completed", false, "Show only completed tasks")
	listCmd.Flags().BoolVar(&listOpen, "open", false, "Show only open tasks")
	listCmd.Flags().IntVarP(&listPriority, "priority", "p", -1, "Filter by priority (0=low .. 3=critical)")
	listCmd.Flags().Int64Var(&listProject, "project", 0, "Filter by project id")
	listCmd.Flags().BoolVar(&listQuick, "quick", false, "Show only quick tasks (no project)")
	listCmd.Flags().StringVar(&listTitle, "title", "", "Filter by title substring")
	listCmd.Flags().StringVar(&listFormat, "format", "text", "Output format (text, json, yaml)")

	// create flags
	createCmd.Flags().IntVarP(&createPriority, "priority", "p", task.PriorityMedium, "Priority (0=low .. 3=critical)")
	createCmd.Flags().Int64Var(&createProject, "project", 0, "Project id")
	createCmd.Flags().StringVarP(&createDescription, "description", "d", "", "Description (markdown)")
	createCmd.Flags().StringVar(&createDue, "due", "", "Due date (e.g. 2026-09-01)")
	createCmd.Flags().StringVar(&createStart, "start", "", "Start date")
	createCmd.Flags().StringVar(&createRecurrence, "recurrence", "", "Recurrence rule")
	createCmd.Flags().StringVar(&createRemind, "remind", "", "Reminder time")
	createCmd.Flags().StringArrayVar(&createSubtasks, "subtask", nil, "Add a subtask (repeatable)")

	// show flags
	showCmd.Flags().StringVar(&showFormat, "format", "text", "Output format (text, json, yaml)")

	// update flags
	updateCmd.Flags().StringVar(&updateTitle, "title", "", "New title")
	updateCmd.Flags().StringVarP(&updateDescription, "description", "d", "", "New description")
	updateCmd.Flags().IntVarP(&updatePriority, "priority", "p", 0, "New priority (0-3)")
	updateCmd.Flags().Int64Var(&updateProject, "project", 0, "Move to project id")
	updateCmd.Flags().BoolVar(&updateNoProject, "no-project", false, "Detach from its project (make it a quick task)")
	updateCmd.Flags().StringVar(&updateDue, "due", "", "New due date ('' clears)")
	updateCmd.Flags().StringVar(&updateStart, "start", "", "New start date ('' clears)")
	updateCmd.Flags().StringVar(&updateRecurrence, "recurrence", "", "New recurrence rule")
	updateCmd.Flags().StringVar(&updateRemind, "remind", "", "Reminder time")
	updateCmd.Flags().BoolVar(&updateNoRemind, "no-remind", false, "Disable the reminder")
	updateCmd.Flags().StringArrayVar(&updateAddSubtask, "add-subtask", nil, "Add a subtask (repeatable)")
	updateCmd.Flags().StringArrayVar(&updateToggleSubtask, "toggle-subtask", nil, "Toggle a subtask by id")
	updateCmd.Flags().StringArrayVar(&updateRemoveSubtask, "remove-subtask", nil, "Remove a subtask by id")

	// delete flags
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Skip the confirmation prompt")

	// deps flags
	depsCmd.Flags().StringVar(&depsFormat, "format", "text", "Output format (text, json, yaml)")
}

func parseTaskID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", arg)
	}
	return id, nil
}

func runList(cmd *cobra.Command, args []string) error {
	format, err := ParseFormat(listFormat)
	if err != nil {
		return err
	}
	if listCompleted && listOpen {
		return fmt.Errorf("--completed and --open are mutually exclusive")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if err := a.loadTasks(ctx); err != nil {
		return err
	}
	if err := a.loadProjects(ctx); err != nil {
		return err
	}

	filter := task.ListFilter{
		QuickOnly:      listQuick,
		TitleSubstring: listTitle,
	}
	if listCompleted {
		completed := true
		filter.Completed = &completed
	}
	if listOpen {
		completed := false
		filter.Completed = &completed
	}
	if cmd.Flags().Changed("priority") {
		filter.Priority = task.PriorityPtr(listPriority)
	}
	if cmd.Flags().Changed("project") {
		filter.ProjectID = &listProject
	}

	tasks, err := a.tasks.List(filter)
	if err != nil {
		return err
	}
	return writeFormatted(format, tasks, func() string {
		return formatTaskTable(tasks, a.projects.Name)
	})
}

func runCreate(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}

	s := a.session()
	if err := s.OpenCreate(args[0], a.createDefaults()); err != nil {
		return err
	}
	if cmd.Flags().Changed("priority") {
		if err := s.SetPriority(createPriority); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("project") {
		if err := s.SetProject(&createProject); err != nil {
			return err
		}
	}
	if createDescription != "" {
		if err := s.SetDescription(createDescription); err != nil {
			return err
		}
	}
	if createStart != "" || createDue != "" {
		if err := s.SetDates(createStart, createDue); err != nil {
			return err
		}
	}
	if createRecurrence != "" {
		if err := s.SetRecurrence(createRecurrence); err != nil {
			return err
		}
	}
	if createRemind != "" {
		if err := s.SetReminder(true, createRemind); err != nil {
			return err
		}
	}
	for _, title := range createSubtasks {
		if _, err := s.AddSubtask(title); err != nil {
			return err
		}
	}

	created, err := s.Submit(cmd.Context())
	if err != nil {
		return submitError(s, err)
	}
	pr.Successf("Created task #%d: %s", created.ID, created.Title)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	format, err := ParseFormat(showFormat)
	if err != nil {
		return err
	}
	id, err := parseTaskID(args[0])
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if err := a.loadTasks(ctx); err != nil {
		return err
	}
	if err := a.loadProjects(ctx); err != nil {
		return err
	}

	shown, err := a.tasks.Get(ctx, id)
	if err != nil {
		return err
	}

	return writeFormatted(format, shown, func() string {
		return formatTaskDetail(*shown, a.tasks.Tasks(), a.projects.Name, time.Now())
	})
}

func runUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseTaskID(args[0])
	if err != nil {
		return err
	}
	if updateProject != 0 && updateNoProject {
		return fmt.Errorf("--project and --no-project are mutually exclusive")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if err := a.loadTasks(ctx); err != nil {
		return err
	}

	s := a.session()
	if err := s.OpenEdit(id); err != nil {
		return err
	}
	if cmd.Flags().Changed("title") {
		if err := s.SetTitle(updateTitle); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("description") {
		if err := s.SetDescription(updateDescription); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("priority") {
		if err := s.SetPriority(updatePriority); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("project") {
		if err := s.SetProject(&updateProject); err != nil {
			return err
		}
	}
	if updateNoProject {
		if err := s.SetProject(nil); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("start") || cmd.Flags().Changed("due") {
		draft := s.Draft()
		start, due := draft.StartDate, draft.DueDate
		if cmd.Flags().Changed("start") {
			start = updateStart
		}
		if cmd.Flags().Changed("due") {
			due = updateDue
		}
		if err := s.SetDates(start, due); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("recurrence") {
		if err := s.SetRecurrence(updateRecurrence); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("remind") {
		if err := s.SetReminder(true, updateRemind); err != nil {
			return err
		}
	}
	if updateNoRemind {
		if err := s.SetReminder(false, ""); err != nil {
			return err
		}
	}
	for _, title := range updateAddSubtask {
		if _, err := s.AddSubtask(title); err != nil {
			return err
		}
	}
	for _, key := range updateToggleSubtask {
		if !s.ToggleSubtask(key) {
			return fmt.Errorf("no subtask %q on task #%d", key, id)
		}
	}
	for _, key := range updateRemoveSubtask {
		if !s.RemoveSubtask(key) {
			return fmt.Errorf("no subtask %q on task #%d", key, id)
		}
	}

	updated, err := s.Submit(ctx)
	if err != nil {
		return submitError(s, err)
	}
	if updated == nil {
		pr.Subtlef("Task #%d unchanged", id)
		return nil
	}
	pr.Successf("Updated task #%d: %s", updated.ID, updated.Title)
	return nil
}

func runDone(cmd *cobra.Command, args []string) error {
	return runCompletion(cmd, args, true, "Completed")
}

func runReopen(cmd *cobra.Command, args []string) error {
	return runCompletion(cmd, args, false, "Reopened")
}

func runCompletion(cmd *cobra.Command, args []string, completed bool, verb string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if err := a.loadTasks(ctx); err != nil {
		return err
	}

	for _, arg := range args {
		id, err := parseTaskID(arg)
		if err != nil {
			return err
		}
		if err := a.tasks.SetCompleted(ctx, id, completed); err != nil {
			return fmt.Errorf("task #%d: %s", id, a.tasks.Err())
		}
		title := ""
		if t, ok := a.tasks.Find(id); ok {
			title = ": " + t.Title
		}
		pr.Successf("%s task #%d%s", verb, id, title)
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseTaskID(arg)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	if !deleteYes {
		ok, err := confirm(fmt.Sprintf("Delete %d task(s)? [y/N] ", len(ids)))
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
	ctx := cmd.Context()
	for _, id := range ids {
		if err := a.tasks.Delete(ctx, id); err != nil {
			return fmt.Errorf("task #%d: %s", id, a.tasks.Err())
		}
		pr.Successf("Deleted task #%d", id)
	}
	return nil
}

// confirm prompts on stdin. Non-interactive runs must pass --yes instead.
func confirm(prompt string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, fmt.Errorf("refusing to delete without confirmation (use --yes)")
	}
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// taskDeps is the serializable form of a task's relation views.
type taskDeps struct {
	Task      int64          `json:"task" yaml:"task"`
	BlockedBy []task.TaskRef `json:"blocked_by" yaml:"blocked_by"`
	Blocking  []task.TaskRef `json:"blocking" yaml:"blocking"`
	Linked    []task.TaskRef `json:"linked" yaml:"linked"`
}

func runDeps(cmd *cobra.Command, args []string) error {
	format, err := ParseFormat(depsFormat)
	if err != nil {
		return err
	}
	id, err := parseTaskID(args[0])
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	if err := a.loadTasks(cmd.Context()); err != nil {
		return err
	}
	if _, ok := a.tasks.Find(id); !ok {
		return task.ErrTaskNotFound
	}

	all := a.tasks.Tasks()
	graph := task.BuildGraph(all)
	deps := taskDeps{
		Task:      id,
		BlockedBy: task.DisplayNames(graph.BlockedBy(id), all),
		Blocking:  task.DisplayNames(graph.Blocking(id), all),
		Linked:    task.DisplayNames(graph.Linked(id), all),
	}

	return writeFormatted(format, deps, func() string {
		var b strings.Builder
		writeRefSection(&b, "Blocked by", deps.BlockedBy)
		writeRefSection(&b, "Blocking", deps.Blocking)
		writeRefSection(&b, "Linked", deps.Linked)
		if b.Len() == 0 {
			return fmt.Sprintf("Task #%d has no dependencies or links.\n", id)
		}
		return b.String()
	})
}

func writeRefSection(b *strings.Builder, heading string, refs []task.TaskRef) {
	if len(refs) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", heading)
	for _, ref := range refs {
		fmt.Fprintf(b, "  #%d %s\n", ref.ID, ref.Title)
	}
}

// runRelationAdd routes a relation edit through the picker so the same
// exclusion rules apply as in the interactive form.
func runRelationAdd(kind task.RelationKind, verb string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, target, err := parseIDPair(args)
		if err != nil {
			return err
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if err := a.loadTasks(ctx); err != nil {
			return err
		}

		s := a.session()
		if err := s.OpenEdit(id); err != nil {
			return err
		}
		if err := s.OpenPicker(kind); err != nil {
			return err
		}
		if err := s.Pick(target); err != nil {
			return err
		}
		if _, err := s.Submit(ctx); err != nil {
			return submitError(s, err)
		}
		pr.Successf("Task #%d %s #%d", id, verb, target)
		return nil
	}
}

func runRelationRemove(kind task.RelationKind, verb string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, target, err := parseIDPair(args)
		if err != nil {
			return err
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if err := a.loadTasks(ctx); err != nil {
			return err
		}

		s := a.session()
		if err := s.OpenEdit(id); err != nil {
			return err
		}
		if !s.RemoveRelation(kind, target) {
			return fmt.Errorf("task #%d has no such relation to #%d", id, target)
		}
		if _, err := s.Submit(ctx); err != nil {
			return submitError(s, err)
		}
		pr.Successf("Task #%d %s #%d", id, verb, target)
		return nil
	}
}

func parseIDPair(args []string) (int64, int64, error) {
	id, err := parseTaskID(args[0])
	if err != nil {
		return 0, 0, err
	}
	target, err := parseTaskID(args[1])
	if err != nil {
		return 0, 0, err
	}
	return id, target, nil
}

// submitError prefers the session's display message, which carries the
// server's own error text when there is one.
func submitError(s *editor.Session, err error) error {
	if msg := s.SubmitError(); msg != "" {
		return fmt.Errorf("%s", msg)
	}
	return err
}
