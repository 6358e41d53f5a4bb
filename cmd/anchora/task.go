package main

import (
	"fmt"

	anchora "github.com/vremyavnikuda/anchora"
	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Inspect and modify tasks in the graph",
}

var (
	flagListSection string
	flagListStatus  string
	flagDescription string
)

func init() {
	taskListCmd.Flags().StringVar(&flagListSection, "section", "", "only list tasks in this section")
	taskListCmd.Flags().StringVar(&flagListStatus, "status", "", "only list tasks with this status")
	taskCreateCmd.Flags().StringVar(&flagDescription, "description", "", "optional task description")

	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskStatusCmd)
	taskCmd.AddCommand(taskDeleteCmd)
	taskCmd.AddCommand(taskRefsCmd)
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, optionally filtered by section or status",
	Args:  cobra.NoArgs,
	RunE:  runTaskList,
}

func runTaskList(cmd *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	var statusFilter *anchora.Status
	if flagListStatus != "" {
		status, ok := anchora.ParseStatus(flagListStatus)
		if !ok {
			return outputError("task list", fmt.Errorf("invalid status: %s", flagListStatus))
		}
		statusFilter = &status
	}

	q := engine.Query()
	sections := q.Sections()
	if flagListSection != "" {
		sections = []string{flagListSection}
	}

	rows := []CLITask{}
	for _, section := range sections {
		for _, id := range q.TasksInSection(section) {
			task, ok := q.Task(section, id)
			if !ok {
				continue
			}
			if statusFilter != nil && task.Status != *statusFilter {
				continue
			}
			row := CLITask{
				Section:   section,
				TaskID:    id,
				Title:     task.Title,
				Status:    string(task.Status),
				FileCount: len(task.Files),
				Updated:   task.Updated.Format("2006-01-02 15:04"),
			}
			if task.Description != nil {
				row.Description = *task.Description
			}
			rows = append(rows, row)
		}
	}
	return outputResult(CLIResult{Command: "task list", Results: rows})
}

var taskCreateCmd = &cobra.Command{
	Use:   "create <section> <task_id> <title>",
	Short: "Create a task without a source annotation",
	Args:  cobra.ExactArgs(3),
	RunE:  runTaskCreate,
}

func runTaskCreate(cmd *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	var desc *string
	if flagDescription != "" {
		desc = &flagDescription
	}
	if err := engine.CreateTask(args[0], args[1], args[2], desc); err != nil {
		return outputError("task create", err)
	}
	return outputResult(CLIResult{
		Command: "task create",
		Results: fmt.Sprintf("created %s.%s", args[0], args[1]),
	})
}

var taskStatusCmd = &cobra.Command{
	Use:   "status <section> <task_id> <status>",
	Short: "Update a task's status (todo|in_progress|done|blocked)",
	Args:  cobra.ExactArgs(3),
	RunE:  runTaskStatus,
}

func runTaskStatus(cmd *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.UpdateTaskStatus(args[0], args[1], args[2]); err != nil {
		return outputError("task status", err)
	}
	return outputResult(CLIResult{
		Command: "task status",
		Results: fmt.Sprintf("%s.%s -> %s", args[0], args[1], args[2]),
	})
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <section> <task_id>",
	Short: "Delete a task from the graph",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskDelete,
}

func runTaskDelete(cmd *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.DeleteTask(args[0], args[1]); err != nil {
		return outputError("task delete", err)
	}
	return outputResult(CLIResult{
		Command: "task delete",
		Results: fmt.Sprintf("deleted %s.%s", args[0], args[1]),
	})
}

var taskRefsCmd = &cobra.Command{
	Use:   "refs <section> <task_id>",
	Short: "List every annotated source location of a task",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskRefs,
}

func runTaskRefs(cmd *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	refs, err := engine.Query().References(args[0], args[1])
	if err != nil {
		return outputError("task refs", err)
	}
	return outputResult(CLIResult{Command: "task refs", Results: refs})
}
