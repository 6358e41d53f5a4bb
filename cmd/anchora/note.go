package main

import (
	"github.com/spf13/cobra"
)

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Manage free-form notes that can be promoted into tasks",
}

var (
	flagNoteContent string
	flagNoteSection string
	flagNoteTaskID  string
	flagNoteStatus  string
)

func init() {
	noteAddCmd.Flags().StringVar(&flagNoteContent, "content", "", "note body")
	noteAddCmd.Flags().StringVar(&flagNoteSection, "section", "", "suggested section for promotion")
	noteAddCmd.Flags().StringVar(&flagNoteTaskID, "task", "", "suggested task id for promotion")
	noteAddCmd.Flags().StringVar(&flagNoteStatus, "status", "", "suggested status for promotion")

	noteCmd.AddCommand(noteAddCmd)
	noteCmd.AddCommand(noteListCmd)
	noteCmd.AddCommand(noteRmCmd)
	noteCmd.AddCommand(noteLinkCmd)
}

var noteAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a note",
	Args:  cobra.ExactArgs(1),
	RunE:  runNoteAdd,
}

func runNoteAdd(cmd *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	id, err := engine.CreateNote(args[0], flagNoteContent, flagNoteSection, flagNoteTaskID, flagNoteStatus)
	if err != nil {
		return outputError("note add", err)
	}
	return outputResult(CLIResult{Command: "note add", Results: id})
}

var noteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes, oldest first",
	Args:  cobra.NoArgs,
	RunE:  runNoteList,
}

func runNoteList(cmd *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	return outputResult(CLIResult{Command: "note list", Results: engine.Notes()})
}

var noteRmCmd = &cobra.Command{
	Use:   "rm <note_id>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	RunE:  runNoteRm,
}

func runNoteRm(cmd *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.DeleteNote(args[0]); err != nil {
		return outputError("note rm", err)
	}
	return outputResult(CLIResult{Command: "note rm", Results: "deleted " + args[0]})
}

var noteLinkCmd = &cobra.Command{
	Use:   "link <note_id>",
	Short: "Print the annotation line that promotes a note into a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runNoteLink,
}

func runNoteLink(cmd *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	link, err := engine.NoteLink(args[0])
	if err != nil {
		return outputError("note link", err)
	}
	return outputResult(CLIResult{Command: "note link", Results: link})
}
