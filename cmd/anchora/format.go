package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	anchora "github.com/vremyavnikuda/anchora"
)

// CLIResult is the JSON envelope every command emits.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CLITask is one task row for listings.
type CLITask struct {
	Section     string `json:"section"`
	TaskID      string `json:"task_id"`
	Title       string `json:"title"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
	FileCount   int    `json:"file_count"`
	Updated     string `json:"updated"`
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so
// RunE can propagate it to Cobra. In JSON mode the error is written to
// stdout as a CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// outputResultText dispatches to the text formatter for the result type.
func outputResultText(result CLIResult) error {
	w := io.Writer(os.Stdout)

	switch v := result.Results.(type) {
	case []CLITask:
		formatTasksText(w, v)
	case []anchora.Reference:
		formatReferencesText(w, v)
	case []*anchora.Note:
		formatNotesText(w, v)
	case *anchora.SearchResult:
		formatSearchText(w, v)
	case []anchora.Suggestion:
		formatSuggestionsText(w, v)
	case *anchora.Statistics:
		formatStatisticsText(w, v)
	case anchora.Overview:
		formatOverviewText(w, v)
	case *anchora.ScanResult:
		formatScanText(w, v)
	case []string:
		for _, s := range v {
			fmt.Fprintln(w, s)
		}
	case string:
		fmt.Fprintln(w, v)
	case nil:
		// Nothing to print.
	default:
		// Fall back to indented JSON for structured one-offs (storage
		// info, validation results).
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return nil
}

// formatTasksText renders task rows as aligned columns.
func formatTasksText(w io.Writer, tasks []CLITask) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SECTION\tID\tSTATUS\tFILES\tTITLE")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			t.Section, t.TaskID, t.Status, t.FileCount, t.Title)
	}
	tw.Flush()
}

// formatReferencesText renders references as "file:line" lines.
func formatReferencesText(w io.Writer, refs []anchora.Reference) {
	for _, r := range refs {
		if r.Note != "" {
			fmt.Fprintf(w, "%s:%d\t%s\n", r.FilePath, r.Line, r.Note)
			continue
		}
		fmt.Fprintf(w, "%s:%d\n", r.FilePath, r.Line)
	}
}

func formatNotesText(w io.Writer, notes []*anchora.Note) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tTITLE")
	for _, n := range notes {
		fmt.Fprintf(tw, "%s\t%s\t%s\n",
			n.ID, n.Created.Format("2006-01-02 15:04"), n.Title)
	}
	tw.Flush()
}

func formatSearchText(w io.Writer, result *anchora.SearchResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tSTATUS\tSCORE\tTITLE")
	for _, m := range result.Tasks {
		fmt.Fprintf(tw, "%s.%s\t%s\t%.2f\t%s\n",
			m.Section, m.TaskID, m.Status, m.Relevance, m.Title)
	}
	tw.Flush()
	if len(result.Tasks) < result.TotalCount {
		fmt.Fprintf(w, "\nShowing %d of %d results\n", len(result.Tasks), result.TotalCount)
	}
}

func formatSuggestionsText(w io.Writer, suggestions []anchora.Suggestion) {
	for _, s := range suggestions {
		fmt.Fprintf(w, "%s\t(%s)\n", s.Text, s.Kind)
	}
}

func formatOverviewText(w io.Writer, o anchora.Overview) {
	fmt.Fprintln(w, "Task Overview")
	fmt.Fprintln(w, "=============")
	fmt.Fprintf(w, "Total: %d (todo %d, in_progress %d, done %d, blocked %d)\n",
		o.TotalTasks, o.TodoTasks, o.InProgressTasks, o.CompletedTasks, o.BlockedTasks)
	fmt.Fprintf(w, "Completion: %.1f%%\n", o.CompletionRate*100)
	if len(o.Sections) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SECTION\tTASKS\tDONE\tCOMPLETION")
		for _, s := range o.Sections {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%.1f%%\n",
				s.Name, s.TotalTasks, s.Done, s.CompletionRate*100)
		}
		tw.Flush()
	}
}

func formatStatisticsText(w io.Writer, st *anchora.Statistics) {
	formatOverviewText(w, st.Overview)
	if len(st.RecentItems) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Recent Activity:")
		for _, a := range st.RecentItems {
			fmt.Fprintf(w, "  %s  %s %s.%s\n",
				a.Timestamp.Format("2006-01-02 15:04"), a.Kind, a.Section, a.TaskID)
		}
	}
}

func formatScanText(w io.Writer, r *anchora.ScanResult) {
	fmt.Fprintf(w, "Files scanned: %d\n", r.FilesScanned)
	fmt.Fprintf(w, "Annotations found: %d\n", r.TasksFound)
	fmt.Fprintf(w, "Tasks created: %d\n", r.TasksCreated)
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
