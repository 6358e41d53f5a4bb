package main

import (
	"fmt"

	anchora "github.com/vremyavnikuda/anchora"
	"github.com/spf13/cobra"
)

var (
	flagSearchSections []string
	flagSearchStatuses []string
	flagSearchLimit    int
	flagSearchOffset   int
	flagSuggestLimit   int
)

func init() {
	searchCmd.Flags().StringSliceVar(&flagSearchSections, "section", nil, "restrict to these sections")
	searchCmd.Flags().StringSliceVar(&flagSearchStatuses, "status", nil, "restrict to these statuses")
	searchCmd.Flags().IntVar(&flagSearchLimit, "limit", 0, "max results (default 50)")
	searchCmd.Flags().IntVar(&flagSearchOffset, "offset", 0, "skip this many results")
	suggestCmd.Flags().IntVar(&flagSuggestLimit, "limit", 0, "max suggestions (default 10)")
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search tasks by title, description, and id",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	q := anchora.SearchQuery{
		Text:     args[0],
		Sections: flagSearchSections,
		Limit:    flagSearchLimit,
		Offset:   flagSearchOffset,
	}
	for _, s := range flagSearchStatuses {
		status, ok := anchora.ParseStatus(s)
		if !ok {
			return outputError("search", fmt.Errorf("invalid status: %s", s))
		}
		q.Statuses = append(q.Statuses, status)
	}

	result, err := engine.SearchTasks(q)
	if err != nil {
		return outputError("search", err)
	}
	return outputResult(CLIResult{Command: "search", Results: result})
}

var suggestCmd = &cobra.Command{
	Use:   "suggest <prefix>",
	Short: "Suggest section and task id completions for a prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runSuggest,
}

func runSuggest(cmd *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	suggestions, err := engine.Suggestions(args[0], flagSuggestLimit)
	if err != nil {
		return outputError("suggest", err)
	}
	return outputResult(CLIResult{Command: "suggest", Results: suggestions})
}
