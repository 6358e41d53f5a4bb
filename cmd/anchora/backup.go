package main

import (
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage timestamped backups of the task graph",
}

func init() {
	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	backupCmd.AddCommand(backupCleanupCmd)
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Snapshot the current task graph",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		path, err := engine.Storage().CreateBackup()
		if err != nil {
			return outputError("backup create", err)
		}
		return outputResult(CLIResult{Command: "backup create", Results: path})
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available backups, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		backups, err := engine.Storage().ListBackups()
		if err != nil {
			return outputError("backup list", err)
		}
		return outputResult(CLIResult{Command: "backup list", Results: backups})
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <backup_path>",
	Short: "Restore the task graph from a backup",
	Long:  "Validates the backup, snapshots the current graph, then replaces it with the backup contents.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		if err := engine.Storage().RestoreBackup(args[0]); err != nil {
			return outputError("backup restore", err)
		}
		return outputResult(CLIResult{Command: "backup restore", Results: "restored " + args[0]})
	},
}

var backupCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete old backups beyond the configured retention count",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		if err := engine.Storage().CleanupBackups(engine.Config().BackupKeep); err != nil {
			return outputError("backup cleanup", err)
		}
		return outputResult(CLIResult{Command: "backup cleanup", Results: "done"})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Export the task graph document to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		if err := engine.Storage().Export(args[0]); err != nil {
			return outputError("export", err)
		}
		return outputResult(CLIResult{Command: "export", Results: "exported to " + args[0]})
	},
}

var importCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Replace the task graph with a previously exported document",
	Long:  "Validates the document against the storage schema and backs up the current graph before replacing it.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		if err := engine.Storage().Import(args[0]); err != nil {
			return outputError("import", err)
		}
		return outputResult(CLIResult{Command: "import", Results: "imported " + args[0]})
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the persisted task graph against the storage schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		if err := engine.Storage().Verify(); err != nil {
			return outputError("verify", err)
		}
		return outputResult(CLIResult{Command: "verify", Results: "ok"})
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show storage paths, sizes, and backup count",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		info, err := engine.Storage().StorageInfo()
		if err != nil {
			return outputError("info", err)
		}
		return outputResult(CLIResult{Command: "info", Results: info})
	},
}
