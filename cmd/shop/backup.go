package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lukelai18/ECommerce-API/internal/backup"
	"github.com/lukelai18/ECommerce-API/internal/config"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export the configured store as JSONL",
	Long: `Export every collection of the configured store (SHOP_STORE and friends)
as JSON lines. With --out the export is written to a file ("-" for stdout);
otherwise it is sent once to every configured backup destination.`,
	GroupID: "database",
	Args:    cobra.NoArgs,
	// Reads the store directly; no API client needed.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := cfg.NewLogger(os.Stderr)

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := cmd.Context()
		if out, _ := cmd.Flags().GetString("out"); out != "" {
			if out == "-" {
				w := bufio.NewWriter(cmd.OutOrStdout())
				if err := backup.ExportJSONL(ctx, st, w); err != nil {
					return err
				}
				return w.Flush()
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			w := bufio.NewWriter(f)
			if err := backup.ExportJSONL(ctx, st, w); err != nil {
				f.Close()
				return err
			}
			if err := w.Flush(); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		}

		dests := backupDestinations(ctx, cfg.Backup, logger)
		if len(dests) == 0 {
			return fmt.Errorf("no backup destination configured (set SHOP_BACKUP_S3_BUCKET, SHOP_BACKUP_GIT_REPO or SHOP_BACKUP_DIR, or use --out)")
		}
		schedule := cfg.Backup.Schedule
		if schedule == "" || schedule == config.BackupDisabled {
			schedule = config.Default().Backup.Schedule
		}
		scheduler, err := backup.NewScheduler(st, dests, schedule, logger)
		if err != nil {
			return err
		}
		if err := scheduler.RunOnce(ctx); err != nil {
			return err
		}
		for _, d := range dests {
			fmt.Fprintf(cmd.OutOrStdout(), "Backed up to %s\n", d.Name())
		}
		return nil
	},
}

func init() {
	backupCmd.Flags().String("out", "", `write the export to this file ("-" for stdout)`)
}
