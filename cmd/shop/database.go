package main

import (
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lukelai18/ECommerce-API/internal/ui"
)

var infoCmd = &cobra.Command{
	Use:     "info",
	Short:   "Show record counts and fields of every collection",
	GroupID: "database",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := shopClient.DatabaseInfo(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if done, err := printValue(out, info); done {
			return err
		}

		fmt.Fprintf(out, "Database: %s\n", ui.RenderAccent(info.DatabaseName))
		if info.DataFile != "" {
			fmt.Fprintf(out, "Data file: %s\n", info.DataFile)
		}
		fmt.Fprintln(out)

		names := make([]string, 0, len(info.Tables))
		for name := range info.Tables {
			names = append(names, name)
		}
		slices.Sort(names)

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "COLLECTION\tRECORDS\tFIELDS")
		for _, name := range names {
			t := info.Tables[name]
			fmt.Fprintf(tw, "%s\t%d\t%s\n", name, t.Count, ui.Truncate(formatCell(toAny(t.Fields)), 60))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(out, ui.RenderMuted("\n"+info.Message))
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:     "reset",
	Short:   "Delete every record and start id sequences over",
	GroupID: "database",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("refusing to reset without --yes")
		}
		if err := shopClient.ResetDatabase(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Database reset")
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:     "clear <collection>",
	Short:   "Delete every record of one collection",
	GroupID: "database",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		collection, err := checkCollection(args[0])
		if err != nil {
			return err
		}
		if err := shopClient.ClearCollection(cmd.Context(), collection); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", collection)
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("yes", false, "confirm the reset")
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
