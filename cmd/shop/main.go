// Command shop runs the e-commerce API server and talks to it from the
// command line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lukelai18/ECommerce-API/internal/client"
	"github.com/lukelai18/ECommerce-API/internal/ui"
)

var (
	serverURL    string
	authToken    string
	outputFormat string
	noColor      bool

	shopClient client.ShopClient
)

func defaultServerURL() string {
	if s := os.Getenv("SHOP_URL"); s != "" {
		return s
	}
	return "http://localhost:8000"
}

var rootCmd = &cobra.Command{
	Use:           "shop <command>",
	Short:         "E-commerce API server and client",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor || !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}
		switch outputFormat {
		case outputTable, outputJSON, outputYAML:
		default:
			return fmt.Errorf("unknown output format %q (must be table, json or yaml)", outputFormat)
		}
		shopClient = client.NewHTTPClient(serverURL, authToken)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if shopClient != nil {
			shopClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", defaultServerURL(), "server base URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("SHOP_AUTH_TOKEN"), "bearer token")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", outputTable, "output format (table, json or yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "records", Title: "Records:"},
		&cobra.Group{ID: "views", Title: "Views:"},
		&cobra.Group{ID: "database", Title: "Database:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Records
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(deleteCmd)

	// Views
	rootCmd.AddCommand(availableCmd)
	rootCmd.AddCommand(lowStockCmd)
	rootCmd.AddCommand(watchCmd)

	// Database
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(backupCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.RenderError("Error:"), err)
		os.Exit(1)
	}
}
