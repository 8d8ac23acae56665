package main

import (
	"github.com/spf13/cobra"

	"github.com/lukelai18/ECommerce-API/internal/resource"
)

var availableCmd = &cobra.Command{
	Use:     "available",
	Short:   "List products that are marked available and in stock",
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		objs, err := shopClient.AvailableProducts(cmd.Context())
		if err != nil {
			return err
		}
		return printRecords(cmd.OutOrStdout(), resource.Products, objs)
	},
}

var lowStockCmd = &cobra.Command{
	Use:     "low-stock",
	Short:   "List inventories at or below their minimum stock",
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		objs, err := shopClient.LowStockInventories(cmd.Context())
		if err != nil {
			return err
		}
		return printRecords(cmd.OutOrStdout(), resource.Inventories, objs)
	},
}
