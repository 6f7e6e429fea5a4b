package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s0up4200/figureshelf/catalog"
)

var charactersCmd = &cobra.Command{
	Use:   "characters",
	Short: "List characters",
	RunE: func(cmd *cobra.Command, args []string) error {
		res := services.Characters.All(context.Background())
		if !res.OK() {
			return errors.New(res.Message)
		}
		fmt.Print(catalog.NewConsoleFormatter().FormatCharacters(res.Data))
		return nil
	},
}

var manufacturersCmd = &cobra.Command{
	Use:   "manufacturers",
	Short: "List manufacturers",
	RunE: func(cmd *cobra.Command, args []string) error {
		res := services.Manufacturers.All(context.Background())
		if !res.OK() {
			return errors.New(res.Message)
		}
		fmt.Print(catalog.NewConsoleFormatter().FormatManufacturers(res.Data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(charactersCmd, manufacturersCmd)
}
