package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/epeers/mftracker/internal/search"
	"github.com/epeers/mftracker/internal/services"
	"github.com/spf13/cobra"
)

// searchCmd looks up schemes by name
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search schemes by name",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	query := strings.Join(args, " ")
	client := search.NewClient(newClient(), search.DefaultMinLength)
	if !client.Eligible(query) {
		return fmt.Errorf("query must be at least %d characters", search.DefaultMinLength)
	}

	schemes, err := client.Search(ctx, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(schemes) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No schemes found.")
		return nil
	}
	for _, s := range schemes {
		fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", s.SchemeCode, s.SchemeName)
	}
	return nil
}

// fundsCmd lists the caller's funds
var fundsCmd = &cobra.Command{
	Use:   "funds",
	Short: "List tracked funds",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		funds, err := services.NewFundService(newClient(), 0).RefreshFunds(ctx, token)
		if err != nil {
			return err
		}
		for _, f := range funds {
			name := f.FundName
			if f.Nickname != "" {
				name += " (" + f.Nickname + ")"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-26s %-10s %s\n", f.ID, f.SchemeCode, name)
		}
		return nil
	},
}
