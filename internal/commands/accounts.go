package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/bankfeed/bankfeed/internal/model"
)

func newAccountsCommand() *cobra.Command {
	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "Chart of accounts operations",
	}
	accountsCmd.AddCommand(newAccountsListCommand())
	return accountsCmd
}

func newAccountsListCommand() *cobra.Command {
	var repoDir string
	var accountType string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts, including counterparties created by imports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(repoDir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			return runAccountsList(cmd.Context(), cmd.OutOrStdout(), absDir, model.AccountType(accountType))
		},
	}

	cmd.Flags().StringVar(&repoDir, "repo", ".", "repository directory")
	cmd.Flags().StringVar(&accountType, "type", "", "only list accounts of this type")

	return cmd
}

func runAccountsList(ctx context.Context, out io.Writer, repoRoot string, accountType model.AccountType) error {
	l, err := openLedger(ctx, repoRoot, true)
	if err != nil {
		return err
	}
	defer l.accounts.Close()

	all, err := l.accounts.List(ctx)
	if err != nil {
		return err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	for _, a := range all {
		if accountType != "" && a.Type != accountType {
			continue
		}
		fmt.Fprintf(out, "%-6d %-13s %-24s %s\n", a.ID, a.Type, a.Name, a.Identifier)
	}
	return nil
}
