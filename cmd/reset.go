package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/abhisek/elmath/internal/history"
	"github.com/abhisek/elmath/internal/identity"
	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete quiz history",
	Long:  "Delete one user's quiz history, or with --all every user's history and the remembered login.",
	RunE:  runReset,
}

func init() {
	resetCmd.Flags().String("user", "", "Delete this user's history")
	resetCmd.Flags().Bool("all", false, "Delete every user's history")
	resetCmd.MarkFlagsMutuallyExclusive("user", "all")
}

func runReset(cmd *cobra.Command, args []string) error {
	user, _ := cmd.Flags().GetString("user")
	all, _ := cmd.Flags().GetBool("all")
	if user == "" && !all {
		return errors.New("specify --user NAME or --all")
	}

	kv, err := openKV(cmd, slog.New(slog.DiscardHandler))
	if err != nil {
		return err
	}
	defer kv.Close()

	ledger := history.New(kv)
	if all {
		if err := ledger.ResetAll(); err != nil {
			return fmt.Errorf("reset history: %w", err)
		}
		identity.New(kv, identity.DefaultConfig()).Forget()
		fmt.Fprintln(cmd.OutOrStdout(), "All quiz history and the remembered login deleted.")
		return nil
	}
	if err := ledger.Reset(user); err != nil {
		return fmt.Errorf("reset history for %s: %w", user, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Quiz history for %s deleted.\n", user)
	return nil
}
