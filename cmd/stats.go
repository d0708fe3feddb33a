package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/abhisek/elmath/internal/history"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show quiz history",
	Long:  "Print the recorded quiz results for one user, or for every user when --user is omitted.",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().String("user", "", "Only show this user's records")
}

func runStats(cmd *cobra.Command, args []string) error {
	user, _ := cmd.Flags().GetString("user")

	kv, err := openKV(cmd, slog.New(slog.DiscardHandler))
	if err != nil {
		return err
	}
	defer kv.Close()

	ledger := history.New(kv)
	users := ledger.Users()
	if user != "" {
		users = []string{user}
	}

	out := cmd.OutOrStdout()
	if len(users) == 0 {
		fmt.Fprintln(out, "No quiz history yet.")
		return nil
	}
	for _, u := range users {
		printStats(out, u, ledger.List(u))
	}
	return nil
}

func printStats(w io.Writer, user string, recs []history.Record) {
	fmt.Fprintf(w, "── %s ──\n", user)
	if len(recs) == 0 {
		fmt.Fprintln(w, "  (no records)")
		return
	}
	var score, total int
	for _, r := range recs {
		fmt.Fprintf(w, "  %s  %3d / %-3d  %5.1f%%\n", r.Date, r.Score, r.TotalProblems, r.Accuracy()*100)
		score += r.Score
		total += r.TotalProblems
	}
	overall := history.Record{Score: score, TotalProblems: total}
	fmt.Fprintf(w, "  %d quizzes, %.1f%% overall\n\n", len(recs), overall.Accuracy()*100)
}
