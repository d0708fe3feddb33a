package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/abhisek/elmath/internal/app"
	"github.com/abhisek/elmath/internal/problemgen"
	"github.com/abhisek/elmath/internal/session"
	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Preview generated problems (no database)",
	Long: `Generate a batch of problems and answer them at the prompt.

This is a stateless developer tool: no login, no timer, no history.
Useful for checking problem quality for a grade, type and level.`,
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().String("grade", string(problemgen.Grade3), "Grade, e.g. 3학년")
	previewCmd.Flags().StringSlice("types", []string{string(problemgen.CategoryAddition)}, "Comma-separated problem types, or Random")
	previewCmd.Flags().String("level", string(problemgen.LevelBeginner), "Level: 초급, 중급 or 고급")
	previewCmd.Flags().Int("count", 5, "Number of problems to generate")
	previewCmd.Flags().Uint64("seed", 0, "Random seed (0 picks one)")
	previewCmd.Flags().Bool("answers", false, "Print answers instead of prompting")
}

func runPreview(cmd *cobra.Command, args []string) error {
	gradeVal, _ := cmd.Flags().GetString("grade")
	typeVals, _ := cmd.Flags().GetStringSlice("types")
	levelVal, _ := cmd.Flags().GetString("level")
	count, _ := cmd.Flags().GetInt("count")
	seed, _ := cmd.Flags().GetUint64("seed")
	showAnswers, _ := cmd.Flags().GetBool("answers")

	settings := session.Settings{
		Grade: problemgen.Grade(gradeVal),
		Level: problemgen.Level(levelVal),
	}
	for _, t := range typeVals {
		settings.Types = append(settings.Types, problemgen.Category(strings.TrimSpace(t)))
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if count <= 0 {
		return fmt.Errorf("invalid count %d: must be positive", count)
	}

	cfg := app.ConfigFromEnv()
	genCfg := problemgen.DefaultConfig()
	genCfg.ScaledMultiplication = cfg.ScaledMultiplication
	var opts []problemgen.Option
	if seed != 0 {
		opts = append(opts, problemgen.WithSeed(seed))
	}
	gen := problemgen.New(genCfg, opts...)

	batch, err := session.BuildBatch(gen, settings, count, cfg.Limits.MaxGenerationRetries)
	if err != nil {
		return fmt.Errorf("build problems: %w", err)
	}
	if len(batch.Problems) == 0 {
		return session.ErrEmptyBatch
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s · %s · %s\n", settings.Grade, strings.Join(typeVals, ", "), settings.Level)
	if batch.Exhausted {
		fmt.Fprintf(out, "Only %d distinct problems could be generated.\n", len(batch.Problems))
	}
	fmt.Fprintln(out)

	if showAnswers {
		for _, p := range batch.Problems {
			fmt.Fprintf(out, "%2d. [%s] %-20s %s\n", p.ID, p.Category, p.Question, p.Answer)
		}
		return nil
	}

	scanner := bufio.NewScanner(os.Stdin)
	var correct int
	for i, p := range batch.Problems {
		fmt.Fprintf(out, "── Problem %d/%d (%s) ──\n", i+1, len(batch.Problems), p.Category)
		fmt.Fprintln(out, p.Question)

		fmt.Fprint(out, "\nYour answer: ")
		if !scanner.Scan() {
			fmt.Fprintln(out, "\n(input closed)")
			break
		}
		answer := strings.TrimSpace(scanner.Text())
		if answer == "" {
			fmt.Fprintln(out, "(skipped)")
			fmt.Fprintln(out)
			continue
		}

		if problemgen.CheckAnswer(answer, p) {
			correct++
			fmt.Fprintln(out, "\033[32m✓ Correct!\033[0m")
		} else {
			fmt.Fprintf(out, "\033[31m✗ Wrong.\033[0m Answer: %s\n", p.Answer)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "── Summary: %d/%d correct ──\n", correct, len(batch.Problems))
	return nil
}
