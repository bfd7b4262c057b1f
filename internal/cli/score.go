package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aura-interview/backend/internal/analysis"
	"github.com/aura-interview/backend/internal/scoring"
)

func newScoreCmd() *cobra.Command {
	var fromStdin bool
	cmd := &cobra.Command{
		Use:   "score [ANSWER...]",
		Short: "Analyze and score a single candidate answer",
		Long: `Print the analyzer features and the weighted rubric for one answer.
Example: interviewctl score "I led a migration to Kubernetes for our team"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if fromStdin {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(b)
			}
			if strings.TrimSpace(text) == "" {
				return errors.New("no answer given")
			}
			return runScore(cmd.OutOrStdout(), text)
		},
	}
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "read the answer from standard input")
	return cmd
}

func runScore(w io.Writer, text string) error {
	f := analysis.NewDefault().Analyze(text)
	res := scoring.NewEngine().Score(f, scoring.PriorContext{})

	printTitle(w, "Analysis")
	fmt.Fprintf(w, "  words %d  sentences %d  avg sentence %.1f words\n", f.WordCount, f.SentenceCount, f.AvgSentenceLength)
	fmt.Fprintf(w, "  sentiment %s  specificity %.2f  examples %t\n", f.Sentiment, f.Specificity, f.HasExamples)
	fmt.Fprintf(w, "  keywords %s\n", listOrNone(f.Keywords))
	fmt.Fprintf(w, "  technical %s\n\n", listOrNone(f.TechnicalTerms))

	printTitle(w, "Rubric")
	printFactors(w, res.Factors)
	fmt.Fprintf(w, "\n  %s %s\n", scoreStyle.Render(fmt.Sprintf("score %.1f", res.Score)), res.Feedback)
	return nil
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return mutedStyle.Render("none")
	}
	return strings.Join(items, ", ")
}
