package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aura-interview/backend/config"
	"github.com/aura-interview/backend/internal/interviews"
	"github.com/aura-interview/backend/internal/models"
	"github.com/aura-interview/backend/internal/scoring"
)

// defaultAnswers is the scripted candidate used when no answers file is given.
var defaultAnswers = []string{
	"I have spent five years building backend services in Go and Python, mostly on AWS.",
	"For example, I led a migration of our billing system to Kubernetes. We cut deploy time from an hour to ten minutes and I mentored two junior engineers along the way.",
	"I'm excited about this role because the team works on distributed systems, which is what I love doing.",
	"When production broke last year I coordinated the incident, wrote the postmortem, and we added alerting so it would not happen again.",
}

type simulateOptions struct {
	name       string
	position   string
	experience string
	persona    string
	answers    string
	debug      bool
}

func newSimulateCmd() *cobra.Command {
	var opts simulateOptions
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a scripted interview offline and print the transcript",
		Long: `Run a complete interview against the demo providers: start, one turn per scripted
answer, end. Answers come from --answers (one per line) or a built-in script.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulate(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.name, "name", "Alex Candidate", "candidate name")
	cmd.Flags().StringVar(&opts.position, "position", "Backend Engineer", "position applied for")
	cmd.Flags().StringVar(&opts.experience, "experience", string(models.ExperienceMid), "experience level")
	cmd.Flags().StringVar(&opts.persona, "persona", "", "interviewer persona id (default from config)")
	cmd.Flags().StringVar(&opts.answers, "answers", "", "file with one candidate answer per line")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "log service activity to stderr")
	return cmd
}

func runSimulate(cmd *cobra.Command, opts simulateOptions) error {
	answers := defaultAnswers
	if opts.answers != "" {
		a, err := readAnswers(opts.answers)
		if err != nil {
			return err
		}
		answers = a
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := zap.NewNop()
	if opts.debug {
		if log, err = zap.NewDevelopment(); err != nil {
			return err
		}
	}
	// No adapters: every capability answers from its deterministic demo backend.
	svc := interviews.NewService(interviews.Deps{Config: cfg.Interview, Logger: log})

	ctx := context.Background()
	out := cmd.OutOrStdout()
	started, err := svc.StartSession(ctx, interviews.StartInput{
		Candidate: models.CandidateProfile{
			Name:       opts.name,
			Position:   opts.position,
			Experience: models.ExperienceLevel(opts.experience),
		},
		Persona: opts.persona,
	})
	if err != nil {
		return err
	}

	printTitle(out, fmt.Sprintf("Interview with %s (%s)", started.Persona.Name, started.Persona.Role))
	fmt.Fprintf(out, "%s %s\n\n", aiStyle.Render(started.Persona.Name+":"), started.WelcomeText)
	for i, answer := range answers {
		res, err := svc.SubmitTurn(ctx, started.SessionID, interviews.TurnInput{
			Message:   answer,
			TurnToken: fmt.Sprintf("simulate-%d", i),
		})
		if err != nil {
			return fmt.Errorf("turn %d: %w", i+1, err)
		}
		fmt.Fprintf(out, "%s %s\n", candidateStyle.Render(opts.name+":"), answer)
		fmt.Fprintf(out, "  %s %s\n", scoreStyle.Render(fmt.Sprintf("score %.1f", res.Score)), mutedStyle.Render(res.Feedback))
		fmt.Fprintf(out, "%s %s\n\n", aiStyle.Render(started.Persona.Name+":"), res.ReplyText)
	}

	end, err := svc.EndSession(ctx, started.SessionID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s\n\n", aiStyle.Render(started.Persona.Name+":"), end.ClosingText)

	final := "n/a"
	if end.FinalScore != nil {
		final = fmt.Sprintf("%.1f", *end.FinalScore)
	}
	summary := fmt.Sprintf("Final score %s  %s\nDuration %s\n%s",
		final,
		verdict(scoring.Passed(end.FinalScore, cfg.Interview.PassThreshold)),
		end.Duration,
		strings.Join(end.Recommendations, "\n"),
	)
	fmt.Fprintln(out, summaryStyle.Render(summary))
	return nil
}

func readAnswers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open answers: %w", err)
	}
	defer f.Close()
	var answers []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			answers = append(answers, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}
	if len(answers) == 0 {
		return nil, fmt.Errorf("answers file %s is empty", path)
	}
	return answers, nil
}
