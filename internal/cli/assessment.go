package cli

import (
	"context"
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"jobprep/internal/assessment"
	"jobprep/internal/common"
	"jobprep/internal/config"
	"jobprep/internal/errors"
	"jobprep/internal/results"
	"jobprep/internal/tui"
)

var assessmentCmd = &cobra.Command{
	Use:   "assessment",
	Short: "Take the aptitude assessment in the terminal",
	Long: `Start the aptitude assessment: enter your name, answer every question on
a 1-5 scale page by page, then submit to see your result. With --output the
result report is also written to a file (the format follows the extension
unless --format is given).`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveOutput(cmd.Context(), &assessmentOutput)
	},
	RunE: runAssessment,
}

var assessmentResultCmd = &cobra.Command{
	Use:   "result [assessment-id]",
	Short: "Fetch the report of a finished assessment",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveOutput(cmd.Context(), &assessmentResultOutput)
	},
	RunE: runAssessmentResult,
}

var (
	assessmentOutput       common.CommandConfig
	assessmentResultOutput common.CommandConfig
	assessmentResultName   string
)

func init() {
	addOutputFlags(assessmentCmd, &assessmentOutput)
	addOutputFlags(assessmentResultCmd, &assessmentResultOutput)
	assessmentResultCmd.Flags().StringVar(&assessmentResultName, "name", "", "Name shown on the report")
	assessmentCmd.AddCommand(assessmentResultCmd)
}

// newAssessmentSession builds a session from the assessment config section.
func newAssessmentSession(ctx context.Context, api assessment.API) *assessment.Session {
	cfg := getConfigFromContext(ctx)
	return assessment.NewSession(api, assessmentOptions(cfg.Assessment), getLoggerFromContext(ctx)).
		WithMetrics(getObservabilityFromContext(ctx).Metrics())
}

func assessmentOptions(cfg config.AssessmentConfig) assessment.Options {
	return assessment.Options{
		PageSize: cfg.PageSize,
		Bands:    assessment.Bands{Low: cfg.ProgressBands.Low, Mid: cfg.ProgressBands.Mid},
	}
}

func reportFor(o *assessment.Outcome) results.Report {
	return results.Build(results.Input{
		Name:         o.Name,
		AssessmentID: o.AssessmentID,
		Result:       o.Result,
		Analysis:     o.Analysis,
	})
}

func runAssessment(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := getLoggerFromContext(ctx)

	session := newAssessmentSession(ctx, newClient(ctx))
	final, err := tea.NewProgram(tui.NewAssessment(ctx, session), tea.WithContext(ctx)).Run()
	if err != nil {
		return fmt.Errorf("assessment program failed: %w", err)
	}

	m, ok := final.(tui.AssessmentModel)
	if !ok || m.Outcome() == nil {
		logger.Info("Assessment closed before submitting")
		return nil
	}
	if assessmentOutput.OutputFile == "" {
		return nil
	}
	return common.NewOutputHandler(logger).HandleOutput(reportFor(m.Outcome()), assessmentOutput)
}

func runAssessmentResult(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := getLoggerFromContext(ctx)

	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return errors.NewValidationError(errors.ErrCodeInvalidInput,
			fmt.Sprintf("invalid assessment id: %s", args[0]), err)
	}

	outcome, err := newAssessmentSession(ctx, newClient(ctx)).Resume(ctx, id)
	if err != nil {
		return err
	}
	if assessmentResultName != "" {
		outcome.Name = assessmentResultName
	}
	return common.NewOutputHandler(logger).HandleOutput(reportFor(outcome), assessmentResultOutput)
}
