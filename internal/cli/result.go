package cli

import (
	"context"

	"github.com/spf13/cobra"

	"jobprep/internal/common"
	"jobprep/internal/results"
	"jobprep/internal/types"
)

var resultCmd = &cobra.Command{
	Use:   "result",
	Short: "Present scores and fetch job recommendations",
}

var resultPresentCmd = &cobra.Command{
	Use:   "present [result-file]",
	Short: "Build the assessment report from a score file",
	Long: `Read an assessment result (a full result object or a bare score map, JSON)
and print the report: per-dimension scores, the strongest trait, the summary
sentences and validity warnings. Use "-" to read stdin.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveOutput(cmd.Context(), &presentOutput)
	},
	RunE: runResultPresent,
}

var resultRecommendCmd = &cobra.Command{
	Use:   "recommend [scores-file]",
	Short: "Ask the backend for jobs matching a score map",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveOutput(cmd.Context(), &recommendOutput)
	},
	RunE: runResultRecommend,
}

var (
	presentOutput   common.CommandConfig
	presentName     string
	recommendOutput common.CommandConfig
)

func init() {
	addOutputFlags(resultPresentCmd, &presentOutput)
	resultPresentCmd.Flags().StringVar(&presentName, "name", "", "Name shown on the report")
	addOutputFlags(resultRecommendCmd, &recommendOutput)

	resultCmd.AddCommand(resultPresentCmd)
	resultCmd.AddCommand(resultRecommendCmd)
}

func runResultPresent(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := getLoggerFromContext(ctx)

	present := func(_ context.Context, r types.AssessmentResult) (results.Report, error) {
		return results.Build(results.Input{Name: presentName, Result: r}), nil
	}
	return common.RunFileCommand(ctx, logger, common.NewOutputHandler(logger), presentOutput, args[0], present)
}

func runResultRecommend(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := getLoggerFromContext(ctx)
	api := newClient(ctx)

	recommend := func(ctx context.Context, scores types.ScoreVector) (*types.Recommendations, error) {
		return api.RecommendJobs(ctx, scores)
	}
	return common.RunFileCommand(ctx, logger, common.NewOutputHandler(logger), recommendOutput, args[0], recommend)
}
