package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"jobprep/internal/common"
	"jobprep/internal/interview"
	"jobprep/internal/tui"
)

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Hold a mock interview in the terminal",
	Long: `Enter a topic (for example a job title) and answer the interviewers'
questions until the backend ends the interview and returns feedback.
With --output the transcript is saved (markdown by default).`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if interviewOutput.OutputFile == "" {
			return nil
		}
		interviewOutput.OutputFormat = common.ResolveFormat(interviewOutput.OutputFormat, interviewOutput.OutputFile, "markdown")
		return resolveOutput(cmd.Context(), &interviewOutput)
	},
	RunE: runInterview,
}

var (
	interviewOutput common.CommandConfig
	interviewStyle  string
)

func init() {
	addOutputFlags(interviewCmd, &interviewOutput)
	interviewCmd.Flags().StringVar(&interviewStyle, "style", "", "Feedback style: dark, light, notty (default: detect)")
}

func runInterview(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := getLoggerFromContext(ctx)

	var opts []tui.InterviewOption
	if interviewStyle != "" {
		opts = append(opts, tui.WithGlamourStyle(interviewStyle))
	}
	model, err := tui.NewInterview(ctx, interview.NewSession(newClient(ctx), logger), opts...)
	if err != nil {
		return err
	}

	final, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
	if err != nil {
		return fmt.Errorf("interview program failed: %w", err)
	}

	m, ok := final.(tui.InterviewModel)
	if !ok || interviewOutput.OutputFile == "" {
		return nil
	}
	transcript := m.Transcript()
	if len(transcript.Entries) == 0 {
		logger.Info("Interview closed before it started, nothing to save")
		return nil
	}
	return common.NewOutputHandler(logger).HandleOutput(transcript, interviewOutput)
}
