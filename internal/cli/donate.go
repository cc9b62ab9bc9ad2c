package cli

import (
	"github.com/spf13/cobra"

	"jobprep/internal/common"
	"jobprep/internal/payment"
	"jobprep/internal/types"
)

var donateCmd = &cobra.Command{
	Use:   "donate",
	Short: "Start a donation payment (1,000 to 5,000 won in steps of 1,000)",
	Long: `Validate the donation and ask the backend for a payment session. The
printed session holds the orderId and the checkout URLs for the payment widget.
After the gateway redirects back, run "jobprep donate confirm".`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if donateOutput.OutputFormat == "" {
			donateOutput.OutputFormat = "json"
		}
		return resolveOutput(cmd.Context(), &donateOutput)
	},
	RunE: runDonate,
}

var donateConfirmCmd = &cobra.Command{
	Use:   "confirm",
	Short: "Confirm a donation after the payment gateway redirect",
	Args:  cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if confirmOutput.OutputFormat == "" {
			confirmOutput.OutputFormat = "json"
		}
		return resolveOutput(cmd.Context(), &confirmOutput)
	},
	RunE: runDonateConfirm,
}

var (
	donateOutput  common.CommandConfig
	confirmOutput common.CommandConfig
	donation      types.DonationRequest
	confirmation  types.PaymentConfirmation
)

func init() {
	addOutputFlags(donateCmd, &donateOutput)
	donateCmd.Flags().IntVar(&donation.Amount, "amount", 0, "Amount in won")
	donateCmd.Flags().StringVar(&donation.DonorName, "name", "", "Donor name (max 100 characters)")
	donateCmd.Flags().StringVar(&donation.Message, "message", "", "Message (max 500 characters)")

	addOutputFlags(donateConfirmCmd, &confirmOutput)
	donateConfirmCmd.Flags().StringVar(&confirmation.PaymentKey, "payment-key", "", "paymentKey from the redirect")
	donateConfirmCmd.Flags().StringVar(&confirmation.OrderID, "order-id", "", "orderId from the redirect")
	donateConfirmCmd.Flags().IntVar(&confirmation.Amount, "amount", 0, "amount from the redirect")

	donateCmd.AddCommand(donateConfirmCmd)
}

func runDonate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := getLoggerFromContext(ctx)

	session, err := payment.NewService(newClient(ctx), logger).Request(ctx, donation)
	if err != nil {
		return err
	}
	return common.NewOutputHandler(logger).HandleOutput(session, donateOutput)
}

func runDonateConfirm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := getLoggerFromContext(ctx)

	receipt, err := payment.NewService(newClient(ctx), logger).Confirm(ctx, confirmation)
	if err != nil {
		return err
	}
	return common.NewOutputHandler(logger).HandleOutput(receipt, confirmOutput)
}
