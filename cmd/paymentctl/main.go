// Command paymentctl is an operator tool for the payment store: schema setup,
// inspecting a payment and reconciling one by hand against the processor.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"paycollect/internal/app"
	"paycollect/internal/config"
	"paycollect/internal/domain"
	"paycollect/internal/service"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "paymentctl",
		Short:         "Operate the payment collection store",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "deadline for the whole command")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(verifyCmd())

	return rootCmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the payments schema if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, env *cliEnv) error {
				if err := env.store.Migrate(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", env.cfg.Database.Driver)
				return nil
			})
		},
	}
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <tx_ref>",
		Short: "Print a stored payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, env *cliEnv) error {
				payment, err := env.store.Payments.GetByReference(ctx, args[0])
				if err != nil {
					return fmt.Errorf("payment %s: %w", args[0], err)
				}
				return printPayment(cmd.OutOrStdout(), payment)
			})
		},
	}
}

func verifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <tx_ref>",
		Short: "Reconcile a payment against the processor",
		Long: `Reconcile a payment against the processor's verify endpoint and print the result.

The same rules as the HTTP verification endpoint apply: a successful payment is never
re-queried and a final payment is never changed.

Examples:
  paymentctl verify tx-jane-1700000000000-abc
  paymentctl verify tx-jane-1700000000000-abc --transaction-id 4321987`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transactionID, _ := cmd.Flags().GetString("transaction-id")

			return withStore(cmd, func(ctx context.Context, env *cliEnv) error {
				if err := env.cfg.Validate(); err != nil {
					return err
				}

				gw := app.NewGatewayClient(env.cfg.Gateway, nil, env.logger)
				svcs, err := app.NewServices(env.cfg, env.store.Payments, gw, nil, env.logger)
				if err != nil {
					return err
				}

				payment, err := svcs.Reconciliation.Verify(ctx, service.VerifyRequest{
					Reference:     args[0],
					TransactionID: transactionID,
				})

				var failed *service.VerificationFailedError
				if errors.As(err, &failed) {
					fmt.Fprintf(cmd.ErrOrStderr(), "not confirmed: status=%q transaction_status=%q message=%q\n",
						failed.ReportedStatus, failed.TransactionStatus, failed.Message)
					return printPayment(cmd.OutOrStdout(), payment)
				}
				if err != nil {
					return fmt.Errorf("%s: %w", service.KindOf(err), err)
				}
				return printPayment(cmd.OutOrStdout(), payment)
			})
		},
	}

	cmd.Flags().String("transaction-id", "", "processor transaction id to verify by")

	return cmd
}

type cliEnv struct {
	cfg    *config.Config
	store  *app.Store
	logger *zap.Logger
}

// withStore loads configuration, opens the store and runs fn under the command deadline.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, env *cliEnv) error) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	cfg := config.Load()
	logger, err := app.NewLogger(config.LogConfig{Level: "warn", Format: "console"})
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := app.OpenStore(ctx, cfg.Database, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(ctx, &cliEnv{cfg: cfg, store: store, logger: logger})
}

type paymentView struct {
	TransactionReference string          `json:"tx_ref"`
	Status               string          `json:"status"`
	Amount               string          `json:"amount"`
	Currency             string          `json:"currency"`
	Name                 string          `json:"name,omitempty"`
	Email                string          `json:"email,omitempty"`
	PhoneNumber          string          `json:"phone_number,omitempty"`
	PaymentMethod        string          `json:"payment_method,omitempty"`
	Project              string          `json:"project,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	ProviderResponse     json.RawMessage `json:"provider_response,omitempty"`
}

func printPayment(w io.Writer, p *domain.Payment) error {
	view := paymentView{
		TransactionReference: p.TransactionReference,
		Status:               string(p.Status),
		Amount:               p.Amount.StringFixed(2),
		Currency:             p.Currency,
		Name:                 p.Contact.Name,
		Email:                p.Contact.Email,
		PhoneNumber:          p.Contact.Phone,
		PaymentMethod:        p.PaymentMethod,
		Project:              p.Project,
		CreatedAt:            p.CreatedAt,
	}
	if json.Valid(p.ProviderResponse) {
		view.ProviderResponse = p.ProviderResponse
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}
