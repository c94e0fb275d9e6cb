package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kart-checkout/internal/app"
	"kart-checkout/internal/config"
	"kart-checkout/internal/database"
	"kart-checkout/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:          "checkoutctl",
		Short:        "Operator tooling for the kart checkout service",
		Version:      Version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(refundCmd())
	rootCmd.AddCommand(reviewsCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp loads configuration, builds the components and runs fn. Pending
// notifications are drained before returning.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app.App, logger zerolog.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := config.NewLogger(cfg.Logger)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		a.Close(closeCtx)
	}()

	return fn(ctx, a, logger)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App, logger zerolog.Logger) error {
				if err := database.Migrate(ctx, a.Pool, logger); err != nil {
					return fmt.Errorf("failed to apply schema: %w", err)
				}
				fmt.Println("schema applied")
				return nil
			})
		},
	}
}

func sweepCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Re-verify and clear pending payments past their expiry",
		Long: `Re-verify every pending online payment whose session has expired.

Payments the gateway reports as paid are turned into orders; everything
that is no longer in progress is discarded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App, _ zerolog.Logger) error {
				report, err := a.Reconciler.Sweep(ctx, limit)
				if err != nil {
					return fmt.Errorf("sweep failed: %w", err)
				}
				return printJSON(report)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "Maximum pending payments to process")

	return cmd
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile [payment-ref]",
		Short: "Verify one payment with the gateway and apply the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App, _ zerolog.Logger) error {
				result, err := a.Reconciler.Reconcile(ctx, args[0], model.SourceManual)
				if err != nil {
					return fmt.Errorf("reconcile %s: %w", args[0], err)
				}
				return printJSON(result)
			})
		},
	}
}

func refundCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refund [order-id]",
		Short: "Refund a paid order flagged for review and resolve it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid order id %q: %w", args[0], err)
			}

			return withApp(cmd.Context(), func(ctx context.Context, a *app.App, _ zerolog.Logger) error {
				refund, err := a.Reconciler.RefundShortfall(ctx, orderID)
				if err != nil {
					return fmt.Errorf("refund %s: %w", orderID, err)
				}
				return printJSON(refund)
			})
		},
	}
}

func reviewsCmd() *cobra.Command {
	var (
		limit  int
		export bool
	)

	cmd := &cobra.Command{
		Use:   "reviews",
		Short: "List paid orders that need operator review",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App, _ zerolog.Logger) error {
				orders, err := a.Orders.ListForReview(ctx, limit)
				if err != nil {
					return fmt.Errorf("list reviews: %w", err)
				}

				if export {
					key, err := a.Reporter.ExportReviews(ctx, orders)
					if err != nil {
						return fmt.Errorf("export reviews: %w", err)
					}
					fmt.Fprintf(os.Stderr, "exported %d orders to %s\n", len(orders), key)
				}
				return printJSON(orders)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "Maximum orders to list")
	cmd.Flags().BoolVar(&export, "export", false, "Also write the list to the report store")

	return cmd
}
