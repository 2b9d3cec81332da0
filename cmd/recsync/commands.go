package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matchvault/backend/internal/auth"
	"github.com/matchvault/backend/internal/platform"
	"github.com/matchvault/backend/internal/reconcile"
)

// service is what the commands drive.
type service interface {
	CheckStatus(ctx context.Context) (reconcile.StatusReport, error)
	RunSync(ctx context.Context, targetSessionID string) (reconcile.Summary, error)
	Backfill(ctx context.Context) (reconcile.Summary, error)
	RunNext(ctx context.Context) (reconcile.Summary, error)
	TransferOne(ctx context.Context, sessionID string) (reconcile.Result, error)
	CheckCredentials(ctx context.Context) error
}

type appService struct {
	*reconcile.Reconciler
	platform *platform.Client
}

func (s appService) CheckCredentials(ctx context.Context) error {
	return s.platform.CheckCredentials(ctx)
}

type cli struct {
	out     io.Writer
	open    func(ctx context.Context, verbose bool) (service, func(), error)
	mint    func(userID uuid.UUID, email, role string) (string, error)
	asJSON  bool
	verbose bool
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "recsync",
		Short:         "Sync finished platform sessions into the recordings bucket and table",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&c.asJSON, "json", false, "print JSON instead of a table")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(c.statusCmd(), c.syncCmd(), c.backfillCmd(), c.nextCmd(), c.transferCmd(), c.tokenCmd(), c.operatorTokenCmd())
	return root
}

// run opens the service for one command and cancels on SIGINT/SIGTERM.
func (c *cli) run(cmd *cobra.Command, fn func(ctx context.Context, svc service) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	svc, closeFn, err := c.open(ctx, c.verbose)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, svc)
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Classify every finished session without writing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, svc service) error {
				report, err := svc.CheckStatus(ctx)
				if err != nil {
					return err
				}
				return c.printStatus(report)
			})
		},
	}
}

func (c *cli) syncCmd() *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Transfer or migrate every pending session, or only --session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, svc service) error {
				sum, err := svc.RunSync(ctx, session)
				if perr := c.printSummary(sum); perr != nil {
					return perr
				}
				if err != nil {
					return err
				}
				return failedSessions(sum)
			})
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "limit the run to one session id")
	return cmd
}

func (c *cli) backfillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Record objects already in the bucket that have no row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, svc service) error {
				sum, err := svc.Backfill(ctx)
				if perr := c.printSummary(sum); perr != nil {
					return perr
				}
				if err != nil {
					return err
				}
				return failedSessions(sum)
			})
		},
	}
}

func (c *cli) nextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Process the oldest pending session, as the scheduled tick does",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, svc service) error {
				sum, err := svc.RunNext(ctx)
				if perr := c.printSummary(sum); perr != nil {
					return perr
				}
				return err
			})
		},
	}
}

func (c *cli) transferCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transfer SESSION_ID",
		Short: "Run the transfer path for one finished session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, svc service) error {
				res, err := svc.TransferOne(ctx, args[0])
				if err != nil {
					return err
				}
				if perr := c.printResults([]reconcile.Result{res}); perr != nil {
					return perr
				}
				if res.Outcome == reconcile.OutcomeError {
					return fmt.Errorf("transfer %s: %s", res.SessionID, res.Error)
				}
				return nil
			})
		},
	}
}

func (c *cli) tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Check that the selected platform account can obtain an access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, svc service) error {
				if err := svc.CheckCredentials(ctx); err != nil {
					return err
				}
				fmt.Fprintln(c.out, "ok: access token issued")
				return nil
			})
		},
	}
}

func (c *cli) operatorTokenCmd() *cobra.Command {
	var email, role string
	cmd := &cobra.Command{
		Use:   "operator-token",
		Short: "Mint a bearer token signed with JWT_SECRET; admin tokens reach the sync endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if role != auth.RoleAdmin && role != auth.RoleOperator {
				return fmt.Errorf("role must be %s or %s", auth.RoleAdmin, auth.RoleOperator)
			}
			token, err := c.mint(uuid.New(), email, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "operator email recorded in the token")
	cmd.Flags().StringVar(&role, "role", auth.RoleOperator, "admin or operator")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func failedSessions(sum reconcile.Summary) error {
	if sum.Errors == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d sessions failed", sum.Errors, sum.Total)
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) printStatus(r reconcile.StatusReport) error {
	if c.asJSON {
		return c.printJSON(r)
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tSTATE\tSTORED KEY\tEXPECTED KEY\tERROR")
	for _, s := range r.Sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.SessionID, s.State, s.StoredKey, s.ExpectedKey, s.Error)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(c.out, "\ntotal=%d synced=%d needs_sync=%d needs_migration=%d errors=%d\n",
		r.Total, r.Synced, r.NeedsSync, r.NeedsMigration, r.Errors)
	return err
}

func (c *cli) printSummary(s reconcile.Summary) error {
	if c.asJSON {
		return c.printJSON(s)
	}
	if err := c.printResults(s.Results); err != nil {
		return err
	}
	_, err := fmt.Fprintf(c.out, "\ntotal=%d synced=%d transferred=%d migrated=%d processing=%d backfilled=%d skipped=%d errors=%d\n",
		s.Total, s.Synced, s.Transferred, s.Migrated, s.Processing, s.Backfilled, s.Skipped, s.Errors)
	return err
}

func (c *cli) printResults(results []reconcile.Result) error {
	if c.asJSON {
		return c.printJSON(results)
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tOUTCOME\tKEY\tDETAIL")
	for _, r := range results {
		detail := r.Error
		switch {
		case r.Outcome == reconcile.OutcomeMigrated:
			detail = "from " + r.PreviousKey
		case r.Outcome == reconcile.OutcomeProcessing:
			detail = fmt.Sprintf("export at %d%%", r.Progress)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.SessionID, r.Outcome, r.StorageKey, detail)
	}
	return tw.Flush()
}
