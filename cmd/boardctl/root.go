// cmd/boardctl/root.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/javajoker/tink-backend/internal/apiclient"
	"github.com/javajoker/tink-backend/internal/config"
	"github.com/javajoker/tink-backend/internal/workflow"
)

type app struct {
	cfg     config.ClientConfig
	verbose bool
	in      io.Reader
	out     io.Writer
}

func (a *app) client() *apiclient.Client {
	return apiclient.New(a.cfg)
}

func (a *app) logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	if a.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

func newRootCmd(cfg config.ClientConfig, in io.Reader, out io.Writer) *cobra.Command {
	a := &app{cfg: cfg, in: in, out: out}

	root := &cobra.Command{
		Use:           "boardctl",
		Short:         "Tink application board from the terminal",
		Long:          "Shows the landlord application board and runs board actions against a Tink API server.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfg.BaseURL, "api-url", cfg.BaseURL, "API base URL (TINK_API_URL)")
	flags.StringVar(&a.cfg.Token, "token", cfg.Token, "staff access token (TINK_API_TOKEN)")
	flags.DurationVar(&a.cfg.Timeout, "timeout", cfg.Timeout, "request timeout")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log workflow activity to stderr")

	root.AddCommand(
		boardCommand(a),
		sortCommand(a),
		actionsCommand(a),
		runCommand(a),
		assignCommand(a),
	)
	return root
}

func boardCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Show the application board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			columns, err := a.client().Board(cmd.Context())
			if err != nil {
				return fmt.Errorf("load board: %w", err)
			}
			fmt.Fprintln(a.out, defaultStyles().renderBoard(columns))
			return nil
		},
	}
}

func sortCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sort <column>",
		Short: "Cycle the sort mode of a board column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := a.client().ToggleSort(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("toggle sort: %w", err)
			}
			fmt.Fprintf(a.out, "%s sorted by %s\n", args[0], mode)
			return nil
		},
	}
}

func actionsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "actions <application-id>",
		Short: "List the actions available for an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			actions, err := a.client().Actions(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("load actions: %w", err)
			}
			for _, action := range actions {
				fmt.Fprintf(a.out, "%-20s %s\n", action.Action, action.Label)
			}
			return nil
		},
	}
}

func runCommand(a *app) *cobra.Command {
	var (
		req apiclient.ActionRequest
		yes bool
	)

	cmd := &cobra.Command{
		Use:   "run <application-id> <action>",
		Short: "Run a board action",
		Example: "  boardctl run 12 shortlist\n" +
			"  boardctl run 12 schedule_viewing --date 2024-02-10 --time 14:30 --contact Robin\n" +
			"  boardctl run 12 delete --yes",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			action, err := workflow.ParseAction(args[1])
			if err != nil {
				return err
			}
			return a.execute(cmd.Context(), id, action, req, yes)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&req.Date, "date", "", "viewing date (YYYY-MM-DD)")
	flags.StringVar(&req.Time, "time", "", "viewing time (HH:MM)")
	flags.StringVar(&req.ContactPerson, "contact", "", "viewing contact person")
	flags.StringVar(&req.ContactPhone, "contact-phone", "", "viewing contact phone")
	flags.StringSliceVar(&req.Attendees, "attendee", nil, "viewing attendee (repeatable)")
	flags.StringVar(&req.Notes, "notes", "", "viewing notes")
	flags.StringVar(&req.Outcome, "outcome", "", "viewing outcome")
	flags.Int64Var(&req.RoomID, "room", 0, "room to assign")
	flags.StringVar(&req.MoveOutDate, "move-out-date", "", "move-out date (YYYY-MM-DD)")
	flags.BoolVarP(&yes, "yes", "y", false, "answer yes to confirmations")
	return cmd
}

func assignCommand(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "assign <application-id>",
		Short: "Assign an applicant to their property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.execute(cmd.Context(), id, workflow.ActionAssignToProperty, apiclient.ActionRequest{}, yes)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "replace conflicting tenants without asking")
	return cmd
}

func (a *app) execute(ctx context.Context, id int64, action workflow.Action, req apiclient.ActionRequest, yes bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	client := a.client()
	term := newTerminal(a.in, a.out)
	term.assumeYes = yes

	current, err := client.GetApplication(ctx, id)
	if err != nil {
		return fmt.Errorf("load application %d: %w", id, err)
	}

	exec, err := a.executor(client, term, id, req)
	if err != nil {
		return err
	}

	err = exec.Execute(ctx, action, *current)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, workflow.ErrDeclined):
		fmt.Fprintln(a.out, term.styles.faint.Render("Cancelled."))
		return nil
	case errors.Is(err, workflow.ErrActionUnavailable):
		available := make([]string, 0)
		for _, candidate := range exec.Available(*current) {
			available = append(available, string(candidate))
		}
		return fmt.Errorf("%s is not available while %s (available: %s)",
			action, current.Status, strings.Join(available, ", "))
	}
	return err
}

// executor runs the workflow locally against the remote API. Actions the
// workflow does not own are forwarded to the server's action endpoint.
func (a *app) executor(client *apiclient.Client, term *terminal, id int64, req apiclient.ActionRequest) (*workflow.Executor, error) {
	detail := func(ctx context.Context, app workflow.Application) error {
		full, err := client.GetApplication(ctx, app.ID)
		if err != nil {
			return err
		}
		fmt.Fprintln(term.out, term.styles.renderDetail(*full))
		return nil
	}

	remote := func(action workflow.Action) workflow.Handler {
		return func(ctx context.Context, app workflow.Application) error {
			result, err := client.Execute(ctx, app.ID, action, req)
			if err != nil {
				return err
			}
			for _, notice := range result.Notices {
				if notice.Level == "error" {
					term.Alert(ctx, notice.Message)
				} else {
					term.Notify(ctx, notice.Message)
				}
			}
			if len(result.Data) > 0 && action.IsLeaseAction() {
				fmt.Fprintln(term.out, string(result.Data))
			}
			if result.Application != nil {
				term.Notify(ctx, fmt.Sprintf("%s is now %s", workflow.DisplayName(*result.Application), result.Application.Status))
			}
			return nil
		}
	}

	handlers := map[workflow.Action]workflow.Handler{
		workflow.ActionReview:        detail,
		workflow.ActionReviewDetails: detail,
		workflow.ActionViewDetails:   detail,
		workflow.ActionDelete: func(ctx context.Context, app workflow.Application) error {
			if err := client.DeleteApplication(ctx, app.ID); err != nil {
				return err
			}
			term.Notify(ctx, workflow.DisplayName(app)+" deleted")
			return nil
		},
	}
	for _, action := range []workflow.Action{
		workflow.ActionScheduleViewing,
		workflow.ActionReschedule,
		workflow.ActionCompleteViewing,
		workflow.ActionChangeRoom,
		workflow.ActionMoveOut,
		workflow.ActionGenerateLease,
		workflow.ActionViewLease,
		workflow.ActionSendToTenant,
		workflow.ActionActivateLease,
		workflow.ActionDownloadLease,
	} {
		handlers[action] = remote(action)
	}

	return workflow.NewExecutor(workflow.Options{
		API:        client,
		Handlers:   handlers,
		Assignment: workflow.AssignmentWiring{Modal: term},
		Confirmer:  term,
		Notifier:   term,
		OnRefresh: func(ctx context.Context) {
			refreshed, err := client.GetApplication(ctx, id)
			if err != nil {
				return
			}
			term.Notify(ctx, fmt.Sprintf("%s is now %s", workflow.DisplayName(*refreshed), refreshed.Status))
		},
		Logger: a.logger(),
		Now:    time.Now,
	})
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid application id %q", raw)
	}
	return id, nil
}
