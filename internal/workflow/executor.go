// internal/workflow/executor.go
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrDeclined means the user answered no to a confirmation. Nothing
	// was changed and nothing was alerted.
	ErrDeclined = errors.New("action declined")

	ErrActionUnavailable = errors.New("action not available")
)

const (
	ShortlistNotes      = "Quick qualified - moved to shortlisted"
	BackToPendingPrompt = "Are you sure you want to move this application back to pending?"
)

func DeletePrompt(app Application) string {
	return fmt.Sprintf("Are you sure you want to delete the application from %s? This action cannot be undone.", DisplayName(app))
}

type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// Notifier surfaces results to the user. Alert is for failures.
type Notifier interface {
	Alert(ctx context.Context, message string)
	Notify(ctx context.Context, message string)
}

// Handler performs a caller-owned action. A missing handler hides the
// action.
type Handler func(ctx context.Context, app Application) error

type Options struct {
	API        API
	Handlers   map[Action]Handler
	Assignment AssignmentWiring
	Confirmer  Confirmer
	Notifier   Notifier
	OnRefresh  func(ctx context.Context)
	Logger     logrus.FieldLogger
	Now        func() time.Time
}

type collaborators struct {
	api     API
	confirm Confirmer
	notify  Notifier
	refresh func(ctx context.Context)
	log     logrus.FieldLogger
	now     func() time.Time
}

func newCollaborators(opts Options) *collaborators {
	c := &collaborators{
		api:     opts.API,
		confirm: opts.Confirmer,
		notify:  opts.Notifier,
		refresh: opts.OnRefresh,
		log:     opts.Logger,
		now:     opts.Now,
	}
	if c.confirm == nil {
		c.confirm = ConfirmFunc(func(context.Context, string) bool { return false })
	}
	if c.notify == nil {
		c.notify = silentNotifier{}
	}
	if c.refresh == nil {
		c.refresh = func(context.Context) {}
	}
	if c.log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		c.log = discard
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

type silentNotifier struct{}

func (silentNotifier) Alert(context.Context, string)  {}
func (silentNotifier) Notify(context.Context, string) {}

// Executor runs board actions against the API and the caller's handlers.
type Executor struct {
	deps     *collaborators
	handlers map[Action]Handler
	assign   AssignmentStrategy
}

func NewExecutor(opts Options) (*Executor, error) {
	if opts.API == nil {
		return nil, errors.New("workflow: API is required")
	}

	handlers := make(map[Action]Handler, len(opts.Handlers))
	for action, h := range opts.Handlers {
		if h != nil {
			handlers[action] = h
		}
	}

	deps := newCollaborators(opts)
	return &Executor{
		deps:     deps,
		handlers: handlers,
		assign:   resolveAssignment(opts.Assignment, deps),
	}, nil
}

// AssignmentTier reports which assignment path was resolved, or "" when
// none is wired.
func (e *Executor) AssignmentTier() AssignmentTier {
	if e.assign == nil {
		return ""
	}
	return e.assign.Tier()
}

func (e *Executor) wired(action Action) bool {
	switch action {
	case ActionShortlist, ActionReject, ActionUndo, ActionBackToPending:
		return true
	case ActionAssignToProperty:
		return e.assign != nil
	}
	return e.handlers[action] != nil
}

// Available lists the actions to offer for app: the status table filtered
// by wiring, then Delete when the status allows it.
func (e *Executor) Available(app Application) []Action {
	candidates := ActionsFor(string(app.Status))
	if app.Status.IsLeasePhase() && app.Lease != nil {
		candidates = append(candidates, LeaseActionsFor(app.Lease.Status)...)
	}

	out := make([]Action, 0, len(candidates)+1)
	for _, action := range candidates {
		if e.wired(action) {
			out = append(out, action)
		}
	}
	if CanDelete(string(app.Status)) && e.handlers[ActionDelete] != nil {
		out = append(out, ActionDelete)
	}
	return out
}

func (e *Executor) IsAvailable(action Action, app Application) bool {
	for _, a := range e.Available(app) {
		if a == action {
			return true
		}
	}
	return false
}

func (e *Executor) Execute(ctx context.Context, action Action, app Application) error {
	if !e.IsAvailable(action, app) {
		return fmt.Errorf("%w: %s for %s application %d", ErrActionUnavailable, action, app.Status, app.ID)
	}

	e.deps.log.WithFields(logrus.Fields{
		"application_id": app.ID,
		"action":         action,
		"status":         app.Status,
	}).Debug("Executing board action")

	switch action {
	case ActionShortlist:
		return e.decide(ctx, app, Decision{Decision: DecisionApprove, DecisionNotes: ShortlistNotes})
	case ActionReject:
		return e.decide(ctx, app, Decision{Decision: DecisionReject})
	case ActionUndo:
		return e.setStatus(ctx, app, StatusPending)
	case ActionBackToPending:
		if !e.deps.confirm.Confirm(ctx, BackToPendingPrompt) {
			return ErrDeclined
		}
		return e.setStatus(ctx, app, StatusPending)
	case ActionDelete:
		if !e.deps.confirm.Confirm(ctx, DeletePrompt(app)) {
			return ErrDeclined
		}
		// Failures belong to the caller's handler.
		return e.handlers[ActionDelete](ctx, app)
	case ActionAssignToProperty:
		return e.assign.Assign(ctx, app)
	}

	return e.handlers[action](ctx, app)
}

func (e *Executor) decide(ctx context.Context, app Application, decision Decision) error {
	if _, err := e.deps.api.DecideApplication(ctx, app.ID, decision); err != nil {
		e.deps.notify.Alert(ctx, "Error updating application: "+err.Error())
		return fmt.Errorf("decide application %d: %w", app.ID, err)
	}
	e.deps.refresh(ctx)
	return nil
}

func (e *Executor) setStatus(ctx context.Context, app Application, status Status) error {
	if _, err := e.deps.api.UpdateApplication(ctx, app.ID, ApplicationPatch{Status: &status}); err != nil {
		e.deps.notify.Alert(ctx, "Error updating application status: "+err.Error())
		return fmt.Errorf("update application %d: %w", app.ID, err)
	}
	e.deps.refresh(ctx)
	return nil
}
