// internal/workflow/assignment.go
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidTerms = errors.New("invalid assignment terms")

type AssignmentTier string

const (
	TierDirect      AssignmentTier = "direct"
	TierParentModal AssignmentTier = "parent_modal"
	TierLocalModal  AssignmentTier = "local_modal"
)

// AssignmentWiring is what the caller offers for "Assign to Property".
// The first usable field wins: Direct, then the SelectApplication and
// SetModalOpen pair, then Modal.
//
// The three paths exist because some callers own the assignment modal and
// some do not. New callers should pick one path; the fallback chain is kept
// for existing board screens.
type AssignmentWiring struct {
	Direct            Handler
	SelectApplication func(app Application)
	SetModalOpen      func(open bool)
	Modal             ModalHost
}

// ModalHost shows a prefilled assignment form. submit must be called with
// the terms the user accepted.
type ModalHost interface {
	Open(ctx context.Context, draft AssignmentDraft, submit SubmitFunc) error
}

type SubmitFunc func(ctx context.Context, terms AssignmentTerms) error

type AssignmentStrategy interface {
	Tier() AssignmentTier
	Assign(ctx context.Context, app Application) error
}

// ResolveAssignment picks the strategy for the given wiring. It returns nil
// when no path is wired.
func ResolveAssignment(opts Options) AssignmentStrategy {
	return resolveAssignment(opts.Assignment, newCollaborators(opts))
}

func resolveAssignment(w AssignmentWiring, deps *collaborators) AssignmentStrategy {
	switch {
	case w.Direct != nil:
		return directAssignment{handler: w.Direct}
	case w.SelectApplication != nil && w.SetModalOpen != nil:
		return parentModalAssignment{selectApp: w.SelectApplication, setOpen: w.SetModalOpen}
	case w.Modal != nil && deps.api != nil:
		return &localModalAssignment{host: w.Modal, deps: deps}
	}
	return nil
}

type directAssignment struct {
	handler Handler
}

func (directAssignment) Tier() AssignmentTier { return TierDirect }

func (d directAssignment) Assign(ctx context.Context, app Application) error {
	return d.handler(ctx, app)
}

type parentModalAssignment struct {
	selectApp func(Application)
	setOpen   func(bool)
}

func (parentModalAssignment) Tier() AssignmentTier { return TierParentModal }

func (p parentModalAssignment) Assign(_ context.Context, app Application) error {
	p.selectApp(app)
	p.setOpen(true)
	return nil
}

type localModalAssignment struct {
	host ModalHost
	deps *collaborators
}

func (*localModalAssignment) Tier() AssignmentTier { return TierLocalModal }

func (l *localModalAssignment) Assign(ctx context.Context, app Application) error {
	prop, err := l.deps.api.GetProperty(ctx, app.PropertyRef)
	if err != nil {
		l.deps.notify.Alert(ctx, "Error loading property details: "+err.Error())
		return fmt.Errorf("load property %d: %w", app.PropertyRef, err)
	}

	draft := NewAssignmentDraft(app, *prop, l.deps.now())
	return l.host.Open(ctx, draft, func(ctx context.Context, terms AssignmentTerms) error {
		return l.submit(ctx, app, *prop, terms)
	})
}

func (l *localModalAssignment) submit(ctx context.Context, app Application, prop Property, terms AssignmentTerms) error {
	if err := terms.Validate(); err != nil {
		return err
	}

	report, err := l.deps.api.CheckTenantConflicts(ctx, app.PropertyRef, terms.StartDate, terms.EndDate)
	if err != nil {
		// A failed check does not block the move-in.
		l.deps.log.WithError(err).WithField("property_id", app.PropertyRef).Warn("Tenant conflict check failed")
	} else if report != nil && report.HasConflicts {
		if !l.deps.confirm.Confirm(ctx, ConflictPrompt(*report)) {
			return ErrDeclined
		}
	}

	status := StatusMovedIn
	notes := AssignmentNotes(prop, terms)
	if _, err := l.deps.api.UpdateApplication(ctx, app.ID, ApplicationPatch{Status: &status, DecisionNotes: &notes}); err != nil {
		l.deps.notify.Alert(ctx, "Error assigning tenant: "+err.Error())
		return fmt.Errorf("assign application %d: %w", app.ID, err)
	}

	l.deps.refresh(ctx)
	l.deps.notify.Notify(ctx, fmt.Sprintf("%s has been assigned to %s", DisplayName(app), propertyLabel(prop)))
	return nil
}

type AssignmentTerms struct {
	Rent      float64   `json:"rent"`
	Deposit   float64   `json:"deposit"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

func (t AssignmentTerms) Validate() error {
	switch {
	case t.Rent <= 0:
		return fmt.Errorf("%w: rent must be positive", ErrInvalidTerms)
	case t.Deposit < 0:
		return fmt.Errorf("%w: deposit cannot be negative", ErrInvalidTerms)
	case t.StartDate.IsZero() || t.EndDate.IsZero():
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidTerms)
	case !t.EndDate.After(t.StartDate):
		return fmt.Errorf("%w: end date must be after start date", ErrInvalidTerms)
	}
	return nil
}

type AssignmentDraft struct {
	Application Application     `json:"application"`
	Property    Property        `json:"property"`
	Terms       AssignmentTerms `json:"terms"`
}

// NewAssignmentDraft prefills terms from the property, falling back to what
// the applicant asked for, then to today and a one year term.
func NewAssignmentDraft(app Application, prop Property, today time.Time) AssignmentDraft {
	rent := prop.MonthlyRent
	if rent <= 0 && app.RentBudget != nil {
		rent = *app.RentBudget
	}

	deposit := prop.SecurityDeposit
	if deposit <= 0 {
		deposit = rent * 2
	}

	start := dateOnly(today)
	switch {
	case prop.AvailableFrom != nil && !prop.AvailableFrom.IsZero():
		start = dateOnly(*prop.AvailableFrom)
	case app.DesiredMoveInDate != nil && !app.DesiredMoveInDate.IsZero():
		start = dateOnly(*app.DesiredMoveInDate)
	}

	end := start.AddDate(1, 0, 0)
	if app.DesiredLeaseDuration != nil && *app.DesiredLeaseDuration > 0 {
		end = start.AddDate(0, *app.DesiredLeaseDuration, 0)
	}

	return AssignmentDraft{
		Application: app,
		Property:    prop,
		Terms: AssignmentTerms{
			Rent:      rent,
			Deposit:   deposit,
			StartDate: start,
			EndDate:   end,
		},
	}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

const isoDate = "2006-01-02"

// AssignmentNotes is the decision note recorded on move-in.
func AssignmentNotes(prop Property, terms AssignmentTerms) string {
	return fmt.Sprintf("Assigned to %s. Monthly rent: %s, security deposit: %s, lease term: %s to %s",
		propertyLabel(prop),
		strconv.FormatFloat(terms.Rent, 'f', -1, 64),
		strconv.FormatFloat(terms.Deposit, 'f', -1, 64),
		terms.StartDate.Format(isoDate),
		terms.EndDate.Format(isoDate),
	)
}

func ConflictPrompt(report ConflictReport) string {
	lines := make([]string, 0, len(report.Conflicts))
	for _, c := range report.Conflicts {
		lines = append(lines, fmt.Sprintf("%s (%s onwards)", c.TenantName, FormatDate(c.MoveInDate)))
	}
	return "There is already a tenant in this property during the selected dates:\n\n" +
		strings.Join(lines, "\n") +
		"\n\nDo you want to replace them?"
}

func propertyLabel(prop Property) string {
	if prop.Name != "" {
		return prop.Name
	}
	return "Property #" + strconv.FormatInt(prop.ID, 10)
}
