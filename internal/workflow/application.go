// internal/workflow/application.go
package workflow

import (
	"context"
	"strconv"
	"time"
)

type Application struct {
	ID                   int64         `json:"id"`
	Status               Status        `json:"status"`
	TenantName           string        `json:"tenant_name"`
	TenantEmail          string        `json:"tenant_email,omitempty"`
	TenantPhone          string        `json:"tenant_phone,omitempty"`
	PropertyRef          int64         `json:"property_ref"`
	RoomRef              *int64        `json:"room_ref,omitempty"`
	ApplicationDate      time.Time     `json:"application_date"`
	DesiredMoveInDate    *time.Time    `json:"desired_move_in_date,omitempty"`
	DesiredLeaseDuration *int          `json:"desired_lease_duration,omitempty"` // months
	RentBudget           *float64      `json:"rent_budget,omitempty"`
	DecisionNotes        string        `json:"decision_notes,omitempty"`
	Viewings             []Viewing     `json:"viewings,omitempty"`
	Lease                *LeaseSummary `json:"lease,omitempty"`
}

type Viewing struct {
	ID            int64     `json:"id"`
	Date          time.Time `json:"date"`
	Time          string    `json:"time"`
	ContactPerson string    `json:"contact_person"`
	ContactPhone  string    `json:"contact_phone,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	Outcome       string    `json:"outcome,omitempty"`
}

type LeaseSummary struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

type Property struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Address         string     `json:"address"`
	MonthlyRent     float64    `json:"monthly_rent"`
	SecurityDeposit float64    `json:"security_deposit"`
	AvailableFrom   *time.Time `json:"available_from,omitempty"`
}

// ApplicationPatch carries the optional fields of an update call. Nil
// fields are left untouched.
type ApplicationPatch struct {
	Status        *Status `json:"status,omitempty"`
	DecisionNotes *string `json:"decision_notes,omitempty"`
}

type DecisionKind string

const (
	DecisionApprove DecisionKind = "approve"
	DecisionReject  DecisionKind = "reject"
)

type Decision struct {
	Decision      DecisionKind `json:"decision"`
	DecisionNotes string       `json:"decision_notes,omitempty"`
}

type TenantConflict struct {
	TenantName string     `json:"tenant_name"`
	MoveInDate *time.Time `json:"move_in_date,omitempty"`
}

type ConflictReport struct {
	HasConflicts bool             `json:"has_conflicts"`
	Conflicts    []TenantConflict `json:"conflicts"`
}

// API is the backend the workflow mutates. Deletion is deliberately absent:
// it is only reachable through the caller's delete handler.
type API interface {
	UpdateApplication(ctx context.Context, id int64, patch ApplicationPatch) (*Application, error)
	DecideApplication(ctx context.Context, id int64, decision Decision) (*Application, error)
	GetProperty(ctx context.Context, id int64) (*Property, error)
	CheckTenantConflicts(ctx context.Context, propertyID int64, start, end time.Time) (*ConflictReport, error)
}

// DisplayName is the tenant name, or "Applicant #<id>" when it is blank.
func DisplayName(app Application) string {
	if app.TenantName != "" {
		return app.TenantName
	}
	return "Applicant #" + strconv.FormatInt(app.ID, 10)
}

const displayDateLayout = "January 2, 2006"

// FormatDate renders a date for prompts and notices.
func FormatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "N/A"
	}
	return t.Format(displayDateLayout)
}

// PropertyNamer resolves a property reference to a display name.
type PropertyNamer func(id int64) string
