// internal/apiclient/applications.go
package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/javajoker/tink-backend/internal/workflow"
)

var _ workflow.API = (*Client)(nil)

// application mirrors the server's stored application record.
type application struct {
	ID                   int64           `json:"id"`
	PropertyID           int64           `json:"property_id"`
	RoomID               *int64          `json:"room_id"`
	TenantName           string          `json:"tenant_name"`
	TenantEmail          string          `json:"tenant_email"`
	TenantPhone          string          `json:"tenant_phone"`
	Status               workflow.Status `json:"status"`
	ApplicationDate      time.Time       `json:"application_date"`
	DesiredMoveInDate    *time.Time      `json:"desired_move_in_date"`
	DesiredLeaseDuration *int            `json:"desired_lease_duration"`
	RentBudget           *float64        `json:"rent_budget"`
	DecisionNotes        string          `json:"decision_notes"`
	Viewings             []struct {
		ID            int64     `json:"id"`
		ScheduledDate time.Time `json:"scheduled_date"`
		ScheduledTime string    `json:"scheduled_time"`
		ContactPerson string    `json:"contact_person"`
		ContactPhone  string    `json:"contact_phone"`
		Notes         string    `json:"notes"`
		Outcome       string    `json:"outcome"`
	} `json:"viewings"`
	Lease *struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	} `json:"lease"`
}

func (a *application) workflow() *workflow.Application {
	out := &workflow.Application{
		ID:                   a.ID,
		Status:               a.Status,
		TenantName:           a.TenantName,
		TenantEmail:          a.TenantEmail,
		TenantPhone:          a.TenantPhone,
		PropertyRef:          a.PropertyID,
		RoomRef:              a.RoomID,
		ApplicationDate:      a.ApplicationDate,
		DesiredMoveInDate:    a.DesiredMoveInDate,
		DesiredLeaseDuration: a.DesiredLeaseDuration,
		RentBudget:           a.RentBudget,
		DecisionNotes:        a.DecisionNotes,
	}
	for _, v := range a.Viewings {
		out.Viewings = append(out.Viewings, workflow.Viewing{
			ID:            v.ID,
			Date:          v.ScheduledDate,
			Time:          v.ScheduledTime,
			ContactPerson: v.ContactPerson,
			ContactPhone:  v.ContactPhone,
			Notes:         v.Notes,
			Outcome:       v.Outcome,
		})
	}
	if a.Lease != nil && a.Lease.ID != 0 {
		out.Lease = &workflow.LeaseSummary{ID: a.Lease.ID, Status: a.Lease.Status}
	}
	return out
}

type mutationResponse struct {
	Message     string       `json:"message"`
	Application *application `json:"application"`
}

type ListOptions struct {
	Status     string
	PropertyID int64
	Page       int
	Limit      int
}

func (c *Client) GetApplication(ctx context.Context, id int64) (*workflow.Application, error) {
	var out application
	if err := c.do(ctx, http.MethodGet, idPath("/applications", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.workflow(), nil
}

func (c *Client) ListApplications(ctx context.Context, opts ListOptions) ([]workflow.Application, error) {
	query := url.Values{}
	if opts.Status != "" {
		query.Set("status", opts.Status)
	}
	if opts.PropertyID != 0 {
		query.Set("property", strconv.FormatInt(opts.PropertyID, 10))
	}
	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}

	var out []application
	if err := c.do(ctx, http.MethodGet, "/applications", query, nil, &out); err != nil {
		return nil, err
	}
	apps := make([]workflow.Application, 0, len(out))
	for i := range out {
		apps = append(apps, *out[i].workflow())
	}
	return apps, nil
}

func (c *Client) UpdateApplication(ctx context.Context, id int64, patch workflow.ApplicationPatch) (*workflow.Application, error) {
	var out mutationResponse
	if err := c.do(ctx, http.MethodPatch, idPath("/applications", id), nil, patch, &out); err != nil {
		return nil, err
	}
	if out.Application == nil {
		return nil, nil
	}
	return out.Application.workflow(), nil
}

func (c *Client) DecideApplication(ctx context.Context, id int64, decision workflow.Decision) (*workflow.Application, error) {
	var out mutationResponse
	if err := c.do(ctx, http.MethodPost, idPath("/applications", id, "decide"), nil, decision, &out); err != nil {
		return nil, err
	}
	if out.Application == nil {
		return nil, nil
	}
	return out.Application.workflow(), nil
}

func (c *Client) DeleteApplication(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, idPath("/applications", id), nil, nil, nil)
}

func (c *Client) GetProperty(ctx context.Context, id int64) (*workflow.Property, error) {
	var out workflow.Property
	if err := c.do(ctx, http.MethodGet, idPath("/properties", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CheckTenantConflicts(ctx context.Context, propertyID int64, start, end time.Time) (*workflow.ConflictReport, error) {
	query := url.Values{}
	query.Set("start_date", start.Format("2006-01-02"))
	query.Set("end_date", end.Format("2006-01-02"))

	var out workflow.ConflictReport
	if err := c.do(ctx, http.MethodGet, idPath("/properties", propertyID, "tenant-conflicts"), query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
