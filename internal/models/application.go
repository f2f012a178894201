// internal/models/application.go
package models

import (
	"time"

	"github.com/lib/pq"

	"github.com/javajoker/tink-backend/internal/workflow"
)

type Application struct {
	BaseModel
	PropertyID           int64           `json:"property_id" gorm:"not null;index"`
	RoomID               *int64          `json:"room_id" gorm:"index"`
	TenantID             *int64          `json:"tenant_id" gorm:"index"`
	TenantName           string          `json:"tenant_name" gorm:"size:200"`
	TenantEmail          string          `json:"tenant_email" gorm:"size:255"`
	TenantPhone          string          `json:"tenant_phone" gorm:"size:32"`
	Status               workflow.Status `json:"status" gorm:"type:varchar(32);not null;default:'pending';index"`
	ApplicationDate      time.Time       `json:"application_date" gorm:"not null"`
	DesiredMoveInDate    *time.Time      `json:"desired_move_in_date" gorm:"type:date"`
	DesiredLeaseDuration *int            `json:"desired_lease_duration"`
	RentBudget           *float64        `json:"rent_budget" gorm:"type:decimal(10,2)"`
	DecisionNotes        string          `json:"decision_notes" gorm:"type:text"`
	DecidedAt            *time.Time      `json:"decided_at"`
	DecidedBy            *int64          `json:"decided_by"`
	MovedOutAt           *time.Time      `json:"moved_out_at" gorm:"type:date"`

	Property *Property `json:"property,omitempty" gorm:"foreignKey:PropertyID"`
	Viewings []Viewing `json:"viewings,omitempty" gorm:"foreignKey:ApplicationID"`
	Lease    *Lease    `json:"lease,omitempty" gorm:"foreignKey:ApplicationID"`
}

type Viewing struct {
	BaseModel
	ApplicationID int64          `json:"application_id" gorm:"not null;index"`
	ScheduledDate time.Time      `json:"scheduled_date" gorm:"type:date;not null"`
	ScheduledTime string         `json:"scheduled_time" gorm:"size:10"`
	ContactPerson string         `json:"contact_person" gorm:"size:120"`
	ContactPhone  string         `json:"contact_phone" gorm:"size:32"`
	Attendees     pq.StringArray `json:"attendees" gorm:"type:text[]"`
	Notes         string         `json:"notes" gorm:"type:text"`
	Status        ViewingStatus  `json:"status" gorm:"type:varchar(20);default:'scheduled'"`
	Outcome       string         `json:"outcome" gorm:"type:text"`
	CompletedAt   *time.Time     `json:"completed_at"`
}

func (a *Application) ToWorkflow() workflow.Application {
	out := workflow.Application{
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
		out.Lease = &workflow.LeaseSummary{ID: a.Lease.ID, Status: string(a.Lease.Status)}
	}
	return out
}
