// internal/services/viewing_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/javajoker/tink-backend/internal/models"
	"github.com/javajoker/tink-backend/internal/workflow"
)

type ViewingService struct {
	db   *gorm.DB
	apps *ApplicationService
	now  func() time.Time
}

type ScheduleViewingRequest struct {
	Date          string   `json:"date" validate:"required,datetime=2006-01-02"`
	Time          string   `json:"time" validate:"required,datetime=15:04"`
	ContactPerson string   `json:"contact_person" validate:"required,max=120"`
	ContactPhone  string   `json:"contact_phone,omitempty" validate:"omitempty,phone"`
	Attendees     []string `json:"attendees,omitempty" validate:"omitempty,max=10,dive,max=120"`
	Notes         string   `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type CompleteViewingRequest struct {
	Outcome string `json:"outcome" validate:"required,max=2000"`
	Notes   string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

func NewViewingService(db *gorm.DB, apps *ApplicationService) *ViewingService {
	return &ViewingService{
		db:   db,
		apps: apps,
		now:  time.Now,
	}
}

func (s *ViewingService) Schedule(ctx context.Context, actor Actor, applicationID int64, req *ScheduleViewingRequest) (*models.Viewing, error) {
	app, err := s.apps.Get(ctx, actor, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != workflow.StatusApproved {
		return nil, ErrInvalidState
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid viewing date: %w", err)
	}

	viewing := &models.Viewing{
		ApplicationID: app.ID,
		ScheduledDate: date,
		ScheduledTime: req.Time,
		ContactPerson: req.ContactPerson,
		ContactPhone:  req.ContactPhone,
		Attendees:     req.Attendees,
		Notes:         req.Notes,
		Status:        models.ViewingStatusScheduled,
	}

	err = s.apps.transition(ctx, actor, app, workflow.StatusViewingScheduled, func(tx *gorm.DB) error {
		return tx.Create(viewing).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule viewing: %w", err)
	}
	return viewing, nil
}

func (s *ViewingService) Reschedule(ctx context.Context, actor Actor, applicationID int64, req *ScheduleViewingRequest) (*models.Viewing, error) {
	app, err := s.apps.Get(ctx, actor, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != workflow.StatusViewingScheduled {
		return nil, ErrInvalidState
	}

	viewing, err := s.openViewing(ctx, app.ID)
	if err != nil {
		return nil, err
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid viewing date: %w", err)
	}

	viewing.ScheduledDate = date
	viewing.ScheduledTime = req.Time
	viewing.ContactPerson = req.ContactPerson
	viewing.Status = models.ViewingStatusRescheduled
	if req.ContactPhone != "" {
		viewing.ContactPhone = req.ContactPhone
	}
	if req.Attendees != nil {
		viewing.Attendees = req.Attendees
	}
	if req.Notes != "" {
		viewing.Notes = req.Notes
	}

	if err := s.db.WithContext(ctx).Save(viewing).Error; err != nil {
		return nil, fmt.Errorf("failed to reschedule viewing: %w", err)
	}
	return viewing, nil
}

func (s *ViewingService) Complete(ctx context.Context, actor Actor, applicationID int64, req *CompleteViewingRequest) (*models.Viewing, error) {
	app, err := s.apps.Get(ctx, actor, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != workflow.StatusViewingScheduled {
		return nil, ErrInvalidState
	}

	viewing, err := s.openViewing(ctx, app.ID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	viewing.Status = models.ViewingStatusCompleted
	viewing.Outcome = req.Outcome
	viewing.CompletedAt = &now
	if req.Notes != "" {
		viewing.Notes = req.Notes
	}

	err = s.apps.transition(ctx, actor, app, workflow.StatusViewingCompleted, func(tx *gorm.DB) error {
		return tx.Save(viewing).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to complete viewing: %w", err)
	}
	return viewing, nil
}

// openViewing is the most recent viewing that has not been completed.
func (s *ViewingService) openViewing(ctx context.Context, applicationID int64) (*models.Viewing, error) {
	var viewing models.Viewing
	err := s.db.WithContext(ctx).
		Where("application_id = ? AND status <> ?", applicationID, models.ViewingStatusCompleted).
		Order("scheduled_date DESC").Order("id DESC").
		First(&viewing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &viewing, nil
}
