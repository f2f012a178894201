// internal/services/lease_service.go
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"text/template"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/tink-backend/internal/models"
	"github.com/javajoker/tink-backend/internal/workflow"
)

type LeaseService struct {
	db            *gorm.DB
	apps          *ApplicationService
	documents     DocumentStore
	notifications *NotificationService
	now           func() time.Time
}

type MoveOutRequest struct {
	MoveOutDate string `json:"move_out_date" validate:"required,datetime=2006-01-02"`
}

type LeaseDocument struct {
	LeaseID int64  `json:"lease_id"`
	URL     string `json:"url"`
}

var leaseDocumentTemplate = template.Must(template.New("lease").Parse(`RESIDENTIAL LEASE AGREEMENT

Lease #{{.Lease.ID}} for application #{{.Lease.ApplicationID}}

Property: {{.Property.Name}}
Address:  {{.Property.Address}}{{if .Room}}
Room:     {{.Room.Name}}{{end}}

Tenant:   {{.Lease.TenantName}}

Term:             {{.Start}} to {{.End}}
Monthly rent:     {{printf "%.2f" .Lease.MonthlyRent}}
Security deposit: {{printf "%.2f" .Lease.SecurityDeposit}}

Rent is due on the first day of each month.
`))

func NewLeaseService(db *gorm.DB, apps *ApplicationService, documents DocumentStore, notifications *NotificationService) *LeaseService {
	return &LeaseService{
		db:            db,
		apps:          apps,
		documents:     documents,
		notifications: notifications,
		now:           time.Now,
	}
}

// Generate drafts the lease for an application in lease_ready and stores
// its document. Terms follow the assignment defaults, with the room's rent
// taking precedence when a room is assigned.
func (s *LeaseService) Generate(ctx context.Context, actor Actor, applicationID int64) (*models.Lease, error) {
	app, err := s.apps.Get(ctx, actor, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != workflow.StatusLeaseReady {
		return nil, ErrInvalidState
	}
	if app.Lease != nil && app.Lease.ID != 0 {
		return nil, ErrInvalidState
	}

	property, err := s.apps.GetProperty(ctx, Actor{Role: models.UserRoleAdmin}, app.PropertyID)
	if err != nil {
		return nil, err
	}

	draft := workflow.NewAssignmentDraft(app.ToWorkflow(), property.ToWorkflow(), s.now())
	var room *models.Room
	if app.RoomID != nil {
		for i := range property.Rooms {
			if property.Rooms[i].ID == *app.RoomID {
				room = &property.Rooms[i]
			}
		}
		if room != nil && room.MonthlyRent > 0 {
			draft.Terms.Rent = room.MonthlyRent
		}
	}

	lease := &models.Lease{
		ApplicationID:   app.ID,
		PropertyID:      app.PropertyID,
		RoomID:          app.RoomID,
		TenantID:        app.TenantID,
		TenantName:      workflow.DisplayName(app.ToWorkflow()),
		MonthlyRent:     draft.Terms.Rent,
		SecurityDeposit: draft.Terms.Deposit,
		StartDate:       draft.Terms.StartDate,
		EndDate:         draft.Terms.EndDate,
		Status:          models.LeaseStatusDraft,
	}

	err = s.apps.transition(ctx, actor, app, workflow.StatusLeaseCreated, func(tx *gorm.DB) error {
		if err := tx.Create(lease).Error; err != nil {
			return err
		}
		body, err := renderLeaseDocument(lease, property, room)
		if err != nil {
			return err
		}
		key, err := s.documents.PutDocument(ctx, fmt.Sprintf("leases/%d", lease.ID), "lease.txt", body, "text/plain; charset=utf-8")
		if err != nil {
			return err
		}
		lease.DocumentKey = key
		return tx.Model(lease).Update("document_key", key).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate lease: %w", err)
	}

	return lease, nil
}

// Send hands a draft lease to the tenant for signing.
func (s *LeaseService) Send(ctx context.Context, actor Actor, applicationID int64) (*models.Lease, error) {
	app, lease, err := s.leaseFor(ctx, actor, applicationID)
	if err != nil {
		return nil, err
	}
	if lease.Status != models.LeaseStatusDraft {
		return nil, ErrInvalidState
	}

	now := s.now().UTC()
	lease.Status = models.LeaseStatusSent
	lease.SentAt = &now
	if err := s.db.WithContext(ctx).Save(lease).Error; err != nil {
		return nil, fmt.Errorf("failed to send lease: %w", err)
	}

	if s.notifications != nil {
		propertyName := ""
		if app.Property != nil {
			propertyName = app.Property.Name
		}
		if err := s.notifications.SendLeaseReady(ctx, lease, app.TenantPhone, propertyName); err != nil {
			logrus.WithError(err).WithField("lease_id", lease.ID).Warn("Failed to notify tenant about lease")
		}
	}

	return lease, nil
}

// Activate starts a signed lease. Activating an active lease is a no-op
// apart from the application status.
func (s *LeaseService) Activate(ctx context.Context, actor Actor, applicationID int64) (*models.Lease, error) {
	app, lease, err := s.leaseFor(ctx, actor, applicationID)
	if err != nil {
		return nil, err
	}
	if lease.Status != models.LeaseStatusSigned && lease.Status != models.LeaseStatusActive {
		return nil, ErrInvalidState
	}

	err = s.apps.transition(ctx, actor, app, workflow.StatusActive, func(tx *gorm.DB) error {
		if lease.ActivatedAt == nil {
			now := s.now().UTC()
			lease.ActivatedAt = &now
		}
		lease.Status = models.LeaseStatusActive
		return tx.Save(lease).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to activate lease: %w", err)
	}
	return lease, nil
}

// MoveOut records the end of a tenancy. The application keeps its status;
// the lease, if any, is terminated on the move-out date and the room is
// released.
func (s *LeaseService) MoveOut(ctx context.Context, actor Actor, applicationID int64, req *MoveOutRequest) (*models.Application, error) {
	app, err := s.apps.Get(ctx, actor, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != workflow.StatusMovedIn || app.MovedOutAt != nil {
		return nil, ErrInvalidState
	}

	date, err := time.Parse("2006-01-02", req.MoveOutDate)
	if err != nil {
		return nil, fmt.Errorf("invalid move-out date: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Application{}).Where("id = ?", app.ID).Update("moved_out_at", date).Error; err != nil {
			return err
		}
		if app.RoomID != nil {
			if err := tx.Model(&models.Room{}).Where("id = ?", *app.RoomID).Update("available", true).Error; err != nil {
				return err
			}
		}
		if lease := app.Lease; lease != nil && lease.ID != 0 {
			now := s.now().UTC()
			lease.Status = models.LeaseStatusTerminated
			lease.TerminatedAt = &now
			if date.Before(lease.EndDate) {
				lease.EndDate = date
			}
			return tx.Save(lease).Error
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record move-out: %w", err)
	}

	return s.apps.Get(ctx, actor, applicationID)
}

func (s *LeaseService) Get(ctx context.Context, actor Actor, applicationID int64) (*models.Lease, error) {
	_, lease, err := s.leaseFor(ctx, actor, applicationID)
	return lease, err
}

func (s *LeaseService) DocumentURL(ctx context.Context, actor Actor, applicationID int64) (*LeaseDocument, error) {
	_, lease, err := s.leaseFor(ctx, actor, applicationID)
	if err != nil {
		return nil, err
	}
	url, err := s.documents.DocumentURL(ctx, lease.DocumentKey)
	if err != nil {
		return nil, err
	}
	return &LeaseDocument{LeaseID: lease.ID, URL: url}, nil
}

// Tenant portal

func (s *LeaseService) TenantLeases(ctx context.Context, tenantID int64) ([]models.Lease, error) {
	var leases []models.Lease
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND status <> ?", tenantID, models.LeaseStatusDraft).
		Preload("Property").
		Order("start_date DESC").
		Find(&leases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leases: %w", err)
	}
	return leases, nil
}

func (s *LeaseService) TenantDocumentURL(ctx context.Context, tenantID, leaseID int64) (*LeaseDocument, error) {
	lease, err := s.tenantLease(ctx, tenantID, leaseID)
	if err != nil {
		return nil, err
	}
	url, err := s.documents.DocumentURL(ctx, lease.DocumentKey)
	if err != nil {
		return nil, err
	}
	return &LeaseDocument{LeaseID: lease.ID, URL: url}, nil
}

// Sign is the tenant accepting a sent lease.
func (s *LeaseService) Sign(ctx context.Context, tenantID, leaseID int64) (*models.Lease, error) {
	lease, err := s.tenantLease(ctx, tenantID, leaseID)
	if err != nil {
		return nil, err
	}
	if lease.Status != models.LeaseStatusSent {
		return nil, ErrInvalidState
	}

	var app models.Application
	if err := s.db.WithContext(ctx).First(&app, lease.ApplicationID).Error; err != nil {
		return nil, fmt.Errorf("failed to load application: %w", err)
	}

	tenant := Actor{UserID: tenantID, Role: models.UserRoleTenant}
	err = s.apps.transition(ctx, tenant, &app, workflow.StatusLeaseSigned, func(tx *gorm.DB) error {
		now := s.now().UTC()
		lease.Status = models.LeaseStatusSigned
		lease.SignedAt = &now
		return tx.Save(lease).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign lease: %w", err)
	}
	return lease, nil
}

func (s *LeaseService) tenantLease(ctx context.Context, tenantID, leaseID int64) (*models.Lease, error) {
	var lease models.Lease
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND status <> ?", tenantID, models.LeaseStatusDraft).
		First(&lease, leaseID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &lease, nil
}

func (s *LeaseService) leaseFor(ctx context.Context, actor Actor, applicationID int64) (*models.Application, *models.Lease, error) {
	app, err := s.apps.Get(ctx, actor, applicationID)
	if err != nil {
		return nil, nil, err
	}
	if app.Lease == nil || app.Lease.ID == 0 {
		return nil, nil, ErrNotFound
	}
	return app, app.Lease, nil
}

func renderLeaseDocument(lease *models.Lease, property *models.Property, room *models.Room) ([]byte, error) {
	var buf bytes.Buffer
	err := leaseDocumentTemplate.Execute(&buf, map[string]interface{}{
		"Lease":    lease,
		"Property": property,
		"Room":     room,
		"Start":    lease.StartDate.Format("2006-01-02"),
		"End":      lease.EndDate.Format("2006-01-02"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render lease document: %w", err)
	}
	return buf.Bytes(), nil
}
