// internal/services/application_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/javajoker/tink-backend/internal/database"
	"github.com/javajoker/tink-backend/internal/events"
	"github.com/javajoker/tink-backend/internal/models"
	"github.com/javajoker/tink-backend/internal/utils"
	"github.com/javajoker/tink-backend/internal/workflow"
)

type ApplicationService struct {
	db     *gorm.DB
	events events.Publisher
	now    func() time.Time
}

type ApplicationFilter struct {
	Status     string
	PropertyID int64
	utils.PaginationParams
}

type UpdateApplicationRequest struct {
	Status        *string `json:"status,omitempty"`
	DecisionNotes *string `json:"decision_notes,omitempty" validate:"omitempty,max=2000"`
}

type DecideApplicationRequest struct {
	Decision      string `json:"decision" validate:"required,oneof=approve reject"`
	DecisionNotes string `json:"decision_notes,omitempty" validate:"omitempty,max=2000"`
}

// Statuses that hold a property for conflict checks.
var occupyingStatuses = []workflow.Status{workflow.StatusMovedIn, workflow.StatusActive}

func NewApplicationService(db *gorm.DB, publisher events.Publisher) *ApplicationService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &ApplicationService{
		db:     db,
		events: publisher,
		now:    time.Now,
	}
}

// For binds the service to one actor so it satisfies workflow.API.
func (s *ApplicationService) For(actor Actor) *ApplicationAPI {
	return &ApplicationAPI{svc: s, actor: actor}
}

func (s *ApplicationService) ownedProperties(actor Actor) *gorm.DB {
	return s.db.Model(&models.Property{}).Select("id").Where("landlord_id = ?", actor.UserID)
}

func (s *ApplicationService) scope(ctx context.Context, actor Actor) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Application{})
	if !actor.SeesAll() {
		query = query.Where("property_id IN (?)", s.ownedProperties(actor))
	}
	return query
}

func (s *ApplicationService) List(ctx context.Context, actor Actor, filter ApplicationFilter) ([]models.Application, int64, error) {
	query := s.scope(ctx, actor)

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PropertyID != 0 {
		query = query.Where("property_id = ?", filter.PropertyID)
	}
	if filter.Search != "" {
		searchTerm := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(tenant_name) LIKE ? OR LOWER(tenant_email) LIKE ?", searchTerm, searchTerm)
	}

	// Get total count
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count applications: %w", err)
	}

	allowedSortFields := []string{"application_date", "tenant_name", "status", "created_at"}
	query = utils.ApplySort(query, filter.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, filter.PaginationParams)

	var apps []models.Application
	if err := query.Preload("Lease").Find(&apps).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch applications: %w", err)
	}

	return apps, total, nil
}

// All returns every application the actor can see, for board rendering.
func (s *ApplicationService) All(ctx context.Context, actor Actor) ([]models.Application, error) {
	var apps []models.Application
	err := s.scope(ctx, actor).
		Preload("Viewings", func(db *gorm.DB) *gorm.DB { return db.Order("scheduled_date DESC") }).
		Preload("Lease").
		Order("created_at ASC").Order("id ASC").
		Find(&apps).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch applications: %w", err)
	}
	return apps, nil
}

func (s *ApplicationService) Get(ctx context.Context, actor Actor, id int64) (*models.Application, error) {
	var app models.Application
	err := s.scope(ctx, actor).
		Preload("Property").
		Preload("Viewings", func(db *gorm.DB) *gorm.DB { return db.Order("scheduled_date DESC") }).
		Preload("Lease").
		First(&app, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &app, nil
}

func (s *ApplicationService) Update(ctx context.Context, actor Actor, id int64, patch workflow.ApplicationPatch) (*models.Application, error) {
	app, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if patch.DecisionNotes != nil {
		updates["decision_notes"] = *patch.DecisionNotes
	}

	to := app.Status
	if patch.Status != nil {
		if to, err = workflow.ParseAnyStatus(string(*patch.Status)); err != nil {
			return nil, err
		}
		updates["status"] = to
	}

	if len(updates) == 0 {
		return app, nil
	}

	if err := s.db.WithContext(ctx).Model(app).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update application: %w", err)
	}
	s.statusChanged(ctx, actor, app, to)

	return s.Get(ctx, actor, id)
}

func (s *ApplicationService) Decide(ctx context.Context, actor Actor, id int64, decision workflow.Decision) (*models.Application, error) {
	var to workflow.Status
	switch decision.Decision {
	case workflow.DecisionApprove:
		to = workflow.StatusApproved
	case workflow.DecisionReject:
		to = workflow.StatusRejected
	default:
		return nil, fmt.Errorf("unknown decision %q", decision.Decision)
	}

	app, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	updates := map[string]interface{}{
		"status":     to,
		"decided_at": now,
		"decided_by": actor.UserID,
	}
	if decision.DecisionNotes != "" {
		updates["decision_notes"] = decision.DecisionNotes
	}

	if err := s.db.WithContext(ctx).Model(app).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to record decision: %w", err)
	}
	s.statusChanged(ctx, actor, app, to)

	return s.Get(ctx, actor, id)
}

func (s *ApplicationService) Delete(ctx context.Context, actor Actor, id int64) error {
	app, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}

	if !workflow.CanDelete(string(app.Status)) {
		return ErrDeleteProtected
	}

	return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.Where("application_id = ?", app.ID).Delete(&models.Viewing{}).Error; err != nil {
			return fmt.Errorf("failed to delete viewings: %w", err)
		}
		if err := tx.Delete(app).Error; err != nil {
			return fmt.Errorf("failed to delete application: %w", err)
		}
		return nil
	})
}

func (s *ApplicationService) GetProperty(ctx context.Context, actor Actor, id int64) (*models.Property, error) {
	query := s.db.WithContext(ctx).Preload("Rooms")
	if !actor.SeesAll() {
		query = query.Where("landlord_id = ?", actor.UserID)
	}

	var property models.Property
	if err := query.First(&property, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &property, nil
}

// TenantConflicts lists tenancies on the property that overlap [start, end].
// A tenancy runs over its lease dates when a lease exists, otherwise from
// the desired move-in date until move-out.
func (s *ApplicationService) TenantConflicts(ctx context.Context, actor Actor, propertyID int64, start, end time.Time) (*workflow.ConflictReport, error) {
	if _, err := s.GetProperty(ctx, actor, propertyID); err != nil {
		return nil, err
	}

	var occupants []models.Application
	err := s.db.WithContext(ctx).
		Where("property_id = ? AND status IN ?", propertyID, occupyingStatuses).
		Preload("Lease").
		Order("application_date ASC").
		Find(&occupants).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load occupants: %w", err)
	}

	report := &workflow.ConflictReport{Conflicts: []workflow.TenantConflict{}}
	for _, occupant := range occupants {
		from, until := occupancyRange(occupant)
		if !occupancyOverlaps(from, until, start, end) {
			continue
		}
		report.Conflicts = append(report.Conflicts, workflow.TenantConflict{
			TenantName: workflow.DisplayName(occupant.ToWorkflow()),
			MoveInDate: from,
		})
	}
	report.HasConflicts = len(report.Conflicts) > 0

	return report, nil
}

func occupancyRange(app models.Application) (*time.Time, *time.Time) {
	if lease := app.Lease; lease != nil && lease.ID != 0 {
		start, end := lease.StartDate, lease.EndDate
		return &start, &end
	}
	return app.DesiredMoveInDate, app.MovedOutAt
}

// occupancyOverlaps treats a nil start as "already living there" and a nil
// end as open-ended.
func occupancyOverlaps(from, until *time.Time, start, end time.Time) bool {
	if from != nil && from.After(end) {
		return false
	}
	if until != nil && until.Before(start) {
		return false
	}
	return true
}

func (s *ApplicationService) statusChanged(ctx context.Context, actor Actor, app *models.Application, to workflow.Status) {
	if app.Status == to {
		return
	}
	events.PublishQuietly(ctx, s.events, events.Event{
		Type:          events.TypeStatusChanged,
		ApplicationID: app.ID,
		PropertyID:    app.PropertyID,
		ActorID:       actor.UserID,
		From:          string(app.Status),
		To:            string(to),
		OccurredAt:    s.now().UTC(),
	})
}

// transition moves app to status inside tx-backed fn and publishes the
// change once it commits.
func (s *ApplicationService) transition(ctx context.Context, actor Actor, app *models.Application, to workflow.Status, fn func(tx *gorm.DB) error) error {
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if fn != nil {
			if err := fn(tx); err != nil {
				return err
			}
		}
		return tx.Model(&models.Application{}).Where("id = ?", app.ID).Update("status", to).Error
	})
	if err != nil {
		return err
	}
	s.statusChanged(ctx, actor, app, to)
	app.Status = to
	return nil
}

// ApplicationAPI is the actor-bound view of ApplicationService.
type ApplicationAPI struct {
	svc   *ApplicationService
	actor Actor
}

var _ workflow.API = (*ApplicationAPI)(nil)

func (a *ApplicationAPI) UpdateApplication(ctx context.Context, id int64, patch workflow.ApplicationPatch) (*workflow.Application, error) {
	app, err := a.svc.Update(ctx, a.actor, id, patch)
	if err != nil {
		return nil, err
	}
	out := app.ToWorkflow()
	return &out, nil
}

func (a *ApplicationAPI) DecideApplication(ctx context.Context, id int64, decision workflow.Decision) (*workflow.Application, error) {
	app, err := a.svc.Decide(ctx, a.actor, id, decision)
	if err != nil {
		return nil, err
	}
	out := app.ToWorkflow()
	return &out, nil
}

func (a *ApplicationAPI) GetProperty(ctx context.Context, id int64) (*workflow.Property, error) {
	property, err := a.svc.GetProperty(ctx, a.actor, id)
	if err != nil {
		return nil, err
	}
	out := property.ToWorkflow()
	return &out, nil
}

func (a *ApplicationAPI) CheckTenantConflicts(ctx context.Context, propertyID int64, start, end time.Time) (*workflow.ConflictReport, error) {
	return a.svc.TenantConflicts(ctx, a.actor, propertyID, start, end)
}
