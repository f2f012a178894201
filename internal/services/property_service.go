// internal/services/property_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/javajoker/tink-backend/internal/models"
	"github.com/javajoker/tink-backend/internal/utils"
	"github.com/javajoker/tink-backend/internal/workflow"
)

type PropertyService struct {
	db   *gorm.DB
	apps *ApplicationService
}

type AssignRoomRequest struct {
	RoomID int64 `json:"room_id" validate:"required,gt=0"`
}

func NewPropertyService(db *gorm.DB, apps *ApplicationService) *PropertyService {
	return &PropertyService{
		db:   db,
		apps: apps,
	}
}

func (s *PropertyService) List(ctx context.Context, actor Actor, params utils.PaginationParams) ([]models.Property, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Property{})
	if !actor.SeesAll() {
		query = query.Where("landlord_id = ?", actor.UserID)
	}
	if params.Search != "" {
		searchTerm := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(address) LIKE ?", searchTerm, searchTerm)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count properties: %w", err)
	}

	query = utils.ApplySort(query, params, []string{"name", "created_at", "monthly_rent"})
	query = utils.ApplyPagination(query, params)

	var properties []models.Property
	if err := query.Preload("Rooms").Find(&properties).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch properties: %w", err)
	}
	return properties, total, nil
}

func (s *PropertyService) Get(ctx context.Context, actor Actor, id int64) (*models.Property, error) {
	return s.apps.GetProperty(ctx, actor, id)
}

// AssignRoom places a shortlisted applicant in a room of the property they
// applied for. A previously held room is released.
func (s *PropertyService) AssignRoom(ctx context.Context, actor Actor, applicationID int64, req *AssignRoomRequest) (*models.Application, error) {
	app, err := s.apps.Get(ctx, actor, applicationID)
	if err != nil {
		return nil, err
	}
	switch app.Status {
	case workflow.StatusViewingCompleted, workflow.StatusProcessing, workflow.StatusRoomAssigned:
	default:
		return nil, ErrInvalidState
	}

	var room models.Room
	if err := s.db.WithContext(ctx).Where("property_id = ?", app.PropertyID).First(&room, req.RoomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if !room.Available && (app.RoomID == nil || *app.RoomID != room.ID) {
		return nil, ErrInvalidState
	}

	previous := app.RoomID
	err = s.apps.transition(ctx, actor, app, workflow.StatusRoomAssigned, func(tx *gorm.DB) error {
		if previous == nil || *previous != room.ID {
			claimed := tx.Model(&models.Room{}).
				Where("id = ? AND available = ?", room.ID, true).
				Update("available", false)
			if claimed.Error != nil {
				return claimed.Error
			}
			if claimed.RowsAffected == 0 {
				return ErrInvalidState
			}
		}
		if previous != nil && *previous != room.ID {
			if err := tx.Model(&models.Room{}).Where("id = ?", *previous).Update("available", true).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.Application{}).Where("id = ?", app.ID).Update("room_id", room.ID).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to assign room: %w", err)
	}

	return s.apps.Get(ctx, actor, applicationID)
}
