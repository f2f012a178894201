// internal/database/seed.go
package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/tink-backend/internal/models"
	"github.com/javajoker/tink-backend/internal/workflow"
)

// SeedInitialData creates the default admin account.
func SeedInitialData(db *gorm.DB) error {
	logrus.Info("Seeding initial data...")

	var adminCount int64
	db.Model(&models.User{}).Where("role = ?", models.UserRoleAdmin).Count(&adminCount)

	if adminCount == 0 {
		admin := &models.User{
			Name:   "System Administrator",
			Email:  "admin@tink.local",
			Role:   models.UserRoleAdmin,
			Status: models.UserStatusActive,
		}

		if err := admin.SetPassword("admin123!@#"); err != nil {
			return fmt.Errorf("failed to set admin password: %w", err)
		}

		if err := db.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		logrus.Info("Default admin user created successfully")
	}

	logrus.Info("Initial data seeding completed")
	return nil
}

// SeedDemoData fills an empty database with one landlord, one property and
// an application in every board column.
func SeedDemoData(db *gorm.DB) error {
	var count int64
	db.Model(&models.Property{}).Count(&count)
	if count > 0 {
		return nil
	}

	return WithTransaction(db, func(tx *gorm.DB) error {
		landlord := &models.User{
			Name:   "Demo Landlord",
			Email:  "landlord@tink.local",
			Role:   models.UserRoleLandlord,
			Status: models.UserStatusActive,
		}
		if err := landlord.SetPassword("landlord123!"); err != nil {
			return err
		}
		if err := tx.Create(landlord).Error; err != nil {
			return fmt.Errorf("failed to create demo landlord: %w", err)
		}

		available := time.Now().UTC().AddDate(0, 1, 0).Truncate(24 * time.Hour)
		property := &models.Property{
			LandlordID:      landlord.ID,
			Name:            "Maple House",
			Address:         "12 Maple Street",
			City:            "Springfield",
			PropertyType:    "house",
			MonthlyRent:     1500,
			SecurityDeposit: 3000,
			AvailableFrom:   &available,
			Amenities:       []string{"parking", "laundry"},
			Rooms: []models.Room{
				{Name: "Room A", MonthlyRent: 750, Available: true},
				{Name: "Room B", MonthlyRent: 700, Available: true},
			},
		}
		if err := tx.Create(property).Error; err != nil {
			return fmt.Errorf("failed to create demo property: %w", err)
		}

		tenants := []struct {
			name   string
			phone  string
			status workflow.Status
		}{
			{"Avery Chen", "+15550000001", workflow.StatusPending},
			{"Blake Ortiz", "+15550000002", workflow.StatusApproved},
			{"Casey Novak", "+15550000003", workflow.StatusViewingScheduled},
			{"Devon Price", "+15550000004", workflow.StatusMovedIn},
		}
		for i, t := range tenants {
			tenant := &models.Tenant{Name: t.name, Phone: t.phone, Status: models.UserStatusActive}
			if err := tx.Create(tenant).Error; err != nil {
				return fmt.Errorf("failed to create demo tenant: %w", err)
			}
			app := &models.Application{
				PropertyID:      property.ID,
				TenantID:        &tenant.ID,
				TenantName:      t.name,
				TenantPhone:     t.phone,
				Status:          t.status,
				ApplicationDate: time.Now().UTC().Add(-time.Duration(i) * 24 * time.Hour),
			}
			if err := tx.Create(app).Error; err != nil {
				return fmt.Errorf("failed to create demo application: %w", err)
			}
		}

		logrus.WithField("landlord", landlord.Email).Info("Demo data seeded")
		return nil
	})
}
