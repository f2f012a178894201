// internal/models/property.go
package models

import (
	"time"

	"github.com/lib/pq"

	"github.com/javajoker/tink-backend/internal/workflow"
)

type Property struct {
	BaseModel
	LandlordID      int64          `json:"landlord_id" gorm:"not null;index"`
	Name            string         `json:"name" gorm:"size:200;not null"`
	Address         string         `json:"address" gorm:"size:300"`
	City            string         `json:"city" gorm:"size:100;index"`
	PropertyType    string         `json:"property_type" gorm:"size:30"`
	MonthlyRent     float64        `json:"monthly_rent" gorm:"type:decimal(10,2)"`
	SecurityDeposit float64        `json:"security_deposit" gorm:"type:decimal(10,2)"`
	AvailableFrom   *time.Time     `json:"available_from" gorm:"type:date"`
	Amenities       pq.StringArray `json:"amenities" gorm:"type:text[]"`

	Rooms []Room `json:"rooms,omitempty" gorm:"foreignKey:PropertyID"`
}

type Room struct {
	BaseModel
	PropertyID  int64   `json:"property_id" gorm:"not null;index"`
	Name        string  `json:"name" gorm:"size:100;not null"`
	MonthlyRent float64 `json:"monthly_rent" gorm:"type:decimal(10,2)"`
	Available   bool    `json:"available" gorm:"default:true"`
}

func (p *Property) ToWorkflow() workflow.Property {
	return workflow.Property{
		ID:              p.ID,
		Name:            p.Name,
		Address:         p.Address,
		MonthlyRent:     p.MonthlyRent,
		SecurityDeposit: p.SecurityDeposit,
		AvailableFrom:   p.AvailableFrom,
	}
}
