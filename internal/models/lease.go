// internal/models/lease.go
package models

import "time"

type Lease struct {
	BaseModel
	ApplicationID   int64       `json:"application_id" gorm:"not null;uniqueIndex"`
	PropertyID      int64       `json:"property_id" gorm:"not null;index"`
	RoomID          *int64      `json:"room_id"`
	TenantID        *int64      `json:"tenant_id" gorm:"index"`
	TenantName      string      `json:"tenant_name" gorm:"size:200"`
	MonthlyRent     float64     `json:"monthly_rent" gorm:"type:decimal(10,2);not null"`
	SecurityDeposit float64     `json:"security_deposit" gorm:"type:decimal(10,2)"`
	StartDate       time.Time   `json:"start_date" gorm:"type:date;not null"`
	EndDate         time.Time   `json:"end_date" gorm:"type:date;not null"`
	Status          LeaseStatus `json:"status" gorm:"type:varchar(20);default:'draft';index"`
	DocumentKey     string      `json:"-" gorm:"size:300"`
	SentAt          *time.Time  `json:"sent_at"`
	SignedAt        *time.Time  `json:"signed_at"`
	ActivatedAt     *time.Time  `json:"activated_at"`
	TerminatedAt    *time.Time  `json:"terminated_at"`

	Property *Property `json:"property,omitempty" gorm:"foreignKey:PropertyID"`
}
