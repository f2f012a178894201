// internal/models/tenant.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is a phone-authenticated profile. One phone number may hold
// several profiles.
type Tenant struct {
	BaseModel
	Name   string     `json:"name" gorm:"size:200;not null"`
	Email  string     `json:"email" gorm:"size:255"`
	Phone  string     `json:"phone" gorm:"size:32;not null;index"`
	Status UserStatus `json:"status" gorm:"type:varchar(20);default:'active'"`
}

type OTPChallenge struct {
	BaseModel
	ChallengeID uuid.UUID  `json:"challenge_id" gorm:"type:uuid;uniqueIndex;not null"`
	Phone       string     `json:"phone" gorm:"size:32;not null;index"`
	CodeHash    string     `json:"-" gorm:"size:255;not null"`
	Attempts    int        `json:"attempts" gorm:"default:0"`
	ExpiresAt   time.Time  `json:"expires_at" gorm:"not null"`
	LastSentAt  time.Time  `json:"last_sent_at" gorm:"not null"`
	VerifiedAt  *time.Time `json:"verified_at"`
	ConsumedAt  *time.Time `json:"consumed_at"`
}
