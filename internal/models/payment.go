// internal/models/payment.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type RentPayment struct {
	BaseModel
	LeaseID               int64         `json:"lease_id" gorm:"not null;index"`
	TenantID              int64         `json:"tenant_id" gorm:"not null;index"`
	Amount                float64       `json:"amount" gorm:"type:decimal(10,2);not null"`
	Currency              string        `json:"currency" gorm:"size:3;default:'usd'"`
	PeriodStart           time.Time     `json:"period_start" gorm:"type:date"`
	Status                PaymentStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	StripePaymentIntentID string        `json:"stripe_payment_intent_id" gorm:"size:100;uniqueIndex"`
	IdempotencyKey        uuid.UUID     `json:"-" gorm:"type:uuid"`
	PaidAt                *time.Time    `json:"paid_at"`
}
