// internal/services/payment_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/refund"
	"gorm.io/gorm"

	"github.com/javajoker/tink-backend/internal/config"
	"github.com/javajoker/tink-backend/internal/models"
	"github.com/javajoker/tink-backend/internal/utils"
)

type PaymentService struct {
	db            *gorm.DB
	config        *config.Config
	notifications *NotificationService
	now           func() time.Time
}

type CreateRentPaymentRequest struct {
	LeaseID int64 `json:"lease_id" validate:"required,gt=0"`
}

type RentPaymentIntent struct {
	PaymentID       int64   `json:"payment_id"`
	ClientSecret    string  `json:"client_secret"`
	PaymentIntentID string  `json:"payment_intent_id"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	Status          string  `json:"status"`
}

type ConfirmRentPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
}

type RefundRentPaymentRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func NewPaymentService(db *gorm.DB, config *config.Config, notifications *NotificationService) *PaymentService {
	// Initialize Stripe
	stripe.Key = config.Payment.StripeSecretKey

	return &PaymentService{
		db:            db,
		config:        config,
		notifications: notifications,
		now:           time.Now,
	}
}

// CreateRentPayment opens a Stripe PaymentIntent for the current month's rent.
func (s *PaymentService) CreateRentPayment(ctx context.Context, tenantID int64, req *CreateRentPaymentRequest) (*RentPaymentIntent, error) {
	var lease models.Lease
	if err := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&lease, req.LeaseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if lease.Status != models.LeaseStatusSigned && lease.Status != models.LeaseStatusActive {
		return nil, ErrInvalidState
	}

	currency := s.config.Payment.Currency
	if currency == "" {
		currency = "usd"
	}
	period := rentPeriodStart(s.now())
	idempotencyKey := uuid.New()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toMinorUnits(lease.MonthlyRent)),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey.String())
	params.AddMetadata("lease_id", strconv.FormatInt(lease.ID, 10))
	params.AddMetadata("tenant_id", strconv.FormatInt(tenantID, 10))
	params.AddMetadata("period", period.Format("2006-01"))

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	payment := &models.RentPayment{
		LeaseID:               lease.ID,
		TenantID:              tenantID,
		Amount:                lease.MonthlyRent,
		Currency:              currency,
		PeriodStart:           period,
		Status:                models.PaymentStatusPending,
		StripePaymentIntentID: pi.ID,
		IdempotencyKey:        idempotencyKey,
	}
	if err := s.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	return &RentPaymentIntent{
		PaymentID:       payment.ID,
		ClientSecret:    pi.ClientSecret,
		PaymentIntentID: pi.ID,
		Amount:          payment.Amount,
		Currency:        currency,
		Status:          string(pi.Status),
	}, nil
}

func (s *PaymentService) ConfirmRentPayment(ctx context.Context, tenantID int64, req *ConfirmRentPaymentRequest) (*models.RentPayment, error) {
	var payment models.RentPayment
	err := s.db.WithContext(ctx).
		Where("stripe_payment_intent_id = ? AND tenant_id = ?", req.PaymentIntentID, tenantID).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := paymentintent.Get(req.PaymentIntentID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		now := s.now().UTC()
		payment.Status = models.PaymentStatusSucceeded
		payment.PaidAt = &now
	case stripe.PaymentIntentStatusCanceled, stripe.PaymentIntentStatusRequiresPaymentMethod:
		payment.Status = models.PaymentStatusFailed
	default:
		payment.Status = models.PaymentStatusPending
	}

	if err := s.db.WithContext(ctx).Save(&payment).Error; err != nil {
		return nil, fmt.Errorf("failed to update payment: %w", err)
	}

	if payment.Status == models.PaymentStatusSucceeded && s.notifications != nil {
		var tenant models.Tenant
		if err := s.db.WithContext(ctx).First(&tenant, tenantID).Error; err == nil {
			if err := s.notifications.SendPaymentReceipt(ctx, tenant.Phone, &payment); err != nil {
				logrus.WithError(err).WithField("payment_id", payment.ID).Warn("Failed to send payment receipt")
			}
		}
	}

	return &payment, nil
}

func (s *PaymentService) GetPaymentHistory(ctx context.Context, tenantID int64, params utils.PaginationParams) ([]models.RentPayment, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.RentPayment{}).Where("tenant_id = ?", tenantID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	allowedSortFields := []string{"created_at", "period_start", "amount", "status"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var payments []models.RentPayment
	if err := query.Find(&payments).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch payments: %w", err)
	}

	return payments, total, nil
}

// RefundRentPayment returns a settled payment to the tenant.
func (s *PaymentService) RefundRentPayment(ctx context.Context, paymentID int64, req *RefundRentPaymentRequest) (*models.RentPayment, error) {
	var payment models.RentPayment
	if err := s.db.WithContext(ctx).First(&payment, paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if payment.Status != models.PaymentStatusSucceeded {
		return nil, ErrInvalidState
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(payment.StripePaymentIntentID),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	params.AddMetadata("reason", req.Reason)
	if _, err := refund.New(params); err != nil {
		return nil, fmt.Errorf("failed to process refund: %w", err)
	}

	payment.Status = models.PaymentStatusRefunded
	if err := s.db.WithContext(ctx).Save(&payment).Error; err != nil {
		return nil, fmt.Errorf("failed to update payment: %w", err)
	}
	return &payment, nil
}

func rentPeriodStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
