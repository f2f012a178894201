// internal/services/tenant_auth_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/tink-backend/internal/config"
	"github.com/javajoker/tink-backend/internal/models"
	"github.com/javajoker/tink-backend/internal/utils"
)

const otpCodeLength = 6

type TenantAuthService struct {
	db            *gorm.DB
	cfg           *config.Config
	notifications *NotificationService
	now           func() time.Time
}

type RequestCodeRequest struct {
	Phone string `json:"phone" validate:"required,phone"`
}

type RequestCodeResponse struct {
	ChallengeID uuid.UUID `json:"challenge_id"`
	ExpiresIn   int       `json:"expires_in"`   // in seconds
	ResendAfter int       `json:"resend_after"` // in seconds
}

type VerifyCodeRequest struct {
	ChallengeID uuid.UUID `json:"challenge_id" validate:"required"`
	Code        string    `json:"code" validate:"required,otp_code"`
}

type SelectProfileRequest struct {
	ChallengeID uuid.UUID `json:"challenge_id" validate:"required"`
	TenantID    int64     `json:"tenant_id" validate:"required,gt=0"`
}

type TenantProfile struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// TenantAuthResponse either carries tokens or, when several profiles share
// the phone number, the profiles to choose from.
type TenantAuthResponse struct {
	RequiresSelection bool            `json:"requires_selection"`
	ChallengeID       *uuid.UUID      `json:"challenge_id,omitempty"`
	Profiles          []TenantProfile `json:"profiles,omitempty"`

	Tenant       *models.Tenant `json:"tenant,omitempty"`
	AccessToken  string         `json:"access_token,omitempty"`
	RefreshToken string         `json:"refresh_token,omitempty"`
	TokenType    string         `json:"token_type,omitempty"`
	ExpiresIn    int            `json:"expires_in,omitempty"` // in seconds
}

func NewTenantAuthService(db *gorm.DB, cfg *config.Config, notifications *NotificationService) *TenantAuthService {
	return &TenantAuthService{
		db:            db,
		cfg:           cfg,
		notifications: notifications,
		now:           time.Now,
	}
}

// RequestCode sends a fresh code to a registered phone number. Earlier
// open challenges for the phone are closed.
func (s *TenantAuthService) RequestCode(ctx context.Context, req *RequestCodeRequest) (*RequestCodeResponse, error) {
	db := s.db.WithContext(ctx)
	now := s.now().UTC()

	var tenantCount int64
	if err := db.Model(&models.Tenant{}).
		Where("phone = ? AND status = ?", req.Phone, models.UserStatusActive).
		Count(&tenantCount).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if tenantCount == 0 {
		return nil, ErrPhoneNotFound
	}

	var last models.OTPChallenge
	err := db.Where("phone = ?", req.Phone).Order("last_sent_at DESC").First(&last).Error
	if err == nil {
		if wait := last.LastSentAt.Add(s.cfg.OTP.ResendCooldown).Sub(now); wait > 0 {
			return nil, &ResendTooSoonError{RetryAfter: wait}
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	code, err := utils.GenerateNumericCode(otpCodeLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}
	hash, err := utils.HashSecret(code)
	if err != nil {
		return nil, fmt.Errorf("failed to hash code: %w", err)
	}

	challenge := &models.OTPChallenge{
		ChallengeID: uuid.New(),
		Phone:       req.Phone,
		CodeHash:    hash,
		ExpiresAt:   now.Add(s.cfg.OTP.CodeTTL),
		LastSentAt:  now,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.OTPChallenge{}).
			Where("phone = ? AND consumed_at IS NULL", req.Phone).
			Update("consumed_at", now).Error; err != nil {
			return err
		}
		return tx.Create(challenge).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store challenge: %w", err)
	}

	if err := s.notifications.SendOTP(ctx, req.Phone, code, s.cfg.OTP.CodeTTL); err != nil {
		return nil, err
	}

	return &RequestCodeResponse{
		ChallengeID: challenge.ChallengeID,
		ExpiresIn:   int(s.cfg.OTP.CodeTTL.Seconds()),
		ResendAfter: int(s.cfg.OTP.ResendCooldown.Seconds()),
	}, nil
}

// VerifyCode checks a code against its challenge. Each miss costs an
// attempt; the challenge closes once attempts run out.
func (s *TenantAuthService) VerifyCode(ctx context.Context, req *VerifyCodeRequest) (*TenantAuthResponse, error) {
	db := s.db.WithContext(ctx)
	now := s.now().UTC()

	challenge, err := s.openChallenge(ctx, req.ChallengeID)
	if err != nil {
		return nil, err
	}
	if challenge.VerifiedAt != nil {
		return nil, ErrOTPInvalid
	}
	if now.After(challenge.ExpiresAt) {
		return nil, ErrOTPExpired
	}
	if challenge.Attempts >= s.cfg.OTP.MaxAttempts {
		return nil, ErrTooManyAttempts
	}

	if !utils.CheckSecret(challenge.CodeHash, req.Code) {
		return nil, s.recordMiss(ctx, challenge.ID, now)
	}

	var tenants []models.Tenant
	if err := db.Where("phone = ? AND status = ?", challenge.Phone, models.UserStatusActive).
		Order("id ASC").Find(&tenants).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	switch len(tenants) {
	case 0:
		return nil, ErrPhoneNotFound
	case 1:
		if err := s.claim(ctx, challenge.ID, map[string]interface{}{"verified_at": now, "consumed_at": now}); err != nil {
			return nil, err
		}
		return s.issueTokens(&tenants[0])
	}

	if err := s.claim(ctx, challenge.ID, map[string]interface{}{"verified_at": now}); err != nil {
		return nil, err
	}

	profiles := make([]TenantProfile, 0, len(tenants))
	for _, t := range tenants {
		profiles = append(profiles, TenantProfile{ID: t.ID, Name: t.Name, Email: t.Email})
	}
	id := challenge.ChallengeID
	return &TenantAuthResponse{
		RequiresSelection: true,
		ChallengeID:       &id,
		Profiles:          profiles,
	}, nil
}

// SelectProfile finishes a verified challenge for one of the phone's
// profiles.
func (s *TenantAuthService) SelectProfile(ctx context.Context, req *SelectProfileRequest) (*TenantAuthResponse, error) {
	db := s.db.WithContext(ctx)
	now := s.now().UTC()

	challenge, err := s.openChallenge(ctx, req.ChallengeID)
	if err != nil {
		return nil, err
	}
	if challenge.VerifiedAt == nil {
		return nil, ErrOTPInvalid
	}
	if now.After(challenge.VerifiedAt.Add(s.cfg.OTP.SelectionTTL)) {
		return nil, ErrSelectionExpired
	}

	var tenant models.Tenant
	if err := db.Where("phone = ? AND status = ?", challenge.Phone, models.UserStatusActive).
		First(&tenant, req.TenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotOnPhone
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	result := db.Model(&models.OTPChallenge{}).
		Where("id = ? AND consumed_at IS NULL", challenge.ID).
		Update("consumed_at", now)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to close challenge: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrOTPInvalid
	}
	return s.issueTokens(&tenant)
}

func (s *TenantAuthService) RefreshToken(ctx context.Context, refreshToken string) (*TenantAuthResponse, error) {
	tenantID, role, err := utils.ValidateRefreshToken(refreshToken)
	if err != nil || role != string(models.UserRoleTenant) {
		return nil, fmt.Errorf("invalid refresh token: %w", errors.Join(err, ErrInvalidCredentials))
	}

	var tenant models.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if tenant.Status != models.UserStatusActive {
		return nil, ErrAccountSuspended
	}
	return s.issueTokens(&tenant)
}

func (s *TenantAuthService) GetTenant(ctx context.Context, tenantID int64) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &tenant, nil
}

// recordMiss spends one attempt. The increment is conditional so parallel
// guesses can never push the counter past the limit.
func (s *TenantAuthService) recordMiss(ctx context.Context, id int64, now time.Time) error {
	limit := s.cfg.OTP.MaxAttempts

	var counted models.OTPChallenge
	result := s.db.WithContext(ctx).Model(&counted).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "attempts"}}}).
		Where("id = ? AND consumed_at IS NULL AND attempts < ?", id, limit).
		UpdateColumn("attempts", gorm.Expr("attempts + 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to record attempt: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTooManyAttempts
	}

	if remaining := limit - counted.Attempts; remaining > 0 {
		return &WrongCodeError{RemainingAttempts: remaining}
	}
	if err := s.db.WithContext(ctx).Model(&models.OTPChallenge{}).
		Where("id = ? AND consumed_at IS NULL", id).
		Update("consumed_at", now).Error; err != nil {
		return fmt.Errorf("failed to close challenge: %w", err)
	}
	return ErrTooManyAttempts
}

// claim applies updates only while the challenge is still open and
// unverified, so one code is redeemed once.
func (s *TenantAuthService) claim(ctx context.Context, id int64, updates map[string]interface{}) error {
	result := s.db.WithContext(ctx).Model(&models.OTPChallenge{}).
		Where("id = ? AND consumed_at IS NULL AND verified_at IS NULL AND attempts < ?", id, s.cfg.OTP.MaxAttempts).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to close challenge: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrOTPInvalid
	}
	return nil
}

func (s *TenantAuthService) openChallenge(ctx context.Context, id uuid.UUID) (*models.OTPChallenge, error) {
	var challenge models.OTPChallenge
	err := s.db.WithContext(ctx).
		Where("challenge_id = ? AND consumed_at IS NULL", id).
		First(&challenge).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOTPInvalid
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &challenge, nil
}

func (s *TenantAuthService) issueTokens(tenant *models.Tenant) (*TenantAuthResponse, error) {
	role := string(models.UserRoleTenant)

	accessToken, err := utils.GenerateJWT(tenant.ID, tenant.Name, role, s.cfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := utils.GenerateRefreshToken(tenant.ID, role, s.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &TenantAuthResponse{
		Tenant:       tenant,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.cfg.JWT.AccessTokenTTL * 3600,
	}, nil
}
