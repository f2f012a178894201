// internal/services/errors.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/javajoker/tink-backend/internal/models"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrDeleteProtected    = errors.New("application has an active tenancy or lease and cannot be deleted")
	ErrInvalidState       = errors.New("operation not allowed in the current state")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountSuspended   = errors.New("account is suspended")
	ErrEmailTaken         = errors.New("user with this email already exists")

	ErrPhoneNotFound     = errors.New("phone_not_found")
	ErrOTPInvalid        = errors.New("invalid verification code")
	ErrOTPExpired        = errors.New("expired")
	ErrTooManyAttempts   = errors.New("too_many_attempts")
	ErrSelectionExpired  = errors.New("profile selection window has closed")
	ErrProfileNotOnPhone = errors.New("profile does not belong to this phone number")
)

// ResendTooSoonError is returned while the resend cooldown is running.
type ResendTooSoonError struct {
	RetryAfter time.Duration
}

func (e *ResendTooSoonError) Error() string {
	return fmt.Sprintf("resend_too_soon: retry in %ds", e.RetryAfterSeconds())
}

func (e *ResendTooSoonError) RetryAfterSeconds() int {
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// WrongCodeError reports a mismatched code that still has attempts left.
type WrongCodeError struct {
	RemainingAttempts int
}

func (e *WrongCodeError) Error() string {
	return fmt.Sprintf("invalid verification code, %d attempts remaining", e.RemainingAttempts)
}

func (e *WrongCodeError) Unwrap() error { return ErrOTPInvalid }

// Actor is the authenticated staff member a request runs as. Landlords are
// limited to their own properties.
type Actor struct {
	UserID int64
	Role   models.UserRole
}

func (a Actor) SeesAll() bool {
	return a.Role == models.UserRoleManager || a.Role == models.UserRoleAdmin
}
