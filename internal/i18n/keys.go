// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthForbidden          = "auth.forbidden"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthRegisterSuccess    = "auth.register_success"
	KeyAuthAccountSuspended   = "auth.account_suspended"

	// Tenant OTP
	KeyOTPSent              = "otp.sent"
	KeyOTPInvalid           = "otp.invalid"
	KeyOTPExpired           = "otp.expired"
	KeyOTPPhoneNotFound     = "otp.phone_not_found"
	KeyOTPResendTooSoon     = "otp.resend_too_soon"
	KeyOTPTooManyAttempts   = "otp.too_many_attempts"
	KeyOTPRequiresSelection = "otp.requires_selection"

	// Applications
	KeyApplicationNotFound      = "application.not_found"
	KeyApplicationUpdated       = "application.updated"
	KeyApplicationDeleted       = "application.deleted"
	KeyApplicationProtected     = "application.protected"
	KeyApplicationActionInvalid = "application.action_unavailable"
	KeyApplicationInvalidState  = "application.invalid_state"

	// Users
	KeyUserNotFound   = "user.not_found"
	KeyUserEmailTaken = "user.email_taken"
	KeyUserSelfUpdate = "user.self_update"
	KeyTenantNotFound = "tenant.not_found"

	// Properties
	KeyPropertyNotFound = "property.not_found"
	KeyRoomNotFound     = "room.not_found"

	// Leases
	KeyLeaseNotFound     = "lease.not_found"
	KeyLeaseInvalidState = "lease.invalid_state"

	// Payments
	KeyPaymentNotFound = "payment.not_found"
	KeyPaymentFailed   = "payment.failed"
	KeyPaymentRefunded = "payment.refunded"

	// Validation
	KeyValidationInvalid = "validation.invalid"

	// Rate limiting
	KeyRateLimited = "rate.limited"
)
