package workflow

import "github.com/spec-kit/semillero-service/internal/domain"

// Event is a user action or the resolution of an effect.
type Event interface {
	Name() string
}

// EditAuth replaces the login and verification inputs.
type EditAuth struct{ Input domain.AuthInput }

// EditCode replaces only the typed verification code.
type EditCode struct{ Code string }

// EditEnrollment replaces the enrollment form.
type EditEnrollment struct{ Input domain.EnrollmentInput }

// SubmitCredentials is the login button.
type SubmitCredentials struct{}

// ChooseEnrollment is the "new enrollment" button on the login screen.
type ChooseEnrollment struct{}

// SubmitCode is the verify button.
type SubmitCode struct{}

// CodeVerified carries the verification backend's answer.
type CodeVerified struct {
	Valid      bool
	Generation uint64
}

// CodeVerificationFailed reports that the verification backend could not answer.
type CodeVerificationFailed struct {
	Err        error
	Generation uint64
}

// Logout leaves the dashboard.
type Logout struct{}

// SelectPayment opens the confirmation overlay for a catalog entry.
type SelectPayment struct{ Payment *domain.Payment }

// CancelPayment closes the confirmation overlay.
type CancelPayment struct{}

// ConfirmPayment is the "pay" button of the overlay.
type ConfirmPayment struct{}

// PaymentHandedOff reports the payment app was opened.
type PaymentHandedOff struct {
	PreferenceID string
	Generation   uint64
}

// PaymentFailed reports preference creation or hand-off failure.
type PaymentFailed struct {
	Err        error
	Generation uint64
}

// SubmitEnrollment is the enrollment form's submit button.
type SubmitEnrollment struct{}

// EnrollmentDispatched reports both messages were handed off.
type EnrollmentDispatched struct{ Generation uint64 }

// EnrollmentFailed reports a hand-off failure during enrollment.
type EnrollmentFailed struct {
	Err        error
	Generation uint64
}

// BackToStart is the "back" button of the enrollment form.
type BackToStart struct{}

func (EditAuth) Name() string               { return "edit_auth" }
func (EditCode) Name() string               { return "edit_code" }
func (EditEnrollment) Name() string         { return "edit_enrollment" }
func (SubmitCredentials) Name() string      { return "submit_credentials" }
func (ChooseEnrollment) Name() string       { return "choose_enrollment" }
func (SubmitCode) Name() string             { return "submit_code" }
func (CodeVerified) Name() string           { return "code_verified" }
func (CodeVerificationFailed) Name() string { return "code_verification_failed" }
func (Logout) Name() string                 { return "logout" }
func (SelectPayment) Name() string          { return "select_payment" }
func (CancelPayment) Name() string          { return "cancel_payment" }
func (ConfirmPayment) Name() string         { return "confirm_payment" }
func (PaymentHandedOff) Name() string       { return "payment_handed_off" }
func (PaymentFailed) Name() string          { return "payment_failed" }
func (SubmitEnrollment) Name() string       { return "submit_enrollment" }
func (EnrollmentDispatched) Name() string   { return "enrollment_dispatched" }
func (EnrollmentFailed) Name() string       { return "enrollment_failed" }
func (BackToStart) Name() string            { return "back_to_start" }

// Result is an event that resolves an Effect. It only applies to the
// session generation the effect was emitted in.
type Result interface {
	Event
	StartedIn() uint64
}

func (e CodeVerified) StartedIn() uint64           { return e.Generation }
func (e CodeVerificationFailed) StartedIn() uint64 { return e.Generation }
func (e PaymentHandedOff) StartedIn() uint64       { return e.Generation }
func (e PaymentFailed) StartedIn() uint64          { return e.Generation }
func (e EnrollmentDispatched) StartedIn() uint64   { return e.Generation }
func (e EnrollmentFailed) StartedIn() uint64       { return e.Generation }

// Effect is work the caller must perform after a transition.
type Effect interface {
	effect()
}

// VerifyCode asks the verification backend about Code.
type VerifyCode struct {
	Code       string
	Generation uint64
}

// CreatePreference asks the payment backend for a preference, then hands it off.
type CreatePreference struct {
	Payment    domain.Payment
	Generation uint64
}

// DispatchEnrollment sends the admin and user messages for Input.
type DispatchEnrollment struct {
	Input      domain.EnrollmentInput
	Generation uint64
}

func (VerifyCode) effect()         {}
func (CreatePreference) effect()   {}
func (DispatchEnrollment) effect() {}
