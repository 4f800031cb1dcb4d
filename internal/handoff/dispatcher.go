// Package handoff opens the payment and messaging apps through deep links.
package handoff

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/semillero-service/internal/domain"
	"github.com/spec-kit/semillero-service/internal/validation"
	apperrors "github.com/spec-kit/semillero-service/pkg/util/errorutil"
)

// Error codes for failed hand-offs.
const (
	CodeUnavailable       = "HANDOFF_UNAVAILABLE"
	CodeFailed            = "HANDOFF_FAILED"
	CodeInterrupted       = "HANDOFF_INTERRUPTED"
	CodePhoneInvalid      = "PHONE_INVALID"
	CodePreferenceMissing = "PREFERENCE_MISSING"
)

// Result is the outcome of a link with a fallback.
type Result int

const (
	BothFailed Result = iota
	PrimarySucceeded
	FallbackSucceeded
)

func (r Result) String() string {
	switch r {
	case PrimarySucceeded:
		return "primary"
	case FallbackSucceeded:
		return "fallback"
	default:
		return "failed"
	}
}

// Step names the enrollment message that failed.
type Step string

const (
	StepValidate Step = "validate"
	StepAdmin    Step = "admin"
	StepDelay    Step = "delay"
	StepUser     Step = "user"
)

// SendError reports where an enrollment hand-off stopped. Messages sent
// before Step are not retracted.
type SendError struct {
	Step      Step
	AdminSent bool
	Err       error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("enrollment %s step: %v", e.Step, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// Options configures a Dispatcher.
type Options struct {
	AdminPhone  string
	CountryCode string
	// Delay separates the admin and user messages so the host does not drop the second one.
	Delay time.Duration
	// Validator, when set, re-checks the form so SendEnrollment is safe to call on its own.
	Validator *validation.Validator
	Logger    *zap.Logger
}

// Dispatcher composes links and hands them to an Opener.
type Dispatcher struct {
	opener      Opener
	adminPhone  string
	countryCode string
	delay       time.Duration
	forms       *validation.Validator
	logger      *zap.Logger
}

// NewDispatcher builds a dispatcher.
func NewDispatcher(opener Opener, opts Options) *Dispatcher {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.AdminPhone == "" {
		opts.AdminPhone = "543624200637"
	}
	if opts.CountryCode == "" {
		opts.CountryCode = "54"
	}
	return &Dispatcher{
		opener:      opener,
		adminPhone:  opts.AdminPhone,
		countryCode: opts.CountryCode,
		delay:       opts.Delay,
		forms:       opts.Validator,
		logger:      opts.Logger,
	}
}

// OpenPayment opens the payment app, then its web checkout if the app is unavailable.
func (d *Dispatcher) OpenPayment(ctx context.Context, preferenceID string) (Result, error) {
	if preferenceID == "" {
		return BothFailed, apperrors.NewBackendError(CodePreferenceMissing, "No se pudo obtener el ID de preferencia", nil)
	}
	primary, fallback := PaymentLinks(preferenceID)

	primaryErr := d.opener.Open(ctx, primary)
	if primaryErr == nil {
		return PrimarySucceeded, nil
	}
	d.logger.Warn("payment app unavailable, trying web checkout",
		zap.String("preference_id", preferenceID), zap.Error(primaryErr))

	fallbackErr := d.opener.Open(ctx, fallback)
	if fallbackErr == nil {
		return FallbackSucceeded, nil
	}

	cause := errors.Join(primaryErr, fallbackErr)
	if errors.Is(primaryErr, ErrNoHandler) && errors.Is(fallbackErr, ErrNoHandler) {
		return BothFailed, apperrors.NewHandoffError(CodeUnavailable, "No se pudo abrir Mercado Pago", cause)
	}
	return BothFailed, apperrors.NewHandoffError(CodeFailed, "No se pudo procesar el pago. Intente nuevamente.", cause)
}

// SendEnrollment messages the school first and, after the configured delay, the guardian.
func (d *Dispatcher) SendEnrollment(ctx context.Context, in domain.EnrollmentInput) error {
	if d.forms != nil {
		if errs := d.forms.ValidateEnrollment(in); !errs.OK() {
			return &SendError{Step: StepValidate, Err: apperrors.NewValidationError("inscripción inválida", errs.Details())}
		}
	}
	digits := StripNonDigits(in.PhoneNumber)
	if len(digits) != 10 {
		return &SendError{Step: StepValidate, Err: apperrors.NewDomainError(CodePhoneInvalid, apperrors.KindValidation,
			"El número de teléfono debe tener 10 dígitos", http.StatusUnprocessableEntity, nil)}
	}

	adminLink := WhatsAppLink(d.adminPhone, EncodeURIComponent(AdminMessage(in, digits)))
	userLink := WhatsAppLink(d.countryCode+digits, EncodeURIComponent(UserMessage(in)))

	if err := d.opener.Open(ctx, adminLink); err != nil {
		return &SendError{Step: StepAdmin, Err: messagingError(err)}
	}
	d.logger.Info("enrollment sent to admin", zap.String("student", in.StudentName))

	if err := sleep(ctx, d.delay); err != nil {
		return &SendError{Step: StepDelay, AdminSent: true, Err: messagingError(err)}
	}

	if err := d.opener.Open(ctx, userLink); err != nil {
		d.logger.Warn("guardian message failed after admin message went out", zap.Error(err))
		return &SendError{Step: StepUser, AdminSent: true, Err: messagingError(err)}
	}
	return nil
}

func messagingError(err error) error {
	switch {
	case errors.Is(err, ErrNoHandler):
		return apperrors.NewHandoffError(CodeUnavailable, "Asegúrate de tener WhatsApp instalado", err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apperrors.NewHandoffError(CodeInterrupted, "El envío de WhatsApp fue interrumpido. Intente nuevamente.", err)
	}
	return apperrors.NewHandoffError(CodeFailed, "No se pudo enviar el mensaje de WhatsApp", err)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
