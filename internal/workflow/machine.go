// Package workflow holds the screen state machine as a pure reducer.
package workflow

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spec-kit/semillero-service/internal/domain"
	"github.com/spec-kit/semillero-service/internal/handoff"
	"github.com/spec-kit/semillero-service/internal/validation"
	apperrors "github.com/spec-kit/semillero-service/pkg/util/errorutil"
)

// ErrIllegalTransition is wrapped by errors for events the current screen does not accept.
var ErrIllegalTransition = errors.New("illegal transition")

// Error codes produced by the reducer.
const (
	CodeIllegalTransition = "ILLEGAL_TRANSITION"
	CodeNoPaymentSelected = "NO_PAYMENT_SELECTED"
	CodeCodeRejected      = "CODE_REJECTED"
)

// legalEvents lists, per screen, the events that screen accepts.
var legalEvents = map[domain.Screen]map[string]bool{
	domain.ScreenLogin: {
		EditAuth{}.Name():          true,
		SubmitCredentials{}.Name(): true,
		ChooseEnrollment{}.Name():  true,
	},
	domain.ScreenVerify: {
		EditAuth{}.Name():               true,
		EditCode{}.Name():               true,
		SubmitCode{}.Name():             true,
		CodeVerified{}.Name():           true,
		CodeVerificationFailed{}.Name(): true,
	},
	domain.ScreenDashboard: {
		Logout{}.Name():           true,
		SelectPayment{}.Name():    true,
		CancelPayment{}.Name():    true,
		ConfirmPayment{}.Name():   true,
		PaymentHandedOff{}.Name(): true,
		PaymentFailed{}.Name():    true,
	},
	domain.ScreenInscription: {
		EditEnrollment{}.Name():       true,
		SubmitEnrollment{}.Name():     true,
		EnrollmentDispatched{}.Name(): true,
		EnrollmentFailed{}.Name():     true,
		BackToStart{}.Name():          true,
	},
}

// Machine applies events to sessions.
type Machine struct {
	forms *validation.Validator
}

// New builds a Machine validating forms with v.
func New(v *validation.Validator) *Machine {
	if v == nil {
		v = validation.New()
	}
	return &Machine{forms: v}
}

// Allowed reports whether screen accepts ev.
func Allowed(screen domain.Screen, ev Event) bool {
	return legalEvents[screen][ev.Name()]
}

// Apply returns the session after ev and the effects the caller must run.
// An illegal event, or a Result from an earlier generation, returns s unchanged
// with an error wrapping ErrIllegalTransition.
// Any other non-nil error describes a failure already recorded in the returned session.
func (m *Machine) Apply(s domain.Session, ev Event) (domain.Session, []Effect, error) {
	if !Allowed(s.Screen, ev) {
		return s, nil, illegal(s.Screen, ev)
	}
	if r, ok := ev.(Result); ok && r.StartedIn() != s.Generation {
		return s, nil, stale(s, r)
	}

	next := s
	next.Notice = nil

	switch e := ev.(type) {
	case EditAuth:
		next.Auth = e.Input
	case EditCode:
		next.Auth.VerificationCode = e.Code
	case EditEnrollment:
		next.Enrollment = e.Input
		if next.Enrollment.Gender == "" {
			next.Enrollment.Gender = domain.GenderMale
		}

	case SubmitCredentials:
		next.Errors = m.forms.ValidateAuth(next.Auth)
		if !next.Errors.OK() {
			return next, nil, apperrors.NewValidationError("credenciales inválidas", next.Errors.Details())
		}
		next.Notice = &domain.Notice{
			Kind:    domain.NoticeSuccess,
			Title:   "Código Enviado",
			Message: "Se ha enviado un código de verificación a tu correo",
		}
		moveTo(&next, domain.ScreenVerify)
	case ChooseEnrollment:
		moveTo(&next, domain.ScreenInscription)

	case SubmitCode:
		next.Errors = m.forms.ValidateCode(next.Auth)
		if !next.Errors.OK() {
			return next, nil, apperrors.NewValidationError("código inválido", next.Errors.Details())
		}
		return next, []Effect{VerifyCode{Code: next.Auth.VerificationCode, Generation: next.Generation}}, nil
	case CodeVerified:
		if !e.Valid {
			next.Notice = errorNotice("Código de verificación incorrecto")
			return next, nil, apperrors.NewDomainError(CodeCodeRejected, apperrors.KindValidation,
				"Código de verificación incorrecto", http.StatusUnprocessableEntity, nil)
		}
		moveTo(&next, domain.ScreenDashboard)
	case CodeVerificationFailed:
		next.Notice = errorNotice("No se pudo verificar el código. Intente nuevamente.")
		return next, nil, apperrors.MapError(e.Err)

	case Logout:
		next.Auth = domain.AuthInput{}
		closePayment(&next)
		moveTo(&next, domain.ScreenLogin)
	case SelectPayment:
		if e.Payment == nil {
			return s, nil, apperrors.NewNotFound("payment", nil)
		}
		closePayment(&next)
		next.SelectedPayment = e.Payment
		next.PaymentModalOpen = true
	case CancelPayment:
		closePayment(&next)
	case ConfirmPayment:
		if next.SelectedPayment == nil {
			next.Notice = errorNotice("No se ha seleccionado un método de pago")
			return next, nil, apperrors.NewDomainError(CodeNoPaymentSelected, apperrors.KindValidation,
				"No se ha seleccionado un método de pago", http.StatusUnprocessableEntity, nil)
		}
		return next, []Effect{CreatePreference{Payment: *next.SelectedPayment, Generation: next.Generation}}, nil
	case PaymentHandedOff:
		closePayment(&next)
	case PaymentFailed:
		next.Notice = errorNotice(paymentFailureMessage(e.Err))
		return next, nil, apperrors.MapError(e.Err)

	case SubmitEnrollment:
		next.Errors = m.forms.ValidateEnrollment(next.Enrollment)
		if !next.Errors.OK() {
			return next, nil, apperrors.NewValidationError("inscripción inválida", next.Errors.Details())
		}
		return next, []Effect{DispatchEnrollment{Input: next.Enrollment, Generation: next.Generation}}, nil
	case EnrollmentDispatched:
		next.Enrollment = domain.NewEnrollmentInput()
		moveTo(&next, domain.ScreenLogin)
		next.Notice = &domain.Notice{
			Kind:    domain.NoticeSuccess,
			Title:   "¡Inscripción Exitosa!",
			Message: "Los mensajes de WhatsApp se abrirán automáticamente",
		}
	case EnrollmentFailed:
		next.Notice = errorNotice(enrollmentFailureMessage(e.Err))
		return next, nil, apperrors.MapError(e.Err)
	case BackToStart:
		moveTo(&next, domain.ScreenLogin)

	default:
		return s, nil, illegal(s.Screen, ev)
	}

	return next, nil, nil
}

func moveTo(s *domain.Session, screen domain.Screen) {
	s.Screen = screen
	s.Errors = domain.ErrorMap{}
	s.Generation++
}

func closePayment(s *domain.Session) {
	s.SelectedPayment = nil
	s.PaymentModalOpen = false
	s.Generation++
}

func errorNotice(message string) *domain.Notice {
	return &domain.Notice{Kind: domain.NoticeError, Title: "Error", Message: message}
}

func paymentFailureMessage(err error) string {
	switch apperrors.KindOf(err) {
	case apperrors.KindBackend, apperrors.KindHandoff, apperrors.KindValidation:
		return apperrors.ToDomainError(err).Message
	}
	return "No se pudo procesar el pago. Intente nuevamente."
}

func enrollmentFailureMessage(err error) string {
	if apperrors.CodeOf(err) == handoff.CodeUnavailable {
		return "Asegúrate de tener WhatsApp instalado"
	}
	switch apperrors.KindOf(err) {
	case apperrors.KindBackend, apperrors.KindHandoff, apperrors.KindValidation:
		return apperrors.ToDomainError(err).Message
	}
	return "Asegúrate de tener WhatsApp instalado"
}

func stale(s domain.Session, r Result) error {
	return &apperrors.DomainError{
		Code:       CodeIllegalTransition,
		Kind:       apperrors.KindValidation,
		Message:    fmt.Sprintf("%s belongs to an earlier visit of the %s screen", r.Name(), s.Screen),
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"screen":     string(s.Screen),
			"event":      r.Name(),
			"generation": s.Generation,
			"started_in": r.StartedIn(),
		},
		Err: ErrIllegalTransition,
	}
}

func illegal(screen domain.Screen, ev Event) error {
	return &apperrors.DomainError{
		Code:       CodeIllegalTransition,
		Kind:       apperrors.KindValidation,
		Message:    fmt.Sprintf("%s not allowed on %s screen", ev.Name(), screen),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"screen": string(screen), "event": ev.Name()},
		Err:        ErrIllegalTransition,
	}
}
