package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/semillero-service/internal/backend"
	"github.com/spec-kit/semillero-service/internal/domain"
	"github.com/spec-kit/semillero-service/internal/events"
	"github.com/spec-kit/semillero-service/internal/guard"
	"github.com/spec-kit/semillero-service/internal/handoff"
	"github.com/spec-kit/semillero-service/internal/observability"
	"github.com/spec-kit/semillero-service/internal/repository"
	"github.com/spec-kit/semillero-service/internal/workflow"
	apperrors "github.com/spec-kit/semillero-service/pkg/util/errorutil"
)

// Action names used for single-flight keys, metrics and logs.
const (
	ActionSubmitCode       = "submit_code"
	ActionConfirmPayment   = "confirm_payment"
	ActionSubmitEnrollment = "submit_enrollment"
)

// Catalog is the read-only dashboard content.
type Catalog struct {
	Announcements []domain.Announcement `json:"announcements"`
	Payments      []domain.Payment      `json:"payments"`
}

// SessionService drives sessions through the workflow and runs its effects.
type SessionService struct {
	store       *repository.SessionStore
	machine     *workflow.Machine
	verifier    backend.Verifier
	preferences backend.PreferenceCreator
	handoff     *handoff.Dispatcher
	guard       guard.Guard
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
	timeout     time.Duration

	watchMu  sync.RWMutex
	watchers []func(domain.Session)
}

// SessionDependencies bundles collaborators for the session service.
type SessionDependencies struct {
	Store       *repository.SessionStore
	Machine     *workflow.Machine
	Verifier    backend.Verifier
	Preferences backend.PreferenceCreator
	Handoff     *handoff.Dispatcher
	Guard       guard.Guard
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	// Timeout bounds each suspension point of a triggered action.
	Timeout time.Duration
}

// NewSessionService constructs the service.
func NewSessionService(deps SessionDependencies) *SessionService {
	if deps.Machine == nil {
		deps.Machine = workflow.New(nil)
	}
	if deps.Guard == nil {
		deps.Guard = guard.NewMemoryGuard()
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = events.NewInMemoryDispatcher()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Timeout <= 0 {
		deps.Timeout = 10 * time.Second
	}
	return &SessionService{
		store:       deps.Store,
		machine:     deps.Machine,
		verifier:    deps.Verifier,
		preferences: deps.Preferences,
		handoff:     deps.Handoff,
		guard:       deps.Guard,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		timeout:     deps.Timeout,
	}
}

// Watch registers fn to receive every session after it changes. fn must not block.
func (s *SessionService) Watch(fn func(domain.Session)) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	s.watchers = append(s.watchers, fn)
}

// Start opens a new session on the login screen.
func (s *SessionService) Start(_ context.Context) domain.Session {
	sess := s.store.Create(domain.NewSession(uuid.NewString()))
	s.logger.Info("session started", zap.String("session_id", sess.ID))
	s.notify(sess)
	return sess
}

// Get returns the current session.
func (s *SessionService) Get(_ context.Context, id string) (domain.Session, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return domain.Session{}, notFound(err)
	}
	return sess, nil
}

// Catalog returns the announcements and payment options.
func (s *SessionService) Catalog() Catalog {
	return Catalog{Announcements: domain.Announcements(), Payments: domain.Payments()}
}

// EditAuth replaces the login inputs.
func (s *SessionService) EditAuth(_ context.Context, id string, in domain.AuthInput) (domain.Session, error) {
	return s.apply(id, workflow.EditAuth{Input: in})
}

// SetVerificationCode replaces only the typed code, leaving the credentials as they are.
func (s *SessionService) SetVerificationCode(_ context.Context, id, code string) (domain.Session, error) {
	return s.apply(id, workflow.EditCode{Code: code})
}

// EditEnrollment replaces the enrollment form.
func (s *SessionService) EditEnrollment(_ context.Context, id string, in domain.EnrollmentInput) (domain.Session, error) {
	return s.apply(id, workflow.EditEnrollment{Input: in})
}

// SubmitCredentials validates the login form and moves to verification.
func (s *SessionService) SubmitCredentials(ctx context.Context, id string) (domain.Session, error) {
	sess, err := s.apply(id, workflow.SubmitCredentials{})
	s.logger.Debug("credentials submitted",
		zap.String("session_id", id),
		zap.Any("auth", sess.Auth.Redacted()),
		zap.Bool("accepted", err == nil))
	if err == nil {
		s.publish(ctx, id, events.EventLoginSubmitted, events.VerificationPayload{Email: sess.Auth.Email})
	}
	return sess, err
}

// ChooseEnrollment opens the enrollment form.
func (s *SessionService) ChooseEnrollment(_ context.Context, id string) (domain.Session, error) {
	return s.apply(id, workflow.ChooseEnrollment{})
}

// SubmitCode asks the verification backend about the typed code.
func (s *SessionService) SubmitCode(ctx context.Context, id string) (domain.Session, error) {
	return s.trigger(ctx, id, ActionSubmitCode, workflow.SubmitCode{})
}

// Logout returns to the login screen.
func (s *SessionService) Logout(_ context.Context, id string) (domain.Session, error) {
	return s.apply(id, workflow.Logout{})
}

// SelectPayment opens the confirmation overlay for a catalog entry.
func (s *SessionService) SelectPayment(_ context.Context, id string, paymentID int) (domain.Session, error) {
	payment, ok := domain.PaymentByID(paymentID)
	if !ok {
		return domain.Session{}, apperrors.NewNotFound("payment", map[string]any{"id": paymentID})
	}
	return s.apply(id, workflow.SelectPayment{Payment: payment})
}

// CancelPayment closes the confirmation overlay.
func (s *SessionService) CancelPayment(_ context.Context, id string) (domain.Session, error) {
	return s.apply(id, workflow.CancelPayment{})
}

// ConfirmPayment creates a preference and opens the payment app.
func (s *SessionService) ConfirmPayment(ctx context.Context, id string) (domain.Session, error) {
	return s.trigger(ctx, id, ActionConfirmPayment, workflow.ConfirmPayment{})
}

// SubmitEnrollment validates the form and messages the school and the guardian.
func (s *SessionService) SubmitEnrollment(ctx context.Context, id string) (domain.Session, error) {
	return s.trigger(ctx, id, ActionSubmitEnrollment, workflow.SubmitEnrollment{})
}

// BackToStart leaves the enrollment form.
func (s *SessionService) BackToStart(_ context.Context, id string) (domain.Session, error) {
	return s.apply(id, workflow.BackToStart{})
}

func (s *SessionService) apply(id string, ev workflow.Event) (domain.Session, error) {
	sess, _, err := s.applyWithEffects(id, ev)
	return sess, err
}

func (s *SessionService) applyWithEffects(id string, ev workflow.Event) (domain.Session, []workflow.Effect, error) {
	var (
		effects  []workflow.Effect
		applyErr error
	)
	sess, err := s.store.Update(id, func(cur domain.Session) domain.Session {
		var next domain.Session
		next, effects, applyErr = s.machine.Apply(cur, ev)
		return next
	})
	if err != nil {
		return domain.Session{}, nil, notFound(err)
	}
	s.notify(sess)
	return sess, effects, applyErr
}

// trigger runs an action that suspends. The session lock is released while
// effects run, the single-flight key is held for the whole action.
func (s *SessionService) trigger(ctx context.Context, id, action string, ev workflow.Event) (domain.Session, error) {
	release, err := s.guard.Acquire(ctx, id+":"+action)
	if err != nil {
		if errors.Is(err, guard.ErrInFlight) {
			s.metrics.RecordOutcome(action, "in_flight")
			cur, getErr := s.Get(ctx, id)
			if getErr != nil {
				return domain.Session{}, getErr
			}
			return cur, apperrors.NewInFlight(action)
		}
		return domain.Session{}, apperrors.NewInternalError(err)
	}
	defer release()

	sess, effects, err := s.applyWithEffects(id, ev)
	if err != nil {
		s.metrics.RecordOutcome(action, "rejected")
		return sess, err
	}

	for _, eff := range effects {
		result := s.run(ctx, id, eff)
		next, _, resultErr := s.applyWithEffects(id, result)
		if errors.Is(resultErr, workflow.ErrIllegalTransition) {
			s.logger.Warn("result arrived after the screen changed",
				zap.String("session_id", id),
				zap.String("action", action),
				zap.String("result", result.Name()),
				zap.Uint64("started_in", result.StartedIn()),
				zap.Uint64("generation", next.Generation))
			return next, apperrors.NewConflict("la pantalla cambió durante la operación", map[string]any{"result": result.Name()})
		}
		sess, err = next, resultErr
	}

	outcome := "ok"
	if err != nil {
		outcome = string(apperrors.KindOf(err))
	}
	s.metrics.RecordOutcome(action, outcome)
	return sess, err
}

func (s *SessionService) run(ctx context.Context, id string, eff workflow.Effect) workflow.Result {
	switch e := eff.(type) {
	case workflow.VerifyCode:
		return s.runVerify(ctx, id, e)
	case workflow.CreatePreference:
		return s.runPayment(ctx, id, e)
	case workflow.DispatchEnrollment:
		return s.runEnrollment(ctx, id, e)
	}
	return workflow.CodeVerificationFailed{Err: apperrors.NewInternalError(errors.New("unknown effect"))}
}

func (s *SessionService) runVerify(ctx context.Context, id string, e workflow.VerifyCode) workflow.Result {
	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	valid, err := s.verifier.Verify(opCtx, e.Code)
	if err != nil {
		s.logger.Warn("verification backend failed", zap.String("session_id", id), zap.Error(err))
		s.publish(ctx, id, events.EventCodeRejected, events.VerificationPayload{Error: err.Error()})
		return workflow.CodeVerificationFailed{
			Err:        apperrors.NewBackendError("VERIFICATION_UNAVAILABLE", "No se pudo verificar el código. Intente nuevamente.", err),
			Generation: e.Generation,
		}
	}
	if valid {
		s.publish(ctx, id, events.EventCodeVerified, events.VerificationPayload{})
	} else {
		s.publish(ctx, id, events.EventCodeRejected, events.VerificationPayload{Error: "code mismatch"})
	}
	return workflow.CodeVerified{Valid: valid, Generation: e.Generation}
}

func (s *SessionService) runPayment(ctx context.Context, id string, e workflow.CreatePreference) workflow.Result {
	payload := events.PaymentPayload{PaymentID: e.Payment.ID, Amount: e.Payment.Amount}

	prefCtx, cancel := context.WithTimeout(ctx, s.timeout)
	pref, err := s.preferences.CreatePreference(prefCtx, e.Payment)
	cancel()
	if err != nil {
		payload.Result, payload.Error = handoff.BothFailed.String(), err.Error()
		s.publish(ctx, id, events.EventPaymentFailed, payload)
		return workflow.PaymentFailed{
			Err:        apperrors.NewBackendError("PREFERENCE_FAILED", "No se pudo procesar el pago. Intente nuevamente.", err),
			Generation: e.Generation,
		}
	}
	payload.PreferenceID = pref.ID

	openCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	result, err := s.handoff.OpenPayment(openCtx, pref.ID)
	payload.Result = result.String()
	if err != nil {
		payload.Error = err.Error()
		s.publish(ctx, id, events.EventPaymentFailed, payload)
		return workflow.PaymentFailed{Err: err, Generation: e.Generation}
	}

	s.logger.Info("payment handed off",
		zap.String("session_id", id),
		zap.String("preference_id", pref.ID),
		zap.Stringer("result", result))
	s.metrics.RecordOutcome(ActionConfirmPayment, "handoff_"+result.String())
	s.publish(ctx, id, events.EventPaymentHandedOff, payload)
	return workflow.PaymentHandedOff{PreferenceID: pref.ID, Generation: e.Generation}
}

func (s *SessionService) runEnrollment(ctx context.Context, id string, e workflow.DispatchEnrollment) workflow.Result {
	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	payload := events.EnrollmentPayload{StudentName: e.Input.StudentName, ParentName: e.Input.ParentName}
	if err := s.handoff.SendEnrollment(opCtx, e.Input); err != nil {
		var sendErr *handoff.SendError
		if errors.As(err, &sendErr) {
			payload.Step, payload.AdminSent = string(sendErr.Step), sendErr.AdminSent
		}
		payload.Error = err.Error()
		s.logger.Warn("enrollment hand-off failed", zap.String("session_id", id), zap.Error(err))
		s.publish(ctx, id, events.EventEnrollmentFailed, payload)
		return workflow.EnrollmentFailed{Err: err, Generation: e.Generation}
	}
	payload.AdminSent = true
	s.publish(ctx, id, events.EventEnrollmentDispatched, payload)
	return workflow.EnrollmentDispatched{Generation: e.Generation}
}

func (s *SessionService) publish(ctx context.Context, id string, eventType events.EventType, payload interface{}) {
	err := s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SessionID: id,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

func (s *SessionService) notify(sess domain.Session) {
	s.watchMu.RLock()
	watchers := append([]func(domain.Session){}, s.watchers...)
	s.watchMu.RUnlock()
	for _, fn := range watchers {
		fn(sess)
	}
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrSessionNotFound) {
		return apperrors.NewNotFound("session", nil)
	}
	return apperrors.NewInternalError(err)
}
