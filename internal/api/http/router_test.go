package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/semillero-service/internal/api/dto"
	"github.com/spec-kit/semillero-service/internal/api/http/handlers"
	"github.com/spec-kit/semillero-service/internal/auth"
	"github.com/spec-kit/semillero-service/internal/backend"
	"github.com/spec-kit/semillero-service/internal/events"
	"github.com/spec-kit/semillero-service/internal/handoff"
	"github.com/spec-kit/semillero-service/internal/observability"
	"github.com/spec-kit/semillero-service/internal/repository"
	"github.com/spec-kit/semillero-service/internal/service"
	"github.com/spec-kit/semillero-service/internal/validation"
	"github.com/spec-kit/semillero-service/internal/workflow"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Kind    string         `json:"kind"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type testServer struct {
	app    *fiber.App
	opener *handoff.RecordingOpener
}

func newTestServer(t *testing.T, attempts int) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	forms := validation.New()

	verifier, err := backend.NewSimulatedVerifier("123456", 0, 4)
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	store := repository.NewSessionStore(time.Minute, 0)
	t.Cleanup(store.Stop)

	opener := handoff.NewRecordingOpener(logger)
	dispatcher := events.NewInMemoryDispatcher()
	audit := service.NewAuditService(dispatcher, nil, logger)
	audit.RegisterHandlers()

	sessions := service.NewSessionService(service.SessionDependencies{
		Store:       store,
		Machine:     workflow.New(forms),
		Verifier:    verifier,
		Preferences: backend.NewSimulatedPreferences(0),
		Handoff:     handoff.NewDispatcher(opener, handoff.Options{Validator: forms, Logger: logger}),
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
		Timeout:     time.Second,
	})
	tokens := auth.NewTokenManager("test-secret", 5)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:            handlers.NewHealthHandler("semillero-service", "test", nil),
		Metrics:           handlers.NewMetricsHandler(metrics, store.Len),
		Session:           handlers.NewSessionHandler(sessions, audit, tokens),
		Auth:              auth.NewSessionMiddleware(tokens, sessions),
		AttemptsPerMinute: attempts,
	})
	return &testServer{app: app, opener: opener}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode, env
}

func (s *testServer) start(t *testing.T) string {
	t.Helper()
	status, env := s.do(t, fiber.MethodPost, "/sessions", "", nil)
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}
	var started dto.StartSessionResponse
	if err := json.Unmarshal(env.Data, &started); err != nil {
		t.Fatal(err)
	}
	if started.Token == "" || started.Session.Screen != "login" {
		t.Fatalf("unexpected start response %+v", started)
	}
	return started.Token
}

func session(t *testing.T, env envelope) dto.SessionResponse {
	t.Helper()
	var sess dto.SessionResponse
	if err := json.Unmarshal(env.Data, &sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return sess
}

func TestHealthAndCatalog(t *testing.T) {
	s := newTestServer(t, 0)

	if status, _ := s.do(t, fiber.MethodGet, "/health/live", "", nil); status != fiber.StatusOK {
		t.Fatalf("live: %d", status)
	}
	if status, _ := s.do(t, fiber.MethodGet, "/health/ready", "", nil); status != fiber.StatusOK {
		t.Fatalf("ready: %d", status)
	}

	status, env := s.do(t, fiber.MethodGet, "/catalog", "", nil)
	if status != fiber.StatusOK {
		t.Fatalf("catalog: %d", status)
	}
	var catalog service.Catalog
	if err := json.Unmarshal(env.Data, &catalog); err != nil {
		t.Fatal(err)
	}
	if len(catalog.Payments) != 3 || catalog.Payments[1].Amount != 10000 {
		t.Fatalf("unexpected catalog %+v", catalog)
	}
}

func TestCurrentRequiresToken(t *testing.T) {
	s := newTestServer(t, 0)
	status, env := s.do(t, fiber.MethodGet, "/sessions/current", "", nil)
	if status != fiber.StatusUnauthorized || env.Error == nil || env.Error.Code != "UNAUTHORIZED" {
		t.Fatalf("expected 401 UNAUTHORIZED, got %d %+v", status, env.Error)
	}

	status, _ = s.do(t, fiber.MethodGet, "/sessions/current", "garbage", nil)
	if status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
}

func TestLoginVerifyAndPay(t *testing.T) {
	s := newTestServer(t, 0)
	token := s.start(t)

	status, env := s.do(t, fiber.MethodPost, "/sessions/current/login", token,
		dto.AuthRequest{Email: "a@b.com", Password: "secret1"})
	if status != fiber.StatusOK {
		t.Fatalf("login: %d %+v", status, env.Error)
	}
	sess := session(t, env)
	if sess.Screen != "verify" || !sess.Auth.PasswordSet || sess.Notice == nil {
		t.Fatalf("unexpected session %+v", sess)
	}
	if strings.Contains(string(env.Data), "secret1") {
		t.Fatal("password must not be rendered")
	}

	code := "000000"
	status, env = s.do(t, fiber.MethodPost, "/sessions/current/verify", token, dto.VerifyRequest{Code: &code})
	if status != fiber.StatusUnprocessableEntity || env.Error.Code != workflow.CodeCodeRejected {
		t.Fatalf("expected rejected code, got %d %+v", status, env.Error)
	}
	if session(t, env).Screen != "verify" {
		t.Fatal("wrong code keeps the verify screen")
	}

	code = "123456"
	status, env = s.do(t, fiber.MethodPost, "/sessions/current/verify", token, dto.VerifyRequest{Code: &code})
	if status != fiber.StatusOK || session(t, env).Screen != "dashboard" {
		t.Fatalf("expected dashboard, got %d %+v", status, env.Error)
	}

	status, env = s.do(t, fiber.MethodPost, "/sessions/current/payments/2", token, nil)
	if status != fiber.StatusOK || !session(t, env).PaymentModalOpen {
		t.Fatalf("expected open modal, got %d %+v", status, env.Error)
	}

	status, env = s.do(t, fiber.MethodPost, "/sessions/current/payment/confirm", token, nil)
	if status != fiber.StatusOK {
		t.Fatalf("confirm: %d %+v", status, env.Error)
	}
	if sess := session(t, env); sess.PaymentModalOpen || sess.SelectedPayment != nil {
		t.Fatalf("expected closed modal, got %+v", sess)
	}
	opened := s.opener.Opened()
	if len(opened) != 1 || !strings.HasPrefix(opened[0], "mercadopago://app?preference_id=TEST-") {
		t.Fatalf("expected one payment link, got %v", opened)
	}

	status, env = s.do(t, fiber.MethodPost, "/sessions/current/logout", token, nil)
	if status != fiber.StatusOK || session(t, env).Screen != "login" {
		t.Fatalf("logout: %d", status)
	}
}

func TestVerifyCodeKeepsEditedCredentials(t *testing.T) {
	s := newTestServer(t, 0)
	token := s.start(t)

	s.do(t, fiber.MethodPost, "/sessions/current/login", token, dto.AuthRequest{Email: "a@b.com", Password: "secret1"})
	status, env := s.do(t, fiber.MethodPut, "/sessions/current/auth", token,
		dto.AuthRequest{Email: "otro@b.com", Password: "secret2"})
	if status != fiber.StatusOK {
		t.Fatalf("edit auth: %d %+v", status, env.Error)
	}

	status, env = s.do(t, fiber.MethodPost, "/sessions/current/verify", token, nil)
	if status != fiber.StatusUnprocessableEntity || env.Error.Code != "VALIDATION_FAILED" {
		t.Fatalf("expected missing code, got %d %+v", status, env.Error)
	}
	if session(t, env).Errors["verificationCode"] == "" {
		t.Fatalf("expected code error, got %v", session(t, env).Errors)
	}

	code := "000000"
	_, env = s.do(t, fiber.MethodPost, "/sessions/current/verify", token, dto.VerifyRequest{Code: &code})
	sess := session(t, env)
	if sess.Auth.Email != "otro@b.com" || !sess.Auth.PasswordSet || sess.Auth.VerificationCode != code {
		t.Fatalf("code must be set without touching the credentials, got %+v", sess.Auth)
	}
}

func TestLoginValidationErrors(t *testing.T) {
	s := newTestServer(t, 0)
	token := s.start(t)

	status, env := s.do(t, fiber.MethodPost, "/sessions/current/login", token,
		dto.AuthRequest{Email: "nope", Password: "1"})
	if status != fiber.StatusUnprocessableEntity || env.Error.Kind != "validation" {
		t.Fatalf("expected 422 validation, got %d %+v", status, env.Error)
	}
	sess := session(t, env)
	if sess.Errors["email"] != "Correo inválido" || sess.Errors["password"] != "Mínimo 6 caracteres" {
		t.Fatalf("unexpected errors %v", sess.Errors)
	}
}

func TestIllegalTransition(t *testing.T) {
	s := newTestServer(t, 0)
	token := s.start(t)

	status, env := s.do(t, fiber.MethodPost, "/sessions/current/payment/confirm", token, nil)
	if status != fiber.StatusConflict || env.Error.Code != workflow.CodeIllegalTransition {
		t.Fatalf("expected 409 illegal transition, got %d %+v", status, env.Error)
	}
	if session(t, env).Screen != "login" {
		t.Fatal("screen must not change")
	}
}

func TestEnrollment(t *testing.T) {
	s := newTestServer(t, 0)
	token := s.start(t)

	if status, _ := s.do(t, fiber.MethodPost, "/sessions/current/enrollment/open", token, nil); status != fiber.StatusOK {
		t.Fatalf("open: %d", status)
	}

	status, env := s.do(t, fiber.MethodPost, "/sessions/current/enrollment", token, dto.EnrollmentRequest{
		StudentName: "Juan Pérez",
		Age:         "8",
		ParentName:  "María Pérez",
		PhoneNumber: "3624123456",
	})
	if status != fiber.StatusOK {
		t.Fatalf("submit: %d %+v", status, env.Error)
	}
	sess := session(t, env)
	if sess.Screen != "login" || sess.Enrollment.StudentName != "" {
		t.Fatalf("expected reset form on login, got %+v", sess)
	}
	if opened := s.opener.Opened(); len(opened) != 2 {
		t.Fatalf("expected two WhatsApp links, got %v", opened)
	}

	status, env = s.do(t, fiber.MethodGet, "/sessions/current/history", token, nil)
	if status != fiber.StatusOK {
		t.Fatalf("history: %d", status)
	}
	var history []dto.AuditEntry
	if err := json.Unmarshal(env.Data, &history); err != nil {
		t.Fatal(err)
	}
	if len(history) != 0 {
		t.Fatalf("audit trail is disabled without postgres, got %v", history)
	}
}

func TestEnrollmentBack(t *testing.T) {
	s := newTestServer(t, 0)
	token := s.start(t)
	s.do(t, fiber.MethodPost, "/sessions/current/enrollment/open", token, nil)

	status, env := s.do(t, fiber.MethodPut, "/sessions/current/enrollment", token, dto.EnrollmentRequest{Age: "diez"})
	if status != fiber.StatusOK || session(t, env).Enrollment.Age != "diez" {
		t.Fatalf("edit: %d", status)
	}
	status, env = s.do(t, fiber.MethodPost, "/sessions/current/back", token, nil)
	if status != fiber.StatusOK || session(t, env).Screen != "login" {
		t.Fatalf("back: %d", status)
	}
}

func TestSelectPaymentBadID(t *testing.T) {
	s := newTestServer(t, 0)
	token := s.start(t)
	status, env := s.do(t, fiber.MethodPost, "/sessions/current/payments/abc", token, nil)
	if status != fiber.StatusUnprocessableEntity || env.Error.Code != "VALIDATION_FAILED" {
		t.Fatalf("expected 422, got %d %+v", status, env.Error)
	}
}

func TestLoginRateLimited(t *testing.T) {
	s := newTestServer(t, 2)
	token := s.start(t)
	body := dto.AuthRequest{Email: "bad", Password: "1"}

	for i := 0; i < 2; i++ {
		if status, _ := s.do(t, fiber.MethodPost, "/sessions/current/login", token, body); status != fiber.StatusUnprocessableEntity {
			t.Fatalf("attempt %d: expected 422, got %d", i, status)
		}
	}
	status, env := s.do(t, fiber.MethodPost, "/sessions/current/login", token, body)
	if status != fiber.StatusTooManyRequests || env.Error.Code != "RATE_LIMITED" {
		t.Fatalf("expected 429, got %d %+v", status, env.Error)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, 0)
	s.start(t)
	status, env := s.do(t, fiber.MethodGet, "/metrics", "", nil)
	if status != fiber.StatusOK {
		t.Fatalf("metrics: %d", status)
	}
	var body struct {
		ActiveSessions int                           `json:"active_sessions"`
		Counters       observability.MetricsSnapshot `json:"counters"`
	}
	if err := json.Unmarshal(env.Data, &body); err != nil {
		t.Fatal(err)
	}
	if body.ActiveSessions != 1 {
		t.Fatalf("expected one active session, got %+v", body)
	}
	var created int64
	for key, n := range body.Counters.Requests {
		if strings.HasSuffix(key, "|POST|201") {
			created += n
		}
	}
	if created != 1 {
		t.Fatalf("expected one recorded POST, got %v", body.Counters.Requests)
	}
}
