package handlers

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/semillero-service/internal/api/dto"
	"github.com/spec-kit/semillero-service/internal/auth"
	"github.com/spec-kit/semillero-service/internal/domain"
	"github.com/spec-kit/semillero-service/internal/service"
	apperrors "github.com/spec-kit/semillero-service/pkg/util/errorutil"
)

const historyLimit = 50

// SessionHandler exposes the session workflow to a shell.
type SessionHandler struct {
	service *service.SessionService
	audit   *service.AuditService
	tokens  *auth.TokenManager
}

// NewSessionHandler constructs handler.
func NewSessionHandler(sessions *service.SessionService, audit *service.AuditService, tokens *auth.TokenManager) *SessionHandler {
	return &SessionHandler{service: sessions, audit: audit, tokens: tokens}
}

// Start POST /sessions.
func (h *SessionHandler) Start(c *fiber.Ctx) error {
	sess := h.service.Start(c.UserContext())
	token, expiresAt, err := h.tokens.GenerateToken(sess.ID)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.StartSessionResponse{
		Session:   dto.NewSessionResponse(sess),
		Token:     token,
		ExpiresAt: expiresAt,
	}})
}

// Current GET /sessions/current.
func (h *SessionHandler) Current(c *fiber.Ctx) error {
	sess, err := h.service.Get(c.UserContext(), sessionID(c))
	return respond(c, sess, err)
}

// Catalog GET /catalog.
func (h *SessionHandler) Catalog(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.service.Catalog()})
}

// EditAuth PUT /sessions/current/auth.
func (h *SessionHandler) EditAuth(c *fiber.Ctx) error {
	var req dto.AuthRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	sess, err := h.service.EditAuth(c.UserContext(), sessionID(c), req.ToAuthInput())
	return respond(c, sess, err)
}

// Login POST /sessions/current/login. A body replaces the inputs first.
func (h *SessionHandler) Login(c *fiber.Ctx) error {
	ctx, id := c.UserContext(), sessionID(c)
	if len(c.Body()) > 0 {
		var req dto.AuthRequest
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
		if sess, err := h.service.EditAuth(ctx, id, req.ToAuthInput()); err != nil {
			return respond(c, sess, err)
		}
	}
	sess, err := h.service.SubmitCredentials(ctx, id)
	return respond(c, sess, err)
}

// OpenEnrollment POST /sessions/current/enrollment/open.
func (h *SessionHandler) OpenEnrollment(c *fiber.Ctx) error {
	sess, err := h.service.ChooseEnrollment(c.UserContext(), sessionID(c))
	return respond(c, sess, err)
}

// Verify POST /sessions/current/verify.
func (h *SessionHandler) Verify(c *fiber.Ctx) error {
	ctx, id := c.UserContext(), sessionID(c)
	if len(c.Body()) > 0 {
		var req dto.VerifyRequest
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
		if req.Code != nil {
			if sess, err := h.service.SetVerificationCode(ctx, id, *req.Code); err != nil {
				return respond(c, sess, err)
			}
		}
	}
	sess, err := h.service.SubmitCode(ctx, id)
	return respond(c, sess, err)
}

// Logout POST /sessions/current/logout.
func (h *SessionHandler) Logout(c *fiber.Ctx) error {
	sess, err := h.service.Logout(c.UserContext(), sessionID(c))
	return respond(c, sess, err)
}

// SelectPayment POST /sessions/current/payments/:id.
func (h *SessionHandler) SelectPayment(c *fiber.Ctx) error {
	paymentID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return apperrors.NewValidationError("invalid payment id", map[string]any{"id": c.Params("id")})
	}
	sess, err := h.service.SelectPayment(c.UserContext(), sessionID(c), paymentID)
	return respond(c, sess, err)
}

// CancelPayment DELETE /sessions/current/payment.
func (h *SessionHandler) CancelPayment(c *fiber.Ctx) error {
	sess, err := h.service.CancelPayment(c.UserContext(), sessionID(c))
	return respond(c, sess, err)
}

// ConfirmPayment POST /sessions/current/payment/confirm.
func (h *SessionHandler) ConfirmPayment(c *fiber.Ctx) error {
	sess, err := h.service.ConfirmPayment(c.UserContext(), sessionID(c))
	return respond(c, sess, err)
}

// EditEnrollment PUT /sessions/current/enrollment.
func (h *SessionHandler) EditEnrollment(c *fiber.Ctx) error {
	var req dto.EnrollmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	sess, err := h.service.EditEnrollment(c.UserContext(), sessionID(c), req.ToEnrollmentInput())
	return respond(c, sess, err)
}

// SubmitEnrollment POST /sessions/current/enrollment. A body replaces the form first.
func (h *SessionHandler) SubmitEnrollment(c *fiber.Ctx) error {
	ctx, id := c.UserContext(), sessionID(c)
	if len(c.Body()) > 0 {
		var req dto.EnrollmentRequest
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
		if sess, err := h.service.EditEnrollment(ctx, id, req.ToEnrollmentInput()); err != nil {
			return respond(c, sess, err)
		}
	}
	sess, err := h.service.SubmitEnrollment(ctx, id)
	return respond(c, sess, err)
}

// Back POST /sessions/current/back.
func (h *SessionHandler) Back(c *fiber.Ctx) error {
	sess, err := h.service.BackToStart(c.UserContext(), sessionID(c))
	return respond(c, sess, err)
}

// History GET /sessions/current/history.
func (h *SessionHandler) History(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", historyLimit)
	if limit <= 0 || limit > historyLimit {
		limit = historyLimit
	}
	entries, err := h.audit.History(c.UserContext(), sessionID(c), limit)
	if err != nil {
		return apperrors.MapError(err)
	}
	items := make([]dto.AuditEntry, 0, len(entries))
	for _, e := range entries {
		var payload any
		if len(e.Payload) > 0 {
			_ = json.Unmarshal(e.Payload, &payload)
		}
		items = append(items, dto.AuditEntry{
			EventID:   e.EventID,
			EventType: e.EventType,
			Payload:   payload,
			CreatedAt: e.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func sessionID(c *fiber.Ctx) string {
	id, _ := auth.SessionIDFromContext(c)
	return id
}

// respond renders the session even when the action failed, so the shell can
// show the recorded errors and notice alongside the error body.
func respond(c *fiber.Ctx, sess domain.Session, err error) error {
	if err == nil {
		return c.JSON(fiber.Map{"data": dto.NewSessionResponse(sess)})
	}
	if sess.ID == "" {
		return err
	}
	domainErr := apperrors.ToDomainError(err)
	body := fiber.Map{
		"code":    domainErr.Code,
		"kind":    domainErr.Kind,
		"message": domainErr.Message,
	}
	if len(domainErr.Details) > 0 {
		body["details"] = domainErr.Details
	}
	return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{
		"data":  dto.NewSessionResponse(sess),
		"error": body,
	})
}
