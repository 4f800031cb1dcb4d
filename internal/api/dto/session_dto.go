package dto

import (
	"time"

	"github.com/spec-kit/semillero-service/internal/domain"
)

// AuthRequest replaces the login inputs.
type AuthRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	VerificationCode string `json:"verification_code"`
}

// VerifyRequest optionally carries the typed code.
type VerifyRequest struct {
	Code *string `json:"code"`
}

// EnrollmentRequest replaces the enrollment form.
type EnrollmentRequest struct {
	StudentName string `json:"student_name"`
	Age         string `json:"age"`
	Gender      string `json:"gender"`
	ParentName  string `json:"parent_name"`
	PhoneNumber string `json:"phone_number"`
}

// AuthSnapshot never carries the password itself.
type AuthSnapshot struct {
	Email            string `json:"email"`
	PasswordSet      bool   `json:"password_set"`
	VerificationCode string `json:"verification_code"`
}

// SessionResponse is what a shell renders.
type SessionResponse struct {
	ID               string                 `json:"id"`
	Screen           domain.Screen          `json:"screen"`
	Auth             AuthSnapshot           `json:"auth"`
	Enrollment       domain.EnrollmentInput `json:"enrollment"`
	Errors           map[string]string      `json:"errors"`
	SelectedPayment  *domain.Payment        `json:"selected_payment"`
	PaymentModalOpen bool                   `json:"payment_modal_open"`
	Notice           *domain.Notice         `json:"notice"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// StartSessionResponse returns the new session with its bearer token.
type StartSessionResponse struct {
	Session   SessionResponse `json:"session"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// AuditEntry is one recorded workflow event.
type AuditEntry struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Payload   any       `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// ToAuthInput converts the request.
func (r AuthRequest) ToAuthInput() domain.AuthInput {
	return domain.AuthInput{Email: r.Email, Password: r.Password, VerificationCode: r.VerificationCode}
}

// ToEnrollmentInput converts the request.
func (r EnrollmentRequest) ToEnrollmentInput() domain.EnrollmentInput {
	return domain.EnrollmentInput{
		StudentName: r.StudentName,
		Age:         r.Age,
		Gender:      domain.Gender(r.Gender),
		ParentName:  r.ParentName,
		PhoneNumber: r.PhoneNumber,
	}
}

// NewSessionResponse builds the snapshot of s.
func NewSessionResponse(s domain.Session) SessionResponse {
	errs := make(map[string]string, len(s.Errors))
	for k, v := range s.Errors {
		errs[k] = v
	}
	return SessionResponse{
		ID:     s.ID,
		Screen: s.Screen,
		Auth: AuthSnapshot{
			Email:            s.Auth.Email,
			PasswordSet:      s.Auth.Password != "",
			VerificationCode: s.Auth.VerificationCode,
		},
		Enrollment:       s.Enrollment,
		Errors:           errs,
		SelectedPayment:  s.SelectedPayment,
		PaymentModalOpen: s.PaymentModalOpen,
		Notice:           s.Notice,
		UpdatedAt:        s.UpdatedAt,
	}
}
