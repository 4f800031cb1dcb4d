package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLoginSubmitted       EventType = "login_submitted"
	EventCodeVerified         EventType = "code_verified"
	EventCodeRejected         EventType = "code_rejected"
	EventPaymentHandedOff     EventType = "payment_handed_off"
	EventPaymentFailed        EventType = "payment_failed"
	EventEnrollmentDispatched EventType = "enrollment_dispatched"
	EventEnrollmentFailed     EventType = "enrollment_failed"
)

// Event represents a workflow outcome emitted by the session service.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SessionID string      `json:"session_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// PaymentPayload describes a payment hand-off attempt.
type PaymentPayload struct {
	PaymentID    int    `json:"payment_id"`
	Amount       int64  `json:"amount"`
	PreferenceID string `json:"preference_id,omitempty"`
	Result       string `json:"result"`
	Error        string `json:"error,omitempty"`
}

// EnrollmentPayload describes an enrollment hand-off attempt.
type EnrollmentPayload struct {
	StudentName string `json:"student_name"`
	ParentName  string `json:"parent_name"`
	Step        string `json:"step,omitempty"`
	AdminSent   bool   `json:"admin_sent"`
	Error       string `json:"error,omitempty"`
}

// VerificationPayload describes a login or verification outcome.
type VerificationPayload struct {
	Email string `json:"email"`
	Error string `json:"error,omitempty"`
}
