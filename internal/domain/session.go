package domain

import "time"

// NoticeKind tells the shell how to present a notice.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is a one-shot alert. It is cleared by the next event applied to the session.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// Session is the whole state one shell renders.
type Session struct {
	ID               string
	Screen           Screen
	Auth             AuthInput
	Enrollment       EnrollmentInput
	Errors           ErrorMap
	SelectedPayment  *Payment
	PaymentModalOpen bool
	Notice           *Notice
	// Generation changes whenever a screen or the payment overlay is entered
	// or left. Results of suspended work carry the generation they started in.
	Generation uint64
	UpdatedAt  time.Time
}

// NewSession returns a session on the login screen with empty inputs.
func NewSession(id string) Session {
	return Session{
		ID:         id,
		Screen:     ScreenLogin,
		Enrollment: NewEnrollmentInput(),
		Errors:     ErrorMap{},
	}
}
