package domain

// Screen is the active view of a session.
type Screen string

const (
	ScreenLogin       Screen = "login"
	ScreenVerify      Screen = "verify"
	ScreenDashboard   Screen = "dashboard"
	ScreenInscription Screen = "inscription"
)
