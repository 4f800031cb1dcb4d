package domain

// AuthInput holds the credentials typed on the login and verification screens.
type AuthInput struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	VerificationCode string `json:"verification_code"`
}

// Redacted returns a copy safe to render or log.
func (a AuthInput) Redacted() AuthInput {
	if a.Password != "" {
		a.Password = "******"
	}
	return a
}
