package handoff

import (
	"fmt"
	"strings"

	"github.com/spec-kit/semillero-service/internal/domain"
)

const (
	mercadoPagoAppURL      = "mercadopago://app?preference_id="
	mercadoPagoRedirectURL = "https://www.mercadopago.com.ar/checkout/v1/redirect?preference_id="
	whatsAppSendURL        = "whatsapp://send?phone=%s&text=%s"
)

// PaymentLinks returns the payment app deep link and its web fallback.
func PaymentLinks(preferenceID string) (primary, fallback string) {
	return mercadoPagoAppURL + preferenceID, mercadoPagoRedirectURL + preferenceID
}

// WhatsAppLink addresses an already encoded body to phone.
func WhatsAppLink(phone, encodedBody string) string {
	return fmt.Sprintf(whatsAppSendURL, phone, encodedBody)
}

// AdminMessage is the enrollment notice sent to the school.
func AdminMessage(in domain.EnrollmentInput, phoneDigits string) string {
	return fmt.Sprintf("*Nueva Inscripción en El Semillero*\n\n"+
		"*Datos del Alumno:*\n"+
		"Nombre: %s\n"+
		"Edad: %s\n"+
		"Género: %s\n\n"+
		"*Datos del Tutor:*\n"+
		"Nombre: %s\n"+
		"Teléfono: %s",
		in.StudentName, in.Age, in.Gender, in.ParentName, phoneDigits)
}

// UserMessage is the acknowledgement sent to the guardian.
func UserMessage(in domain.EnrollmentInput) string {
	return fmt.Sprintf("*¡Gracias por inscribirte en El Semillero!*\n\n"+
		"Hemos recibido tu inscripción con los siguientes datos:\n"+
		"Nombre del alumno: %s\n"+
		"Edad: %s\n\n"+
		"Nos pondremos en contacto contigo pronto para los siguientes pasos.",
		in.StudentName, in.Age)
}

// StripNonDigits keeps only ASCII digits.
func StripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// EncodeURIComponent percent-encodes every byte except A-Z a-z 0-9 and -_.!~*'().
// url.QueryEscape differs: it writes spaces as '+' and escapes !*'().
func EncodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
