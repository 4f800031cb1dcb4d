package handoff

import (
	"net/url"
	"testing"

	"github.com/spec-kit/semillero-service/internal/domain"
)

func TestPaymentLinks(t *testing.T) {
	primary, fallback := PaymentLinks("TEST-1-abc")
	if primary != "mercadopago://app?preference_id=TEST-1-abc" {
		t.Errorf("unexpected primary link %q", primary)
	}
	if fallback != "https://www.mercadopago.com.ar/checkout/v1/redirect?preference_id=TEST-1-abc" {
		t.Errorf("unexpected fallback link %q", fallback)
	}
}

func TestEncodeURIComponent(t *testing.T) {
	cases := map[string]string{
		"hola mundo":      "hola%20mundo",
		"a+b=c&d":         "a%2Bb%3Dc%26d",
		"*Nueva*":         "*Nueva*",
		"(ok)!~'.-_":      "(ok)!~'.-_",
		"línea\nnueva":    "l%C3%ADnea%0Anueva",
		"¡Gracias!":       "%C2%A1Gracias!",
		"tel: 3624123456": "tel%3A%203624123456",
	}
	for in, want := range cases {
		if got := EncodeURIComponent(in); got != want {
			t.Errorf("EncodeURIComponent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEncodeURIComponentRoundTrip(t *testing.T) {
	body := AdminMessage(domain.EnrollmentInput{
		StudentName: "Ana Gómez",
		Age:         "7",
		Gender:      domain.GenderFemale,
		ParentName:  "Luis Gómez",
	}, "3624123456")
	decoded, err := url.PathUnescape(EncodeURIComponent(body))
	if err != nil {
		t.Fatalf("unescape: %v", err)
	}
	if decoded != body {
		t.Fatalf("round trip mismatch:\n%q\n%q", decoded, body)
	}
}

func TestStripNonDigits(t *testing.T) {
	cases := map[string]string{
		"555-1234-56":      "555123456",
		"(362) 412-3456":   "3624123456",
		"3624123456":       "3624123456",
		"":                 "",
		"+54 9 362 412 34": "549362412" + "34",
	}
	for in, want := range cases {
		if got := StripNonDigits(in); got != want {
			t.Errorf("StripNonDigits(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMessages(t *testing.T) {
	in := domain.EnrollmentInput{
		StudentName: "Juan",
		Age:         "8",
		Gender:      domain.GenderMale,
		ParentName:  "María",
		PhoneNumber: "3624123456",
	}
	wantAdmin := "*Nueva Inscripción en El Semillero*\n\n*Datos del Alumno:*\nNombre: Juan\nEdad: 8\nGénero: masculino\n\n*Datos del Tutor:*\nNombre: María\nTeléfono: 3624123456"
	if got := AdminMessage(in, "3624123456"); got != wantAdmin {
		t.Errorf("admin message:\n%q\nwant\n%q", got, wantAdmin)
	}
	wantUser := "*¡Gracias por inscribirte en El Semillero!*\n\nHemos recibido tu inscripción con los siguientes datos:\nNombre del alumno: Juan\nEdad: 8\n\nNos pondremos en contacto contigo pronto para los siguientes pasos."
	if got := UserMessage(in); got != wantUser {
		t.Errorf("user message:\n%q\nwant\n%q", got, wantUser)
	}
}
