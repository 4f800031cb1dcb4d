// Package validation checks the login and enrollment forms.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/semillero-service/internal/domain"
)

// nonSpace matches what a JavaScript \S matches. Go's \S admits U+00A0 and
// the other Unicode separators.
const nonSpace = `[^\s\x0B\x{FEFF}\p{Z}]`

var (
	emailPattern = regexp.MustCompile(nonSpace + `+@` + nonSpace + `+\.` + nonSpace + `+`)
	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
)

// messages holds, per field, the message for a failing tag. "*" is the field fallback.
var messages = map[string]map[string]string{
	domain.FieldEmail: {
		"required":    "El correo es requerido",
		"loose_email": "Correo inválido",
	},
	domain.FieldPassword: {
		"required": "La contraseña es requerida",
		"min16":    "Mínimo 6 caracteres",
	},
	domain.FieldVerificationCode: {"*": "Ingrese el código de verificación"},
	domain.FieldStudentName:      {"*": "El nombre es requerido"},
	domain.FieldAge:              {"*": "Ingrese una edad válida"},
	domain.FieldGender:           {"*": "Seleccione un género válido"},
	domain.FieldParentName:       {"*": "El nombre del tutor es requerido"},
	domain.FieldPhoneNumber:      {"*": "Ingrese un número válido de 10 dígitos"},
}

type authForm struct {
	Email    string `form:"email" validate:"required,loose_email"`
	Password string `form:"password" validate:"required,min16=6"`
}

type codeForm struct {
	Code string `form:"verificationCode" validate:"required"`
}

type enrollmentForm struct {
	StudentName string `form:"studentName" validate:"required"`
	Age         string `form:"age" validate:"required,js_number"`
	Gender      string `form:"gender" validate:"omitempty,gender"`
	ParentName  string `form:"parentName" validate:"required"`
	PhoneNumber string `form:"phoneNumber" validate:"required,phone10"`
}

// Validator produces field error maps. It holds no state between calls.
type Validator struct {
	v *validator.Validate
}

// New builds a Validator with the form-specific rules registered.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("form")
	})
	_ = v.RegisterValidation("loose_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("phone10", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("js_number", func(fl validator.FieldLevel) bool {
		return IsNumeric(fl.Field().String())
	})
	_ = v.RegisterValidation("gender", func(fl validator.FieldLevel) bool {
		return domain.Gender(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("min16", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return UTF16Len(fl.Field().String()) >= limit
	})
	return &Validator{v: v}
}

// ValidateAuth checks the login credentials.
func (val *Validator) ValidateAuth(in domain.AuthInput) domain.ErrorMap {
	return val.collect(authForm{Email: in.Email, Password: in.Password})
}

// ValidateCode checks that a verification code was typed.
func (val *Validator) ValidateCode(in domain.AuthInput) domain.ErrorMap {
	return val.collect(codeForm{Code: in.VerificationCode})
}

// ValidateEnrollment checks the new-student form.
func (val *Validator) ValidateEnrollment(in domain.EnrollmentInput) domain.ErrorMap {
	return val.collect(enrollmentForm{
		StudentName: in.StudentName,
		Age:         in.Age,
		Gender:      string(in.Gender),
		ParentName:  in.ParentName,
		PhoneNumber: in.PhoneNumber,
	})
}

func (val *Validator) collect(form any) domain.ErrorMap {
	out := domain.ErrorMap{}
	err := val.v.Struct(form)
	if err == nil {
		return out
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return out
	}
	for _, fe := range fieldErrs {
		out[fe.Field()] = message(fe.Field(), fe.Tag())
	}
	return out
}

func message(field, tag string) string {
	byTag := messages[field]
	if msg, ok := byTag[tag]; ok {
		return msg
	}
	if msg, ok := byTag["*"]; ok {
		return msg
	}
	return "Campo inválido"
}

// UTF16Len is the length of s in UTF-16 code units, as a JavaScript string reports it.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// IsNumeric reports whether s converts to a number the way a JavaScript
// Number() coercion would, i.e. the opposite of isNaN(s).
func IsNumeric(s string) bool {
	t := strings.TrimSpace(s)
	if t == "" {
		return true
	}
	switch t {
	case "Infinity", "+Infinity", "-Infinity":
		return true
	}
	if strings.Contains(t, "_") {
		return false
	}
	lower := strings.ToLower(t)
	if len(lower) > 2 && lower[0] == '0' {
		base := 0
		switch lower[1] {
		case 'x':
			base = 16
		case 'o':
			base = 8
		case 'b':
			base = 2
		}
		if base != 0 {
			_, err := strconv.ParseUint(t[2:], base, 64)
			return err == nil || errors.Is(err, strconv.ErrRange)
		}
	}
	if strings.Contains(lower, "inf") || strings.Contains(lower, "nan") || strings.Contains(lower, "x") {
		return false
	}
	_, err := strconv.ParseFloat(t, 64)
	return err == nil || errors.Is(err, strconv.ErrRange)
}
