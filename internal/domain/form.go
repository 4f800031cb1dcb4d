package domain

// Field names used as ErrorMap keys.
const (
	FieldEmail            = "email"
	FieldPassword         = "password"
	FieldVerificationCode = "verificationCode"
	FieldStudentName      = "studentName"
	FieldAge              = "age"
	FieldGender           = "gender"
	FieldParentName       = "parentName"
	FieldPhoneNumber      = "phoneNumber"
)

// ErrorMap maps an invalid field to its message. Valid fields are absent.
type ErrorMap map[string]string

// OK reports whether no field failed.
func (m ErrorMap) OK() bool {
	return len(m) == 0
}

// Details converts the map for DomainError details.
func (m ErrorMap) Details() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
