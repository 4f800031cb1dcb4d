package domain

// Gender values offered by the enrollment picker.
type Gender string

const (
	GenderMale   Gender = "masculino"
	GenderFemale Gender = "femenino"
)

// Valid reports whether g is one of the picker values.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// EnrollmentInput is the new-student form.
type EnrollmentInput struct {
	StudentName string `json:"student_name"`
	Age         string `json:"age"`
	Gender      Gender `json:"gender"`
	ParentName  string `json:"parent_name"`
	PhoneNumber string `json:"phone_number"`
}

// NewEnrollmentInput returns the empty form with the picker's default gender.
func NewEnrollmentInput() EnrollmentInput {
	return EnrollmentInput{Gender: GenderMale}
}
