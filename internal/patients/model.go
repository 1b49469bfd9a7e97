package patients

import (
	"time"
)

// Address is the patient's postal address.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
}

// EmergencyContact identifies who to reach when the patient cannot respond.
type EmergencyContact struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship"`
}

// MedicalHistory holds free-text clinical background lists.
type MedicalHistory struct {
	Allergies   []string `json:"allergies"`
	Conditions  []string `json:"conditions"`
	Medications []string `json:"medications"`
}

// Patient is a patient profile keyed by the external identity id.
type Patient struct {
	ID               string           `json:"id"`
	ClerkID          string           `json:"clerkId"`
	Name             string           `json:"name"`
	Age              int              `json:"age"`
	Gender           string           `json:"gender"`
	Phone            string           `json:"phone"`
	Email            string           `json:"email"`
	DateOfBirth      *time.Time       `json:"dateOfBirth,omitempty"`
	Address          Address          `json:"address"`
	EmergencyContact EmergencyContact `json:"emergencyContact"`
	MedicalHistory   MedicalHistory   `json:"medicalHistory"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// UpsertProfileRequest is the PUT /patients/profile payload. The client may
// send phone under contactNumber; the handler aliases it before persisting.
type UpsertProfileRequest struct {
	Name             string           `json:"name" validate:"required"`
	Gender           string           `json:"gender" validate:"omitempty,oneof=Male Female Other"`
	Phone            string           `json:"phone"`
	ContactNumber    string           `json:"contactNumber"`
	Email            string           `json:"email" validate:"omitempty,email"`
	DateOfBirth      string           `json:"dateOfBirth"`
	Address          Address          `json:"address"`
	EmergencyContact EmergencyContact `json:"emergencyContact"`
	MedicalHistory   MedicalHistory   `json:"medicalHistory"`
}

// AgeAt computes the whole-year age for a birth date at the given instant.
func AgeAt(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	if age < 0 {
		age = 0
	}
	return age
}
