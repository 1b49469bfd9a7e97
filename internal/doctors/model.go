package doctors

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// AvailableSlot is one entry of the weekly availability template. Times are
// opaque labels ("09:00"); no overlap validation is performed.
type AvailableSlot struct {
	Day       string `json:"day"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// Doctor is a doctor profile keyed by the external identity id.
type Doctor struct {
	ID               string          `json:"id"`
	ClerkID          string          `json:"clerkId"`
	FirstName        string          `json:"firstName"`
	LastName         string          `json:"lastName"`
	Email            string          `json:"email"`
	Specialization   string          `json:"specialization"`
	Experience       int             `json:"experience"`
	Qualification    string          `json:"qualification"`
	ContactNumber    string          `json:"contactNumber"`
	ConsultationFee  int             `json:"consultationFee"`
	AvailableSlots   []AvailableSlot `json:"availableSlots"`
	Biography        string          `json:"biography"`
	Rating           float64         `json:"rating"`
	TotalPatients    int             `json:"totalPatients"`
	IsActive         bool            `json:"isActive"`
	ProfileCompleted bool            `json:"profileCompleted"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// FlexInt accepts both JSON numbers and numeric strings. Onboarding clients
// send experience and consultationFee as form-field strings.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			*f = 0
			return nil
		}
		*f = FlexInt(n)
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexInt(int(n))
	return nil
}

// UpsertProfileRequest is the PUT /doctor/profile payload.
type UpsertProfileRequest struct {
	FirstName       string          `json:"firstName"`
	LastName        string          `json:"lastName"`
	Email           string          `json:"email" validate:"omitempty,email"`
	Specialization  string          `json:"specialization"`
	Experience      FlexInt         `json:"experience"`
	Qualification   string          `json:"qualification"`
	ContactNumber   string          `json:"contactNumber"`
	ConsultationFee FlexInt         `json:"consultationFee" validate:"gte=0"`
	AvailableSlots  []AvailableSlot `json:"availableSlots"`
	Biography       string          `json:"biography"`
}
