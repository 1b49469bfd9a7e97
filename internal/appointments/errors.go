package appointments

import "errors"

var (
	// ErrSlotTaken means an active appointment already holds the
	// (doctor, date, time) slot.
	ErrSlotTaken = errors.New("appointments: slot already booked")

	// ErrAppointmentNotFound covers both a missing record and a record
	// the caller is not allowed to see.
	ErrAppointmentNotFound = errors.New("appointments: appointment not found")

	// ErrProfileIncomplete means the booking patient has not completed
	// their profile yet.
	ErrProfileIncomplete = errors.New("appointments: patient profile incomplete")
)
