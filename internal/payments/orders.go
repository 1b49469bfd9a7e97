package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	razorpay "github.com/razorpay/razorpay-go"

	"github.com/medibook/medibook-platform/internal/appointments"
	"github.com/medibook/medibook-platform/pkg/logging"
)

// orderCreator is the slice of the Razorpay client the issuer needs,
// narrowed so tests can stub the gateway.
type orderCreator interface {
	CreateOrder(data map[string]interface{}) (map[string]interface{}, error)
}

type razorpayGateway struct {
	client *razorpay.Client
}

func (g *razorpayGateway) CreateOrder(data map[string]interface{}) (map[string]interface{}, error) {
	return g.client.Order.Create(data, nil)
}

// CreateOrderRequest is the client payload for POST /payments/create-razorpay-order.
type CreateOrderRequest struct {
	DoctorID        string `json:"doctorId" validate:"required"`
	AppointmentDate string `json:"appointmentDate" validate:"required"`
	AppointmentTime string `json:"appointmentTime" validate:"required"`
	Reason          string `json:"reason" validate:"required"`
	ConsultationFee int    `json:"consultationFee" validate:"gte=0"`
}

// OrderResult is returned to the client for checkout.
type OrderResult struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"keyId"`
}

// OrderIssuer creates provisional gateway orders carrying the booking
// intent in their notes. No appointment row exists until payment is
// captured or the client books directly.
type OrderIssuer struct {
	gateway  orderCreator
	booking  *appointments.Service
	keyID    string
	currency string
	clock    func() time.Time
	logger   *logging.Logger
}

// NewOrderIssuer wires a Razorpay-backed issuer. Both credentials are
// mandatory: the client would otherwise fail on every call at runtime.
func NewOrderIssuer(keyID, keySecret, currency string, booking *appointments.Service, logger *logging.Logger) (*OrderIssuer, error) {
	if keyID == "" || keySecret == "" {
		return nil, errors.New("payments: razorpay key id and secret are required")
	}
	return newOrderIssuer(&razorpayGateway{client: razorpay.NewClient(keyID, keySecret)}, booking, keyID, currency, logger), nil
}

func newOrderIssuer(gateway orderCreator, booking *appointments.Service, keyID, currency string, logger *logging.Logger) *OrderIssuer {
	if logger == nil {
		logger = logging.Default()
	}
	return &OrderIssuer{
		gateway:  gateway,
		booking:  booking,
		keyID:    keyID,
		currency: currency,
		clock:    func() time.Time { return time.Now() },
		logger:   logger,
	}
}

// CreateOrder validates the booking preconditions and creates a gateway
// order for fee in minor currency units. The booking intent travels in the
// order notes so the webhook can reconstruct it without the client.
func (o *OrderIssuer) CreateOrder(ctx context.Context, clerkID string, req *CreateOrderRequest) (*OrderResult, error) {
	patient, err := o.booking.ResolvePatient(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	doctor, err := o.booking.ResolveActiveDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	date, err := appointments.ParseDate(req.AppointmentDate)
	if err != nil {
		return nil, err
	}

	fee := req.ConsultationFee
	if fee <= 0 {
		fee = doctor.ConsultationFee
	}
	amount := int64(fee) * 100

	data := map[string]interface{}{
		"amount":   amount,
		"currency": o.currency,
		"receipt":  fmt.Sprintf("appointment_%d", o.clock().UnixMilli()),
		"notes": map[string]interface{}{
			"patientId":       patient.ID,
			"doctorId":        doctor.ID,
			"appointmentDate": date.Format("2006-01-02"),
			"appointmentTime": req.AppointmentTime,
			"reason":          req.Reason,
			"consultationFee": strconv.Itoa(fee),
		},
	}

	order, err := o.gateway.CreateOrder(data)
	if err != nil {
		return nil, fmt.Errorf("payments: create order: %w", err)
	}

	orderID, _ := order["id"].(string)
	o.logger.Info("payment order created",
		"order_id", orderID,
		"patient_id", patient.ID,
		"doctor_id", doctor.ID,
		"amount", amount,
	)
	return &OrderResult{
		OrderID:  orderID,
		Amount:   amount,
		Currency: o.currency,
		KeyID:    o.keyID,
	}, nil
}

// IntentFromNotes rebuilds a booking intent from gateway order notes.
func IntentFromNotes(notes map[string]interface{}) (*appointments.BookingIntent, error) {
	str := func(key string) string {
		v, _ := notes[key].(string)
		return v
	}
	patientID := str("patientId")
	doctorID := str("doctorId")
	timeLabel := str("appointmentTime")
	if patientID == "" || doctorID == "" || timeLabel == "" {
		return nil, fmt.Errorf("payments: order notes missing booking intent")
	}
	date, err := appointments.ParseDate(str("appointmentDate"))
	if err != nil {
		return nil, err
	}
	fee, err := strconv.Atoi(str("consultationFee"))
	if err != nil {
		return nil, fmt.Errorf("payments: order notes fee: %w", err)
	}
	return &appointments.BookingIntent{
		PatientID:       patientID,
		DoctorID:        doctorID,
		AppointmentDate: date,
		AppointmentTime: timeLabel,
		Reason:          str("reason"),
		ConsultationFee: fee,
	}, nil
}
