package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/medibook/medibook-platform/internal/appointments"
	"github.com/medibook/medibook-platform/internal/doctors"
	"github.com/medibook/medibook-platform/internal/identity"
	"github.com/medibook/medibook-platform/internal/patients"
)

type stubGateway struct {
	lastData map[string]interface{}
	err      error
}

func (s *stubGateway) CreateOrder(data map[string]interface{}) (map[string]interface{}, error) {
	s.lastData = data
	if s.err != nil {
		return nil, s.err
	}
	return map[string]interface{}{"id": "order_test_1"}, nil
}

type orderFixture struct {
	issuer       *OrderIssuer
	handler      *Handler
	gateway      *stubGateway
	patientsRepo *patients.InMemoryRepository
	patient      *patients.Patient
	doctor       *doctors.Doctor
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	ledger := appointments.NewInMemoryRepository()
	patientsRepo := patients.NewInMemoryRepository()
	doctorsRepo := doctors.NewInMemoryRepository()

	p, _, err := patientsRepo.CreateStub(context.Background(), "clerk_p1", "Asha Rao", "asha@example.com")
	if err != nil {
		t.Fatalf("seed patient: %v", err)
	}
	d, err := doctorsRepo.Upsert(context.Background(), &doctors.Doctor{
		ClerkID:         "clerk_d1",
		FirstName:       "Meera",
		LastName:        "Iyer",
		Email:           "meera@example.com",
		ConsultationFee: 650,
	})
	if err != nil {
		t.Fatalf("seed doctor: %v", err)
	}

	booking := appointments.NewService(ledger, patientsRepo, doctorsRepo, nil)
	gateway := &stubGateway{}
	issuer := newOrderIssuer(gateway, booking, "rzp_test_key", "INR", nil)
	issuer.clock = func() time.Time { return time.UnixMilli(1757500000000) }
	return &orderFixture{
		issuer:       issuer,
		handler:      NewHandler(issuer, booking, nil, nil),
		gateway:      gateway,
		patientsRepo: patientsRepo,
		patient:      p,
		doctor:       d,
	}
}

func TestCreateOrderEmbedsBookingIntent(t *testing.T) {
	f := newOrderFixture(t)

	result, err := f.issuer.CreateOrder(context.Background(), "clerk_p1", &CreateOrderRequest{
		DoctorID:        f.doctor.ID,
		AppointmentDate: "2026-09-15",
		AppointmentTime: "14:00",
		Reason:          "Follow-up",
		ConsultationFee: 800,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if result.OrderID != "order_test_1" || result.Amount != 80000 || result.Currency != "INR" || result.KeyID != "rzp_test_key" {
		t.Fatalf("unexpected result: %+v", result)
	}

	data := f.gateway.lastData
	if data["amount"] != int64(80000) {
		t.Fatalf("amount = %v, want 80000 minor units", data["amount"])
	}
	if data["receipt"] != "appointment_1757500000000" {
		t.Fatalf("receipt = %v", data["receipt"])
	}
	notes, ok := data["notes"].(map[string]interface{})
	if !ok {
		t.Fatalf("notes missing: %v", data)
	}
	if notes["patientId"] != f.patient.ID || notes["doctorId"] != f.doctor.ID {
		t.Fatalf("intent ids missing: %v", notes)
	}
	if notes["consultationFee"] != "800" {
		t.Fatalf("fee should travel as string: %v", notes["consultationFee"])
	}

	intent, err := IntentFromNotes(notes)
	if err != nil {
		t.Fatalf("IntentFromNotes: %v", err)
	}
	if intent.ConsultationFee != 800 || intent.AppointmentTime != "14:00" {
		t.Fatalf("round-tripped intent: %+v", intent)
	}
}

func TestCreateOrderFallsBackToDoctorFee(t *testing.T) {
	f := newOrderFixture(t)

	result, err := f.issuer.CreateOrder(context.Background(), "clerk_p1", &CreateOrderRequest{
		DoctorID:        f.doctor.ID,
		AppointmentDate: "2026-09-15",
		AppointmentTime: "14:00",
		Reason:          "Follow-up",
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if result.Amount != 65000 {
		t.Fatalf("amount = %d, want doctor's fee in minor units", result.Amount)
	}
}

func TestCreateOrderMissingProfile(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.issuer.CreateOrder(context.Background(), "clerk_nobody", &CreateOrderRequest{
		DoctorID:        f.doctor.ID,
		AppointmentDate: "2026-09-15",
		AppointmentTime: "14:00",
		Reason:          "Follow-up",
	})
	if !errors.Is(err, appointments.ErrProfileIncomplete) {
		t.Fatalf("err = %v, want ErrProfileIncomplete", err)
	}
}

func TestCreateOrderThrottled(t *testing.T) {
	f := newOrderFixture(t)
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	cfg := DefaultVelocityConfig()
	cfg.MaxOrdersPerPatient = 1
	f.handler.velocity = NewVelocityChecker(redisClient, cfg, nil)

	body := `{"doctorId":"` + f.doctor.ID + `","appointmentDate":"2026-09-15","appointmentTime":"14:00","reason":"Follow-up"}`
	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/payments/create-razorpay-order", strings.NewReader(body))
		req = req.WithContext(identity.WithUserID(context.Background(), "clerk_p1"))
		rec := httptest.NewRecorder()
		f.handler.CreateOrder(rec, req)
		return rec
	}

	if rec := do(); rec.Code != http.StatusOK {
		t.Fatalf("first order: status = %d", rec.Code)
	}
	if rec := do(); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second order: status = %d, want 429", rec.Code)
	}
}

func TestCreateOrderHandlerStatuses(t *testing.T) {
	f := newOrderFixture(t)

	do := func(userID, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/payments/create-razorpay-order", strings.NewReader(body))
		if userID != "" {
			req = req.WithContext(identity.WithUserID(context.Background(), userID))
		}
		rec := httptest.NewRecorder()
		f.handler.CreateOrder(rec, req)
		return rec
	}

	if rec := do("", `{}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated: %d, want 401", rec.Code)
	}
	if rec := do("clerk_p1", `{"doctorId":"`+f.doctor.ID+`"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing fields: %d, want 400", rec.Code)
	}

	body := `{"doctorId":"00000000-0000-0000-0000-000000000000","appointmentDate":"2026-09-15","appointmentTime":"14:00","reason":"Follow-up"}`
	if rec := do("clerk_p1", body); rec.Code != http.StatusNotFound {
		t.Fatalf("missing doctor: %d, want 404", rec.Code)
	}

	body = `{"doctorId":"` + f.doctor.ID + `","appointmentDate":"2026-09-15","appointmentTime":"14:00","reason":"Follow-up"}`
	rec := do("clerk_p1", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid order: %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Success bool   `json:"success"`
		OrderID string `json:"orderId"`
		KeyID   string `json:"keyId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.OrderID != "order_test_1" || resp.KeyID != "rzp_test_key" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestNewOrderIssuerRequiresCredentials(t *testing.T) {
	if _, err := NewOrderIssuer("", "secret", "INR", nil, nil); err == nil {
		t.Fatal("expected error for empty key id")
	}
	if _, err := NewOrderIssuer("rzp_test_key", "", "INR", nil, nil); err == nil {
		t.Fatal("expected error for empty key secret")
	}
}
