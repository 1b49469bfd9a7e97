package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/medibook/medibook-platform/internal/appointments"
	"github.com/medibook/medibook-platform/internal/doctors"
	"github.com/medibook/medibook-platform/internal/events"
	"github.com/medibook/medibook-platform/internal/patients"
	"github.com/medibook/medibook-platform/internal/payments"
	"github.com/medibook/medibook-platform/internal/users"
)

const testSecret = "router-test-secret"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	patientsRepo := patients.NewInMemoryRepository()
	doctorsRepo := doctors.NewInMemoryRepository()
	ledger := appointments.NewInMemoryRepository()
	booking := appointments.NewService(ledger, patientsRepo, doctorsRepo, nil)
	webhook, err := payments.NewWebhookHandler(booking, events.NewInMemoryProcessedStore(), "whsec", nil, nil)
	if err != nil {
		t.Fatalf("create webhook handler: %v", err)
	}

	return New(&Config{
		UsersHandler:        users.NewHandler(patientsRepo, doctorsRepo, nil),
		PatientsHandler:     patients.NewHandler(patientsRepo, nil),
		DoctorsHandler:      doctors.NewHandler(doctorsRepo, nil),
		AppointmentsHandler: appointments.NewHandler(booking, patientsRepo, doctorsRepo, nil, nil),
		PaymentsHandler:     payments.NewHandler(nil, booking, nil, nil),
		RazorpayWebhook:     webhook,
		JWTSecret:           testSecret,
	})
}

func bearerToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + signed
}

func TestHealthIsPublic(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := newTestRouter(t)
	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/patients/profile"},
		{http.MethodGet, "/doctors"},
		{http.MethodPost, "/appointments/book"},
		{http.MethodPost, "/payments/create-razorpay-order"},
	} {
		req := httptest.NewRequest(route.method, route.path, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: status = %d, want 401", route.method, route.path, rec.Code)
		}
	}
}

func TestWebhookIsPublicButSigned(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/payments/razorpay-webhook", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	// No identity token needed, but the missing signature still rejects it.
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRoleSelectionThroughRouter(t *testing.T) {
	r := newTestRouter(t)

	body := `{"role":"patient","firstName":"Asha","lastName":"Rao"}`
	req := httptest.NewRequest(http.MethodPost, "/user/role", strings.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, "clerk_p1"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || !resp.Success {
		t.Fatalf("unexpected response: %s", rec.Body.String())
	}

	// The created stub is now readable through the profile route.
	req = httptest.NewRequest(http.MethodGet, "/patients/profile", nil)
	req.Header.Set("Authorization", bearerToken(t, "clerk_p1"))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile read: status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestRouterContextPlumbing(t *testing.T) {
	// Guards against middleware reordering that would drop the identity.
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/appointments/patient", nil).
		WithContext(context.Background())
	req.Header.Set("Authorization", bearerToken(t, "clerk_unknown"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	// Authenticated but no profile yet: the handler, not the middleware,
	// must produce this 404.
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
