package patients

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/medibook/medibook-platform/internal/identity"
	"github.com/medibook/medibook-platform/pkg/logging"
)

func authedRequest(method, target string, body []byte, userID string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	return req.WithContext(identity.WithUserID(context.Background(), userID))
}

func TestUpsertProfile_CreatesAndUpdates(t *testing.T) {
	repo := NewInMemoryRepository()
	handler := NewHandler(repo, logging.Default())

	payload := UpsertProfileRequest{
		Name:          "Asha Rao",
		Gender:        "Female",
		ContactNumber: "+911234567890",
		Email:         "asha@example.com",
		DateOfBirth:   "1990-06-15",
		Address:       Address{Street: "12 Lake Rd", City: "Pune", State: "MH", ZipCode: "411001"},
		MedicalHistory: MedicalHistory{
			Allergies: []string{"penicillin"},
		},
	}
	body, _ := json.Marshal(payload)

	rr := httptest.NewRecorder()
	handler.UpsertProfile(rr, authedRequest(http.MethodPut, "/patients/profile", body, "user_p1"))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Success bool     `json:"success"`
		Patient *Patient `json:"patient"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Fatal("expected success:true")
	}
	if resp.Patient.Phone != "+911234567890" {
		t.Fatalf("expected contactNumber aliased to phone, got %q", resp.Patient.Phone)
	}
	wantAge := AgeAt(time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC), time.Now().UTC())
	if resp.Patient.Age != wantAge {
		t.Fatalf("expected derived age %d, got %d", wantAge, resp.Patient.Age)
	}
}

func TestUpsertProfile_Idempotent(t *testing.T) {
	repo := NewInMemoryRepository()
	handler := NewHandler(repo, logging.Default())

	payload := UpsertProfileRequest{Name: "Asha Rao", Email: "asha@example.com"}
	body, _ := json.Marshal(payload)

	var ids []string
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		handler.UpsertProfile(rr, authedRequest(http.MethodPut, "/patients/profile", body, "user_p1"))
		if rr.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i, rr.Code)
		}
		var resp struct {
			Patient *Patient `json:"patient"`
		}
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		ids = append(ids, resp.Patient.ID)
	}

	if ids[0] != ids[1] {
		t.Fatalf("expected same stored document on repeat upsert, got %s then %s", ids[0], ids[1])
	}
}

func TestUpsertProfile_RejectsBadGender(t *testing.T) {
	handler := NewHandler(NewInMemoryRepository(), logging.Default())

	body, _ := json.Marshal(UpsertProfileRequest{Name: "X", Gender: "Robot"})
	rr := httptest.NewRecorder()
	handler.UpsertProfile(rr, authedRequest(http.MethodPut, "/patients/profile", body, "user_p1"))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestGetProfile_NotFound(t *testing.T) {
	handler := NewHandler(NewInMemoryRepository(), logging.Default())

	rr := httptest.NewRecorder()
	handler.GetProfile(rr, authedRequest(http.MethodGet, "/patients/profile", nil, "user_missing"))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestGetProfile_Unauthenticated(t *testing.T) {
	handler := NewHandler(NewInMemoryRepository(), logging.Default())

	req := httptest.NewRequest(http.MethodGet, "/patients/profile", nil)
	rr := httptest.NewRecorder()
	handler.GetProfile(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestAgeAt(t *testing.T) {
	now := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		birth time.Time
		want  int
	}{
		{time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC), 36},
		{time.Date(1990, 9, 1, 0, 0, 0, 0, time.UTC), 35},
		{time.Date(1990, 8, 29, 0, 0, 0, 0, time.UTC), 36},
		{time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), 0},
	}
	for _, tt := range tests {
		if got := AgeAt(tt.birth, now); got != tt.want {
			t.Errorf("AgeAt(%s) = %d, want %d", tt.birth.Format("2006-01-02"), got, tt.want)
		}
	}
}
