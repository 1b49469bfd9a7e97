package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/medibook/medibook-platform/internal/appointments"
	"github.com/medibook/medibook-platform/internal/events"
	"github.com/medibook/medibook-platform/internal/observability/metrics"
	"github.com/medibook/medibook-platform/pkg/logging"
)

const webhookProvider = "razorpay"

// razorpayEvent is the subset of the webhook payload we act on. Razorpay
// copies the order notes onto the payment entity, which is what lets the
// reconciler recover the booking intent without a client round trip.
type razorpayEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string                 `json:"id"`
				OrderID string                 `json:"order_id"`
				Method  string                 `json:"method"`
				Notes   map[string]interface{} `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// WebhookHandler reconciles Razorpay webhook deliveries into the
// appointment ledger.
type WebhookHandler struct {
	booking   *appointments.Service
	processed events.ProcessedStore
	secret    string
	metrics   *metrics.Metrics
	logger    *logging.Logger
}

// NewWebhookHandler creates the webhook endpoint handler. The secret is
// mandatory: an empty HMAC key would let anyone forge deliveries.
func NewWebhookHandler(booking *appointments.Service, processed events.ProcessedStore, secret string, m *metrics.Metrics, logger *logging.Logger) (*WebhookHandler, error) {
	if secret == "" {
		return nil, errors.New("payments: razorpay webhook secret is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		booking:   booking,
		processed: processed,
		secret:    secret,
		metrics:   m,
		logger:    logger,
	}, nil
}

// Handle processes POST /payments/razorpay-webhook. Signature verification
// is over the raw body and fails closed; once the signature checks out the
// delivery is always acknowledged, because the gateway's retry policy
// cannot fix an internal reconciliation failure.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.metrics.WebhookObserved("read_error")
		writeError(w, http.StatusBadRequest, "Unable to read request body")
		return
	}

	signature := r.Header.Get("x-razorpay-signature")
	if signature == "" || !h.verifySignature(body, signature) {
		h.metrics.WebhookObserved("bad_signature")
		h.logger.Warn("webhook signature rejected")
		writeError(w, http.StatusBadRequest, "Invalid webhook signature")
		return
	}

	var event razorpayEvent
	if err := json.Unmarshal(body, &event); err != nil {
		// Signed but unparseable. Ack so the gateway stops retrying a
		// payload we will never understand.
		h.metrics.WebhookObserved("unparseable")
		h.logger.Error("webhook payload unparseable", "error", err)
		h.ack(w)
		return
	}

	if event.Event != "payment.captured" {
		h.metrics.WebhookObserved("ignored")
		h.ack(w)
		return
	}

	payment := event.Payload.Payment.Entity
	fresh, err := h.processed.MarkProcessed(r.Context(), webhookProvider, payment.ID)
	if err != nil {
		h.logger.Error("replay guard unavailable", "error", err, "payment_id", payment.ID)
		// Fall through: the booking-intent re-check below still keeps the
		// reconciliation idempotent.
	} else if !fresh {
		h.metrics.WebhookObserved("replayed")
		h.logger.Info("webhook replay ignored", "payment_id", payment.ID)
		h.ack(w)
		return
	}

	intent, err := IntentFromNotes(payment.Notes)
	if err != nil {
		h.metrics.WebhookObserved("bad_intent")
		h.logger.Error("webhook notes unusable", "error", err, "payment_id", payment.ID, "order_id", payment.OrderID)
		h.ack(w)
		return
	}

	method := payment.Method
	if method == "" {
		method = webhookProvider
	}
	_, created, err := h.booking.ConfirmPaidBooking(r.Context(), intent, payment.ID, method)
	if err != nil {
		h.metrics.WebhookObserved("error")
		h.logger.Error("webhook reconciliation failed", "error", err, "payment_id", payment.ID)
		h.ack(w)
		return
	}

	if created {
		h.metrics.WebhookObserved("confirmed")
	} else {
		h.metrics.WebhookObserved("noop")
	}
	h.ack(w)
}

func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	if h.secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (h *WebhookHandler) ack(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
