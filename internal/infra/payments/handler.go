package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// EventRenewed - очередное списание по подписке; срок в data.current_period_end.
const EventRenewed = "subscription.renewed"

// Event - уведомление шлюза об изменении статуса счёта.
type Event struct {
	Type string `json:"event"` // charge.paid | charge.failed | subscription.renewed
	Data struct {
		ID            string `json:"id"`
		TransactionID string `json:"transaction_id"`
		Status        string `json:"status"`
		PeriodEnd     string `json:"current_period_end,omitempty"`
	} `json:"data"`
}

// Reconciler применяет событие шлюза к счетам и планам.
type Reconciler interface {
	HandleEvent(ctx context.Context, ev Event) error
}

type Handler struct {
	log    *slog.Logger
	secret string
	rec    Reconciler
}

func NewHandler(log *slog.Logger, secret string, rec Reconciler) *Handler {
	return &Handler{
		log:    log.With("component", "payments_webhook"),
		secret: secret,
		rec:    rec,
	}
}

// ServeHTTP принимает webhook: POST с подписью X-Signature = hex(HMAC-SHA256(body)).
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h.secret == "" {
		h.log.Error("webhook secret not configured", "key", "PAYMENT_WEBHOOK_SECRET")
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if !VerifySignature(h.secret, body, r.Header.Get("X-Signature")) {
		h.log.Warn("webhook signature mismatch", "remote", r.RemoteAddr)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("invalid signature"))
		return
	}

	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil || ev.Type == "" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("invalid event"))
		return
	}

	if err := h.rec.HandleEvent(r.Context(), ev); err != nil {
		h.log.Error("webhook handling failed",
			"event", ev.Type,
			"charge_id", ev.Data.ID,
			"txn", ev.Data.TransactionID,
			"err", err,
		)
		// 5xx - шлюз повторит доставку
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	h.log.Info("webhook processed", "event", ev.Type, "txn", ev.Data.TransactionID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"ok":true}`))
}

func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func VerifySignature(secret string, body []byte, got string) bool {
	got = strings.TrimPrefix(strings.TrimSpace(got), "sha256=")
	want := Sign(secret, body)
	return hmac.Equal([]byte(strings.ToLower(got)), []byte(want))
}
