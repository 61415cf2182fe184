package payments

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/maos-da-obra/internal/infra/logger"
)

type recorder struct {
	events []Event
	err    error
}

func (r *recorder) HandleEvent(_ context.Context, ev Event) error {
	r.events = append(r.events, ev)
	return r.err
}

func post(h http.Handler, body []byte, sig string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/billing/webhook", bytes.NewReader(body))
	req.Header.Set("X-Signature", sig)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestWebhookAcceptsSignedEvent(t *testing.T) {
	rec := &recorder{}
	h := NewHandler(logger.Discard(), "whsec", rec)
	body := []byte(`{"event":"charge.paid","data":{"id":"ch_1","transaction_id":"txn_1","status":"paid"}}`)

	w := post(h, body, Sign("whsec", body))
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, rec.events, 1)
	assert.Equal(t, "txn_1", rec.events[0].Data.TransactionID)

	w = post(h, body, "sha256="+Sign("whsec", body))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	rec := &recorder{}
	h := NewHandler(logger.Discard(), "whsec", rec)
	body := []byte(`{"event":"charge.paid","data":{"transaction_id":"txn_1"}}`)

	w := post(h, body, Sign("other", body))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, rec.events)
}

func TestWebhookReconcileErrorAsksForRetry(t *testing.T) {
	rec := &recorder{err: errors.New("db down")}
	h := NewHandler(logger.Discard(), "whsec", rec)
	body := []byte(`{"event":"charge.paid","data":{"transaction_id":"txn_1"}}`)

	w := post(h, body, Sign("whsec", body))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWebhookWithoutSecret(t *testing.T) {
	w := post(NewHandler(logger.Discard(), "", &recorder{}), []byte(`{}`), "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
