package payments

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/maos-da-obra/internal/apperr"
)

func TestCreateCardSendsAuthAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/charges/card", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))

		var req CardRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "txn_1", req.TransactionID)
		assert.True(t, decimal.RequireFromString("247").Equal(req.Amount))

		_, _ = w.Write([]byte(`{"id":"ch_1","transaction_id":"txn_1","status":"paid"}`))
	}))
	defer srv.Close()

	s := NewService(srv.URL, "pk_test", "sk_test")
	ch, err := s.CreateCard(context.Background(), CardRequest{TransactionID: "txn_1", Amount: decimal.RequireFromString("247.00")})
	require.NoError(t, err)
	assert.Equal(t, "ch_1", ch.ID)
	assert.True(t, ch.Paid())
	assert.NotEmpty(t, ch.Raw)
}

func TestRejectionMessagePassedThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":[{"description":"Cartão sem saldo suficiente"}]}`))
	}))
	defer srv.Close()

	_, err := NewService(srv.URL, "", "sk").CreatePix(context.Background(), PixRequest{TransactionID: "t"})
	var gr *apperr.GatewayRejection
	require.True(t, errors.As(err, &gr))
	assert.Equal(t, http.StatusUnprocessableEntity, gr.Status)
	assert.Equal(t, "Cartão sem saldo suficiente", gr.Message)
}

func TestMissingSecretIsConfigurationError(t *testing.T) {
	_, err := NewService("http://gateway", "", "").CreateCard(context.Background(), CardRequest{})
	var ce *apperr.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "PAYMENT_SECRET_KEY", ce.Key)
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewService(url, "", "sk").GetCharge(context.Background(), "ch_1")
	var ne *apperr.NetworkError
	assert.True(t, errors.As(err, &ne))
}

func TestForwardKeepsStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(b)
	}))
	defer srv.Close()

	status, body, err := NewService(srv.URL, "", "sk").Forward(context.Background(), "/charges/pix", []byte(`{"amount":10}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)
	assert.JSONEq(t, `{"amount":10}`, string(body))
}

func TestRejectionMessageFallback(t *testing.T) {
	assert.Equal(t, "Pagamento recusado pela operadora.", rejectionMessage([]byte("<html>")))
	assert.Equal(t, "CPF inválido", rejectionMessage([]byte(`{"mensagem":"CPF inválido"}`)))
	assert.Equal(t, "declined", rejectionMessage([]byte(`{"error":"declined"}`)))
}
