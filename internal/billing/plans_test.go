package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/maos-da-obra/internal/domain/subscriptions"
	"github.com/Spok95/maos-da-obra/internal/infra/payments"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestSplitInstallments(t *testing.T) {
	parts, err := SplitInstallments(d("247.00"), 2)
	require.NoError(t, err)
	assert.True(t, d("123.50").Equal(parts[0]))
	assert.True(t, d("123.50").Equal(parts[1]))

	parts, err = SplitInstallments(d("100.01"), 2)
	require.NoError(t, err)
	assert.True(t, d("50.00").Equal(parts[0]))
	assert.True(t, d("50.01").Equal(parts[1]))

	parts, err = SplitInstallments(d("100.00"), 3)
	require.NoError(t, err)
	assert.True(t, d("33.34").Equal(parts[2]))
	assert.True(t, d("100.00").Equal(parts[0].Add(parts[1]).Add(parts[2])))

	_, err = SplitInstallments(d("10"), 0)
	assert.Error(t, err)
}

func TestModeFor(t *testing.T) {
	m, err := ModeFor(subscriptions.PlanVitalicio)
	require.NoError(t, err)
	assert.True(t, m.OneTime)

	m, _ = ModeFor(subscriptions.PlanMensal)
	assert.Equal(t, 1, m.PeriodicityMonths)
	m, _ = ModeFor(subscriptions.PlanSemestral)
	assert.Equal(t, 6, m.PeriodicityMonths)

	_, err = ModeFor("ANUAL")
	assert.Error(t, err)
}

func TestCardPayload(t *testing.T) {
	card := NormalizedCard{Number: "4242424242424242", HolderName: "ANA", Expiry: "2028-12", CVV: "123"}
	cust := payments.Customer{Name: "Ana", Email: "ana@x.com", Document: "12345678909"}

	req, err := CardPayload(subscriptions.PlanVitalicio, 2, card, cust, "txn_1")
	require.NoError(t, err)
	assert.Nil(t, req.Recurrence)
	require.Len(t, req.Installments, 2)
	assert.Equal(t, "txn_1", req.TransactionID)

	req, err = CardPayload(subscriptions.PlanSemestral, 0, card, cust, "txn_2")
	require.NoError(t, err)
	require.NotNil(t, req.Recurrence)
	assert.Equal(t, 6, req.Recurrence.PeriodicityMonths)
	assert.Empty(t, req.Installments)

	_, err = CardPayload(subscriptions.PlanMensal, 2, card, cust, "txn_3")
	assert.Error(t, err)
	_, err = CardPayload(subscriptions.PlanVitalicio, 3, card, cust, "txn_4")
	assert.Error(t, err)
}

func TestNewTransactionID(t *testing.T) {
	id := uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")
	now := time.UnixMilli(1718020800000)
	assert.Equal(t, "txn_1718020800000_0f8fad5b", NewTransactionID(id, now))
}
