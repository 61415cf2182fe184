package billing

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Spok95/maos-da-obra/internal/apperr"
	"github.com/Spok95/maos-da-obra/internal/domain/subscriptions"
	"github.com/Spok95/maos-da-obra/internal/infra/payments"
)

// Mode - как продаётся план: разовый платёж с рассрочкой или подписка.
type Mode struct {
	OneTime           bool
	MaxInstallments   int
	PeriodicityMonths int
}

// ModeFor: VITALICIO - разовый платёж (1–2 части), MENSAL/SEMESTRAL - подписка на 1/6 месяцев.
func ModeFor(p subscriptions.Plan) (Mode, error) {
	switch p {
	case subscriptions.PlanVitalicio:
		return Mode{OneTime: true, MaxInstallments: 2}, nil
	case subscriptions.PlanMensal:
		return Mode{PeriodicityMonths: 1, MaxInstallments: 1}, nil
	case subscriptions.PlanSemestral:
		return Mode{PeriodicityMonths: 6, MaxInstallments: 1}, nil
	}
	return Mode{}, apperr.Invalid("planId", "Plano inválido.")
}

// SplitInstallments делит сумму на n равных частей до копеек; остаток округления - в последней.
func SplitInstallments(total decimal.Decimal, n int) ([]decimal.Decimal, error) {
	if n < 1 {
		return nil, apperr.Invalid("installments", "Número de parcelas inválido.")
	}
	each := total.Div(decimal.NewFromInt(int64(n))).Truncate(2)
	out := make([]decimal.Decimal, n)
	sum := decimal.Zero
	for i := 0; i < n-1; i++ {
		out[i] = each
		sum = sum.Add(each)
	}
	out[n-1] = total.Sub(sum)
	return out, nil
}

// NewTransactionID - идемпотентный ключ счёта: txn_<unix ms>_<префикс пользователя>.
func NewTransactionID(userID uuid.UUID, now time.Time) string {
	return "txn_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + userID.String()[:8]
}

// CardPayload собирает запрос шлюзу для оплаты картой.
func CardPayload(plan subscriptions.Plan, installments int, card NormalizedCard, customer payments.Customer, txnID string) (payments.CardRequest, error) {
	offer, ok := subscriptions.Catalog[plan]
	if !ok {
		return payments.CardRequest{}, apperr.Invalid("planId", "Plano inválido.")
	}
	mode, err := ModeFor(plan)
	if err != nil {
		return payments.CardRequest{}, err
	}
	if installments == 0 {
		installments = 1
	}
	if installments > mode.MaxInstallments {
		return payments.CardRequest{}, apperr.Invalid("installments", fmt.Sprintf("Máximo de %d parcela(s) para este plano.", mode.MaxInstallments))
	}

	req := payments.CardRequest{
		TransactionID: txnID,
		Description:   "Mãos da Obra - Plano " + offer.Name,
		Amount:        offer.Price,
		Card: payments.Card{
			Number:     card.Number,
			HolderName: card.HolderName,
			Expiry:     card.Expiry,
			CVV:        card.CVV,
		},
		Customer: customer,
	}
	if mode.OneTime {
		parts, err := SplitInstallments(offer.Price, installments)
		if err != nil {
			return payments.CardRequest{}, err
		}
		for i, p := range parts {
			req.Installments = append(req.Installments, payments.Installment{Number: i + 1, Amount: p})
		}
	} else {
		req.Recurrence = &payments.Recurrence{PeriodicityMonths: mode.PeriodicityMonths}
	}
	return req, nil
}

// PixPayload - запрос шлюзу на PIX. Рекуррентности у PIX нет, оплачивается один период.
func PixPayload(plan subscriptions.Plan, customer payments.Customer, txnID string) (payments.PixRequest, error) {
	offer, ok := subscriptions.Catalog[plan]
	if !ok {
		return payments.PixRequest{}, apperr.Invalid("planId", "Plano inválido.")
	}
	return payments.PixRequest{
		TransactionID:    txnID,
		Description:      "Mãos da Obra - Plano " + offer.Name,
		Amount:           offer.Price,
		Customer:         customer,
		ExpiresInMinutes: 30,
	}, nil
}
