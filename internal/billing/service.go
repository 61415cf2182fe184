package billing

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Spok95/maos-da-obra/internal/access"
	"github.com/Spok95/maos-da-obra/internal/apperr"
	"github.com/Spok95/maos-da-obra/internal/domain/attempts"
	"github.com/Spok95/maos-da-obra/internal/domain/charges"
	"github.com/Spok95/maos-da-obra/internal/domain/subscriptions"
	"github.com/Spok95/maos-da-obra/internal/domain/users"
	"github.com/Spok95/maos-da-obra/internal/infra/metrics"
	"github.com/Spok95/maos-da-obra/internal/infra/payments"
)

// SuccessRedirect - клиент показывает по флагу одноразовое подтверждение.
const SuccessRedirect = "/dashboard?pagamento=sucesso"

// staleSubmit - через сколько зависшая отправка перестаёт блокировать новую.
const staleSubmit = 2 * time.Minute

var ErrInFlight = errors.New("billing: checkout already in flight")

type Gateway interface {
	CreateCard(ctx context.Context, req payments.CardRequest) (*payments.Charge, error)
	CreatePix(ctx context.Context, req payments.PixRequest) (*payments.Charge, error)
	GetCharge(ctx context.Context, gatewayID string) (*payments.Charge, error)
}

type ChargeStore interface {
	Upsert(ctx context.Context, c *charges.Charge) (*charges.Charge, error)
	GetByTransaction(ctx context.Context, txnID string) (*charges.Charge, error)
	GetByGatewayID(ctx context.Context, gatewayID string) (*charges.Charge, error)
	MarkFailed(ctx context.Context, txnID string) error
}

type AttemptStore interface {
	Get(ctx context.Context, userID uuid.UUID) (*attempts.Item, error)
	TryBegin(ctx context.Context, userID uuid.UUID, payload attempts.Payload, staleAfter time.Duration) (bool, error)
	Set(ctx context.Context, userID uuid.UUID, state attempts.State, payload attempts.Payload) error
}

// Settler отмечает счёт оплаченным и активирует план одной операцией.
// changed=false - счёт уже был оплачен раньше, план не трогаем.
// Renew продлевает рекуррентный план до срока, присланного шлюзом.
type Settler interface {
	Settle(ctx context.Context, txnID string, now time.Time) (c *charges.Charge, changed bool, err error)
	Renew(ctx context.Context, userID uuid.UUID, plan subscriptions.Plan, until time.Time) error
}

type Service struct {
	log      *slog.Logger
	gw       Gateway
	charges  ChargeStore
	attempts AttemptStore
	settler  Settler
	baseURL  string
	now      func() time.Time

	// OnPaid вызывается один раз на оплаченный счёт.
	OnPaid func(ctx context.Context, c *charges.Charge)
}

func NewService(log *slog.Logger, gw Gateway, cs ChargeStore, as AttemptStore, st Settler, baseURL string) *Service {
	return &Service{
		log:      log.With("component", "billing"),
		gw:       gw,
		charges:  cs,
		attempts: as,
		settler:  st,
		baseURL:  strings.TrimRight(baseURL, "/"),
		now:      time.Now,
	}
}

// CheckoutURL - куда клиент переходит после выбора плана.
func (s *Service) CheckoutURL(plan subscriptions.Plan) (string, error) {
	if !plan.Valid() {
		return "", apperr.Invalid("planId", "Plano inválido.")
	}
	return s.baseURL + "/checkout?plan=" + url.QueryEscape(string(plan)), nil
}

type CheckoutRequest struct {
	PlanID       subscriptions.Plan `json:"planId" binding:"required"`
	Method       charges.Method     `json:"method" binding:"required,oneof=CARD PIX"`
	Card         *CardInput         `json:"card"`
	Installments int                `json:"installments"`
	Client       payments.Customer  `json:"client"`
}

type CheckoutResult struct {
	Status        charges.Status     `json:"status"`
	TransactionID string             `json:"transactionId"`
	Plan          subscriptions.Plan `json:"plan"`
	ExpiresAt     *time.Time         `json:"expiresAt,omitempty"`
	Redirect      string             `json:"redirect,omitempty"`
	QRCode        string             `json:"qrCode,omitempty"`
	QRCodeText    string             `json:"qrCodeText,omitempty"`
}

// ValidateCustomer - документ (CPF/CNPJ) обязателен до любого обращения к шлюзу.
func ValidateCustomer(c payments.Customer) (payments.Customer, error) {
	doc := digitsOnly(c.Document)
	if doc == "" {
		return c, apperr.Invalid("client.document", "Informe o CPF ou CNPJ do titular.")
	}
	if len(doc) != 11 && len(doc) != 14 {
		return c, apperr.Invalid("client.document", "CPF ou CNPJ inválido.")
	}
	if strings.TrimSpace(c.Name) == "" {
		return c, apperr.Invalid("client.name", "Informe o nome completo.")
	}
	if !strings.Contains(c.Email, "@") {
		return c, apperr.Invalid("client.email", "E-mail inválido.")
	}
	c.Document = doc
	c.Phone = digitsOnly(c.Phone)
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	return c, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type prepared struct {
	card     NormalizedCard
	customer payments.Customer
}

func (s *Service) validate(req CheckoutRequest) (prepared, error) {
	var p prepared
	if !req.PlanID.Valid() {
		return p, apperr.Invalid("planId", "Plano inválido.")
	}
	cust, err := ValidateCustomer(req.Client)
	if err != nil {
		return p, err
	}
	p.customer = cust

	switch req.Method {
	case charges.MethodCard:
		if req.Card == nil {
			return p, apperr.Invalid("card", "Informe os dados do cartão.")
		}
		card, err := NormalizeCard(*req.Card)
		if err != nil {
			return p, err
		}
		p.card = card
		mode, _ := ModeFor(req.PlanID)
		if req.Installments > mode.MaxInstallments {
			return p, apperr.Invalid("installments", "Número de parcelas inválido para este plano.")
		}
	case charges.MethodPix:
	default:
		return p, apperr.Invalid("method", "Forma de pagamento inválida.")
	}
	return p, nil
}

// transactionFor переиспользует ключ после сетевой ошибки (шлюз дедуплицирует),
// после отказа или успеха создаёт новый.
func transactionFor(prev *attempts.Item, req CheckoutRequest, userID uuid.UUID, now time.Time) string {
	if prev != nil && prev.State == attempts.StateNetworkError {
		plan, _ := attempts.GetString(prev.Payload, "plan")
		method, _ := attempts.GetString(prev.Payload, "method")
		txn, ok := attempts.GetString(prev.Payload, "txn")
		if ok && txn != "" && plan == string(req.PlanID) && method == string(req.Method) {
			return txn
		}
	}
	return NewTransactionID(userID, now)
}

// Checkout - полный цикл оплаты: проверка, отправка в шлюз, активация плана.
func (s *Service) Checkout(ctx context.Context, u *users.User, req CheckoutRequest) (*CheckoutResult, error) {
	m := NewMachine()
	_ = m.To(attempts.StateValidating)

	p, err := s.validate(req)
	if err != nil {
		_ = m.To(attempts.StateIdle)
		metrics.CheckoutTotal.WithLabelValues(string(req.PlanID), string(req.Method), "invalid").Inc()
		return nil, err
	}

	prev, err := s.attempts.Get(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !Resubmittable(prev.State) && now.Sub(prev.UpdatedAt) < staleSubmit {
		return nil, inFlight()
	}
	txn := transactionFor(prev, req, u.ID, now)
	payload := attempts.Payload{"txn": txn, "plan": string(req.PlanID), "method": string(req.Method)}

	started, err := s.attempts.TryBegin(ctx, u.ID, payload, staleSubmit)
	if err != nil {
		return nil, err
	}
	if !started {
		return nil, inFlight()
	}
	_ = m.To(attempts.StateSubmitting)

	offer := subscriptions.Catalog[req.PlanID]
	if _, err := s.charges.Upsert(ctx, &charges.Charge{
		UserID:        u.ID,
		Plan:          req.PlanID,
		Method:        req.Method,
		TransactionID: txn,
		Amount:        offer.Price,
		Status:        charges.StatusPending,
	}); err != nil {
		s.finish(ctx, m, u.ID, attempts.StateNetworkError, payload)
		return nil, err
	}

	var gc *payments.Charge
	switch req.Method {
	case charges.MethodCard:
		var cr payments.CardRequest
		cr, err = CardPayload(req.PlanID, req.Installments, p.card, p.customer, txn)
		if err == nil {
			gc, err = s.gw.CreateCard(ctx, cr)
		}
	case charges.MethodPix:
		var pr payments.PixRequest
		pr, err = PixPayload(req.PlanID, p.customer, txn)
		if err == nil {
			gc, err = s.gw.CreatePix(ctx, pr)
		}
	}
	if err != nil {
		return nil, s.fail(ctx, m, u.ID, req, txn, payload, err)
	}

	if _, err := s.charges.Upsert(ctx, &charges.Charge{
		UserID:        u.ID,
		Plan:          req.PlanID,
		Method:        req.Method,
		TransactionID: txn,
		GatewayID:     gc.ID,
		Amount:        offer.Price,
		Status:        charges.StatusPending,
	}); err != nil {
		s.log.Error("store gateway id failed", "txn", txn, "gateway_id", gc.ID, "err", err)
	}
	if strings.EqualFold(gc.Status, payments.StatusFailed) {
		return nil, s.fail(ctx, m, u.ID, req, txn, payload, payments.Rejection(http.StatusPaymentRequired, gc.Raw))
	}

	res := &CheckoutResult{
		Status:        charges.StatusPending,
		TransactionID: txn,
		Plan:          req.PlanID,
		QRCode:        gc.QRCode,
		QRCodeText:    gc.QRCodeText,
	}
	if gc.Paid() {
		if err := s.settle(context.WithoutCancel(ctx), txn); err != nil {
			// оплата прошла, план активирует webhook/опрос
			s.log.Error("settle after card payment failed", "txn", txn, "err", err)
		} else {
			res.Status = charges.StatusPaid
			res.ExpiresAt = subscriptions.ExpiresAt(req.PlanID, s.now())
			res.Redirect = SuccessRedirect
		}
	}

	s.finish(ctx, m, u.ID, attempts.StateSuccess, payload)
	metrics.CheckoutTotal.WithLabelValues(string(req.PlanID), string(req.Method), strings.ToLower(string(res.Status))).Inc()
	s.log.Info("checkout submitted", "user_id", u.ID, "plan", req.PlanID, "method", req.Method, "txn", txn, "status", res.Status)
	return res, nil
}

func (s *Service) fail(ctx context.Context, m *Machine, userID uuid.UUID, req CheckoutRequest, txn string, payload attempts.Payload, err error) error {
	var (
		gr *apperr.GatewayRejection
		ve *apperr.ValidationError
	)
	switch {
	case errors.As(err, &gr), errors.As(err, &ve):
		if mfErr := s.charges.MarkFailed(context.WithoutCancel(ctx), txn); mfErr != nil {
			s.log.Error("mark charge failed", "txn", txn, "err", mfErr)
		}
		s.finish(ctx, m, userID, attempts.StateRejected, payload)
		metrics.CheckoutTotal.WithLabelValues(string(req.PlanID), string(req.Method), "rejected").Inc()
		s.log.Info("checkout rejected", "user_id", userID, "txn", txn, "err", err)
	default:
		s.finish(ctx, m, userID, attempts.StateNetworkError, payload)
		metrics.CheckoutTotal.WithLabelValues(string(req.PlanID), string(req.Method), "network_error").Inc()
		s.log.Warn("checkout network error", "user_id", userID, "txn", txn, "err", err)
	}
	return err
}

func (s *Service) finish(ctx context.Context, m *Machine, userID uuid.UUID, state attempts.State, payload attempts.Payload) {
	if err := m.To(state); err != nil {
		s.log.Error("checkout state", "err", err)
	}
	// отказ и сетевая ошибка оставляют txn в payload: по нему решается, переиспользовать ли ключ.
	// Запрос мог быть отменён клиентом, состояние всё равно фиксируется.
	if err := s.attempts.Set(context.WithoutCancel(ctx), userID, state, payload); err != nil {
		s.log.Error("store checkout attempt failed", "user_id", userID, "state", state, "err", err)
	}
}

func inFlight() error {
	return &apperr.ConflictError{Message: "Seu pagamento já está sendo processado. Aguarde.", Err: ErrInFlight}
}

func (s *Service) settle(ctx context.Context, txn string) error {
	c, changed, err := s.settler.Settle(ctx, txn, s.now())
	if err != nil {
		return err
	}
	if changed {
		s.log.Info("plan activated", "user_id", c.UserID, "plan", c.Plan, "txn", txn)
		if s.OnPaid != nil {
			s.OnPaid(ctx, c)
		}
	}
	return nil
}

// HandleEvent применяет webhook шлюза. Повтор события оплаты план повторно не продлевает.
func (s *Service) HandleEvent(ctx context.Context, ev payments.Event) error {
	txn := ev.Data.TransactionID
	if txn == "" && ev.Data.ID != "" {
		c, err := s.charges.GetByGatewayID(ctx, ev.Data.ID)
		if err != nil {
			if apperr.IsNotFound(err) {
				s.log.Warn("webhook for unknown charge", "gateway_id", ev.Data.ID)
				return nil
			}
			return err
		}
		txn = c.TransactionID
	}
	if txn == "" {
		s.log.Warn("webhook without transaction", "event", ev.Type)
		return nil
	}

	switch {
	case ev.Type == "charge.paid" || strings.EqualFold(ev.Data.Status, payments.StatusPaid):
		err := s.settle(ctx, txn)
		if apperr.IsNotFound(err) {
			s.log.Warn("webhook for unknown transaction", "txn", txn)
			return nil
		}
		return err
	case ev.Type == "charge.failed" || strings.EqualFold(ev.Data.Status, payments.StatusFailed):
		return s.charges.MarkFailed(ctx, txn)
	case ev.Type == payments.EventRenewed:
		return s.renew(ctx, txn, ev.Data.PeriodEnd)
	}
	return nil
}

// renew продлевает MENSAL/SEMESTRAL по очередному списанию подписки.
// Неразборчивый или прошедший срок план не продлевает.
func (s *Service) renew(ctx context.Context, txn, periodEnd string) error {
	c, err := s.charges.GetByTransaction(ctx, txn)
	if err != nil {
		if apperr.IsNotFound(err) {
			s.log.Warn("renewal for unknown transaction", "txn", txn)
			return nil
		}
		return err
	}
	if !subscriptions.Catalog[c.Plan].Recurring {
		s.log.Warn("renewal for non-recurring plan", "txn", txn, "plan", c.Plan)
		return nil
	}
	if !access.ActiveFromRaw(c.Plan, periodEnd, s.now()) {
		s.log.Warn("renewal period end rejected", "txn", txn, "period_end", periodEnd)
		return nil
	}
	until, _ := access.ParseExpiry(periodEnd)
	if err := s.settler.Renew(ctx, c.UserID, c.Plan, until); err != nil {
		return err
	}
	s.log.Info("plan renewed", "user_id", c.UserID, "plan", c.Plan, "until", until)
	return nil
}

type ChargeStatus struct {
	TransactionID string             `json:"transactionId"`
	Status        charges.Status     `json:"status"`
	Plan          subscriptions.Plan `json:"plan"`
	Redirect      string             `json:"redirect,omitempty"`
}

// Poll - сверка PIX опросом: клиент спрашивает, пока счёт в PENDING.
func (s *Service) Poll(ctx context.Context, u *users.User, txn string) (*ChargeStatus, error) {
	c, err := s.charges.GetByTransaction(ctx, txn)
	if err != nil {
		return nil, err
	}
	if c.UserID != u.ID {
		return nil, apperr.NotFound("cobrança")
	}

	status := c.Status
	if status == charges.StatusPending && c.GatewayID != "" {
		gc, err := s.gw.GetCharge(ctx, c.GatewayID)
		switch {
		case err != nil:
			s.log.Warn("poll gateway failed", "txn", txn, "err", err)
		case gc.Paid():
			if err := s.settle(ctx, txn); err != nil {
				return nil, err
			}
			status = charges.StatusPaid
		case strings.EqualFold(gc.Status, payments.StatusFailed):
			if err := s.charges.MarkFailed(ctx, txn); err != nil {
				return nil, err
			}
			status = charges.StatusFailed
		}
	}

	out := &ChargeStatus{TransactionID: txn, Status: status, Plan: c.Plan}
	if status == charges.StatusPaid {
		out.Redirect = SuccessRedirect
	}
	return out, nil
}
