package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/maos-da-obra/internal/alerts"
	"github.com/Spok95/maos-da-obra/internal/apperr"
	"github.com/Spok95/maos-da-obra/internal/billing"
	"github.com/Spok95/maos-da-obra/internal/dashboard"
	"github.com/Spok95/maos-da-obra/internal/domain/expenses"
	"github.com/Spok95/maos-da-obra/internal/domain/materials"
	"github.com/Spok95/maos-da-obra/internal/domain/notifications"
	"github.com/Spok95/maos-da-obra/internal/domain/pushsubs"
	"github.com/Spok95/maos-da-obra/internal/domain/steps"
	"github.com/Spok95/maos-da-obra/internal/domain/subscriptions"
	"github.com/Spok95/maos-da-obra/internal/domain/users"
	"github.com/Spok95/maos-da-obra/internal/domain/works"
	"github.com/Spok95/maos-da-obra/internal/infra/logger"
)

const (
	secret      = "test-secret"
	supabaseURL = "https://proj.supabase.co"
)

var now = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func init() { gin.SetMode(gin.TestMode) }

type fakeUsers struct {
	byID    map[uuid.UUID]*users.User
	ensured int
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*users.User, error) {
	return f.byID[id], nil
}

func (f *fakeUsers) Ensure(_ context.Context, p users.Profile, plan string, until time.Time) (*users.User, error) {
	f.ensured++
	u := &users.User{ID: p.ID, Email: p.Email, Name: p.Name, Plan: subscriptions.Plan(plan), SubscriptionExpiresAt: &until, IsTrial: true}
	f.byID[p.ID] = u
	return u, nil
}

func (f *fakeUsers) SetTelegramChat(_ context.Context, id uuid.UUID, chatID *int64) error {
	f.byID[id].TelegramChatID = chatID
	return nil
}

type fakeWorks struct{ byID map[uuid.UUID]*works.Work }

func (f *fakeWorks) ListByUser(_ context.Context, userID uuid.UUID) ([]works.Work, error) {
	var out []works.Work
	for _, w := range f.byID {
		if w.UserID == userID {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (f *fakeWorks) Get(_ context.Context, userID, id uuid.UUID) (*works.Work, error) {
	w, ok := f.byID[id]
	if !ok || w.UserID != userID {
		return nil, apperr.NotFound("obra")
	}
	return w, nil
}

func (f *fakeWorks) Create(_ context.Context, w *works.Work) (*works.Work, error) {
	w.ID = uuid.New()
	f.byID[w.ID] = w
	return w, nil
}

func (f *fakeWorks) Update(ctx context.Context, w *works.Work) (*works.Work, error) {
	if _, err := f.Get(ctx, w.UserID, w.ID); err != nil {
		return nil, err
	}
	f.byID[w.ID] = w
	return w, nil
}

func (f *fakeWorks) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := f.Get(ctx, userID, id); err != nil {
		return err
	}
	delete(f.byID, id)
	return nil
}

type fakeSteps struct{ items []steps.Step }

func (f *fakeSteps) List(_ context.Context, workID uuid.UUID) ([]steps.Step, error) {
	var out []steps.Step
	for _, s := range f.items {
		if s.WorkID == workID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSteps) Get(_ context.Context, workID, id uuid.UUID) (*steps.Step, error) {
	for _, s := range f.items {
		if s.WorkID == workID && s.ID == id {
			return &s, nil
		}
	}
	return nil, apperr.NotFound("etapa")
}

func (f *fakeSteps) Create(_ context.Context, s *steps.Step) (*steps.Step, error) {
	s.ID = uuid.New()
	f.items = append(f.items, *s)
	return s, nil
}

func (f *fakeSteps) Update(ctx context.Context, s *steps.Step) (*steps.Step, error) {
	for i := range f.items {
		if f.items[i].WorkID == s.WorkID && f.items[i].ID == s.ID {
			f.items[i] = *s
			return s, nil
		}
	}
	return nil, apperr.NotFound("etapa")
}

func (f *fakeSteps) Delete(ctx context.Context, workID, id uuid.UUID) error {
	for i := range f.items {
		if f.items[i].WorkID == workID && f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("etapa")
}

type fakeProxy struct {
	calls  int
	status int
	body   string
}

func (f *fakeProxy) Forward(_ context.Context, _ string, _ []byte) (int, []byte, error) {
	f.calls++
	return f.status, []byte(f.body), nil
}

type fakePushSubs struct{ saved []pushsubs.Subscription }

func (f *fakePushSubs) Upsert(_ context.Context, s pushsubs.Subscription) error {
	f.saved = append(f.saved, s)
	return nil
}

func (f *fakePushSubs) Delete(context.Context, uuid.UUID, string) error { return nil }

type fakeBilling struct{ checkouts int }

func (f *fakeBilling) CheckoutURL(p subscriptions.Plan) (string, error) {
	if !p.Valid() {
		return "", apperr.Invalid("planId", "Plano inválido.")
	}
	return "https://app.test/checkout?plan=" + string(p), nil
}

func (f *fakeBilling) Checkout(context.Context, *users.User, billing.CheckoutRequest) (*billing.CheckoutResult, error) {
	f.checkouts++
	return &billing.CheckoutResult{Redirect: billing.SuccessRedirect}, nil
}

func (f *fakeBilling) Poll(context.Context, *users.User, string) (*billing.ChargeStatus, error) {
	return nil, apperr.NotFound("cobrança")
}

type fakeSnapshots struct{ works *fakeWorks }

func (f fakeSnapshots) Load(ctx context.Context, userID, workID uuid.UUID) (*dashboard.Snapshot, error) {
	w, err := f.works.Get(ctx, userID, workID)
	if err != nil {
		return nil, err
	}
	return &dashboard.Snapshot{
		Work:     *w,
		Expenses: []expenses.Expense{{Amount: decimal.NewFromInt(4100), PaidAmount: decimal.NewFromInt(4100)}},
		Materials: []materials.Material{
			{PlannedQty: decimal.NewFromInt(100), PurchasedQty: decimal.NewFromInt(80)},
			{PlannedQty: decimal.NewFromInt(50), PurchasedQty: decimal.NewFromInt(50)},
			{PlannedQty: decimal.NewFromInt(500), PurchasedQty: decimal.Zero},
		},
	}, nil
}

type fakeAlerts struct{ calls int }

func (f *fakeAlerts) Generate(context.Context, alerts.Input) []notifications.Notification {
	f.calls++
	return nil
}

type env struct {
	router  http.Handler
	users   *fakeUsers
	works   *fakeWorks
	steps   *fakeSteps
	proxy   *fakeProxy
	push    *fakePushSubs
	billing *fakeBilling
	alerts  *fakeAlerts
}

func newEnv(t *testing.T, mutate ...func(*Deps)) *env {
	t.Helper()
	e := &env{
		users:   &fakeUsers{byID: map[uuid.UUID]*users.User{}},
		works:   &fakeWorks{byID: map[uuid.UUID]*works.Work{}},
		steps:   &fakeSteps{},
		proxy:   &fakeProxy{status: http.StatusOK, body: `{"id":"ch_1","status":"paid"}`},
		push:    &fakePushSubs{},
		billing: &fakeBilling{},
		alerts:  &fakeAlerts{},
	}
	d := Deps{
		Log:            logger.Discard(),
		TrialDays:      7,
		RateLimitRPS:   100,
		RateLimitBurst: 100,
		Auth:           NewAuthenticator(supabaseURL, secret),
		Users:          e.users,
		Works:          e.works,
		Steps:          e.steps,
		PushSubs:       e.push,
		Billing:        e.billing,
		Proxy:          e.proxy,
		Alerts:         e.alerts,
		Snapshots:      fakeSnapshots{works: e.works},
	}
	for _, m := range mutate {
		m(&d)
	}
	a := New(d)
	a.now = func() time.Time { return now }
	e.router = a.Router()
	return e
}

func token(t *testing.T, sub string, mutate ...func(*supabaseClaims)) string {
	t.Helper()
	c := supabaseClaims{
		Email:        "ana@example.com",
		UserMetadata: map[string]any{"full_name": "Ana Souza"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    supabaseURL + "/auth/v1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	for _, m := range mutate {
		m(&c)
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func (e *env) do(method, path, tok string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *env) addUser(plan subscriptions.Plan, expires *time.Time, trial bool) *users.User {
	u := &users.User{ID: uuid.New(), Plan: plan, SubscriptionExpiresAt: expires, IsTrial: trial}
	e.users.byID[u.ID] = u
	return u
}

func (e *env) addWork(owner uuid.UUID) *works.Work {
	w := &works.Work{ID: uuid.New(), UserID: owner, Name: "Casa", BudgetPlanned: decimal.NewFromInt(100000)}
	e.works.byID[w.ID] = w
	return w
}

func ptr(t time.Time) *time.Time { return &t }

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthIsPublic(t *testing.T) {
	e := newEnv(t)
	rec := e.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRejectsMissingAndForgedTokens(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	wrongIssuer := token(t, uuid.NewString(), func(c *supabaseClaims) { c.Issuer = "https://evil/auth/v1" })
	rec = e.do(http.MethodGet, "/api/me", wrongIssuer, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired := token(t, uuid.NewString(), func(c *supabaseClaims) {
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	})
	rec = e.do(http.MethodGet, "/api/me", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, e.users.ensured)
}

func TestAuthWithoutSecretIsConfigurationError(t *testing.T) {
	e := newEnv(t, func(d *Deps) { d.Auth = NewAuthenticator(supabaseURL, "") })
	rec := e.do(http.MethodGet, "/api/me", "any", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "SUPABASE_JWT_SECRET")
}

func TestFirstLoginStartsTrial(t *testing.T) {
	e := newEnv(t)
	id := uuid.New()

	rec := e.do(http.MethodGet, "/api/me", token(t, id.String()), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["active"])
	assert.Equal(t, true, body["isTrial"])
	assert.Equal(t, "MENSAL", body["plan"])
	assert.Equal(t, float64(7), body["trialDaysRemaining"])
	assert.Equal(t, "Ana Souza", body["name"])

	u := e.users.byID[id]
	require.NotNil(t, u)
	assert.Equal(t, now.AddDate(0, 0, 7), *u.SubscriptionExpiresAt)

	e.do(http.MethodGet, "/api/me", token(t, id.String()), nil)
	assert.Equal(t, 1, e.users.ensured)
}

func TestAccessGateRedirectsExpiredUser(t *testing.T) {
	e := newEnv(t)
	u := e.addUser(subscriptions.PlanMensal, ptr(now.Add(-time.Second)), false)
	tok := token(t, u.ID.String())

	rec := e.do(http.MethodGet, "/api/works", tok, nil)
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "/billing", decode(t, rec)["redirect"])

	rec = e.do(http.MethodGet, "/api/me", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["active"])
	assert.Equal(t, "/billing", body["redirect"])

	rec = e.do(http.MethodGet, "/api/me?route=/billing", tok, nil)
	_, hasRedirect := decode(t, rec)["redirect"]
	assert.False(t, hasRedirect)

	rec = e.do(http.MethodGet, "/api/billing/plans", tok, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVitalicioNeverExpires(t *testing.T) {
	e := newEnv(t)
	u := e.addUser(subscriptions.PlanVitalicio, ptr(now.AddDate(-5, 0, 0)), false)
	rec := e.do(http.MethodGet, "/api/works", token(t, u.ID.String()), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", rec.Body.String())
}

func TestAIGate(t *testing.T) {
	e := newEnv(t)
	paid := e.addUser(subscriptions.PlanMensal, ptr(now.AddDate(0, 1, 0)), false)
	w := e.addWork(paid.ID)

	rec := e.do(http.MethodGet, "/api/works/"+w.ID.String()+"/report.xlsx", token(t, paid.ID.String()), nil)
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "recurso_premium", decode(t, rec)["erro"])

	life := e.addUser(subscriptions.PlanVitalicio, nil, false)
	w2 := e.addWork(life.ID)
	rec = e.do(http.MethodGet, "/api/works/"+w2.ID.String()+"/report.xlsx", token(t, life.ID.String()), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "relatorio_Casa_")
	assert.NotEmpty(t, rec.Body.Bytes())
}

func TestForeignWorkIsNotFound(t *testing.T) {
	e := newEnv(t)
	owner := e.addUser(subscriptions.PlanVitalicio, nil, false)
	other := e.addUser(subscriptions.PlanVitalicio, nil, false)
	w := e.addWork(owner.ID)

	rec := e.do(http.MethodGet, "/api/works/"+w.ID.String()+"/steps", token(t, other.ID.String()), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "nao_encontrado", body["erro"])
	assert.Equal(t, "/dashboard", body["redirect"])

	rec = e.do(http.MethodGet, "/api/works/not-a-uuid", token(t, other.ID.String()), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWorkScopedCRUD(t *testing.T) {
	e := newEnv(t)
	u := e.addUser(subscriptions.PlanVitalicio, nil, false)
	w := e.addWork(u.ID)
	tok := token(t, u.ID.String())
	base := "/api/works/" + w.ID.String() + "/steps"

	rec := e.do(http.MethodPost, base, tok, map[string]any{"status": "IN_PROGRESS"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "validacao", body["erro"])
	assert.Equal(t, "name", body["campo"])

	rec = e.do(http.MethodPost, base, tok, map[string]any{"name": "Fundação", "workId": uuid.NewString(), "endDate": "2024-06-20"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	assert.Equal(t, w.ID.String(), created["workId"])
	id := created["id"].(string)

	rec = e.do(http.MethodPut, base+"/"+id, tok, map[string]any{"name": "Fundação e baldrame", "status": "COMPLETED"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "COMPLETED", decode(t, rec)["status"])

	rec = e.do(http.MethodGet, base, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []steps.Step
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Fundação e baldrame", list[0].Name)

	rec = e.do(http.MethodDelete, base+"/"+id, tok, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = e.do(http.MethodGet, base+"/"+id, tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSummaryRunsAlerts(t *testing.T) {
	e := newEnv(t)
	u := e.addUser(subscriptions.PlanVitalicio, nil, false)
	w := e.addWork(u.ID)

	rec := e.do(http.MethodGet, "/api/works/"+w.ID.String()+"/summary", token(t, u.ID.String()), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "95900", body["balance"])
	assert.Equal(t, float64(2), body["pendingMaterials"])
	assert.Equal(t, []any{}, body["notificationsCreated"])
	assert.Equal(t, 1, e.alerts.calls)
}

func TestProxyRequiresDocumentBeforeGateway(t *testing.T) {
	e := newEnv(t)
	u := e.addUser(subscriptions.PlanMensal, ptr(now.Add(-time.Hour)), false)
	tok := token(t, u.ID.String())

	rec := e.do(http.MethodPost, "/api/create-pix", tok, map[string]any{
		"amount": 29.9,
		"client": map[string]any{"name": "Ana", "email": "ana@example.com"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "client.document", decode(t, rec)["campo"])
	assert.Zero(t, e.proxy.calls)
}

func TestProxyPassesGatewayResult(t *testing.T) {
	e := newEnv(t)
	u := e.addUser(subscriptions.PlanMensal, nil, false)
	tok := token(t, u.ID.String())
	req := map[string]any{
		"amount": 29.9,
		"client": map[string]any{"name": "Ana", "email": "ana@example.com", "document": "123.456.789-09"},
	}

	rec := e.do(http.MethodPost, "/api/create-card", tok, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"ch_1","status":"paid"}`, rec.Body.String())

	e.proxy.status, e.proxy.body = http.StatusPaymentRequired, `{"message":"Cartão sem saldo"}`
	rec = e.do(http.MethodPost, "/api/create-card", tok, req)
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "pagamento_recusado", body["erro"])
	assert.Equal(t, "Cartão sem saldo", body["mensagem"])
}

func TestCheckoutValidation(t *testing.T) {
	e := newEnv(t)
	u := e.addUser("", nil, false)
	tok := token(t, u.ID.String())

	rec := e.do(http.MethodPost, "/api/billing/checkout", tok, map[string]any{"planId": "MENSAL", "method": "BOLETO"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "method", decode(t, rec)["campo"])
	assert.Zero(t, e.billing.checkouts)

	rec = e.do(http.MethodPost, "/api/billing/checkout", tok, map[string]any{"planId": "MENSAL", "method": "PIX"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, billing.SuccessRedirect, decode(t, rec)["redirect"])

	rec = e.do(http.MethodPost, "/api/billing/subscribe", tok, map[string]any{"planId": "SEMESTRAL"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.test/checkout?plan=SEMESTRAL", decode(t, rec)["checkoutUrl"])
}

func TestSubscribePushUsesTokenOwner(t *testing.T) {
	e := newEnv(t)
	u := e.addUser(subscriptions.PlanMensal, nil, false)
	tok := token(t, u.ID.String())
	sub := map[string]any{"endpoint": "https://push.example/abc", "keys": map[string]any{"p256dh": "p", "auth": "a"}}

	rec := e.do(http.MethodPost, "/api/subscribe-push", tok, map[string]any{"userId": uuid.NewString(), "subscription": sub})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(http.MethodPost, "/api/subscribe-push", tok, map[string]any{"userId": u.ID.String(), "subscription": sub})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, e.push.saved, 1)
	assert.Equal(t, u.ID, e.push.saved[0].UserID)

	rec = e.do(http.MethodPost, "/api/subscribe-push", tok, map[string]any{"subscription": map[string]any{"endpoint": "nope"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimitPerUser(t *testing.T) {
	e := newEnv(t, func(d *Deps) { d.RateLimitRPS, d.RateLimitBurst = 0.001, 1 })
	u := e.addUser(subscriptions.PlanVitalicio, nil, false)
	other := e.addUser(subscriptions.PlanVitalicio, nil, false)

	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/api/me", token(t, u.ID.String()), nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, e.do(http.MethodGet, "/api/me", token(t, u.ID.String()), nil).Code)
	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/api/me", token(t, other.ID.String()), nil).Code)
}

func TestIdleLimitersAreEvicted(t *testing.T) {
	a := New(Deps{Log: logger.Discard()})
	clock := now
	a.now = func() time.Time { return clock }

	first, second := uuid.New(), uuid.New()
	a.limiter(first)
	clock = clock.Add(5 * time.Minute)
	a.limiter(second)
	assert.Len(t, a.limiters, 2)

	clock = clock.Add(limiterIdle + time.Minute)
	third := uuid.New()
	a.limiter(third)
	assert.Len(t, a.limiters, 1)
	assert.Contains(t, a.limiters, third)
}

func TestPlansIncludeGatewayPublicKey(t *testing.T) {
	e := newEnv(t, func(d *Deps) { d.PaymentPublicKey = "pk_test" })
	u := e.addUser(subscriptions.PlanMensal, ptr(now.Add(-time.Hour)), false)

	rec := e.do(http.MethodGet, "/api/billing/plans", token(t, u.ID.String()), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "pk_test", body["publicKey"])
	plans, ok := body["plans"].([]any)
	require.True(t, ok)
	assert.Len(t, plans, 3)
}
