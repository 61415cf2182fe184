// Package api - HTTP-интерфейс для браузерного клиента.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/Spok95/maos-da-obra/internal/alerts"
	"github.com/Spok95/maos-da-obra/internal/assistant"
	"github.com/Spok95/maos-da-obra/internal/billing"
	"github.com/Spok95/maos-da-obra/internal/dashboard"
	"github.com/Spok95/maos-da-obra/internal/domain/checklists"
	"github.com/Spok95/maos-da-obra/internal/domain/contracts"
	"github.com/Spok95/maos-da-obra/internal/domain/expenses"
	"github.com/Spok95/maos-da-obra/internal/domain/files"
	"github.com/Spok95/maos-da-obra/internal/domain/materials"
	"github.com/Spok95/maos-da-obra/internal/domain/notifications"
	"github.com/Spok95/maos-da-obra/internal/domain/photos"
	"github.com/Spok95/maos-da-obra/internal/domain/pushsubs"
	"github.com/Spok95/maos-da-obra/internal/domain/steps"
	"github.com/Spok95/maos-da-obra/internal/domain/subscriptions"
	"github.com/Spok95/maos-da-obra/internal/domain/suppliers"
	"github.com/Spok95/maos-da-obra/internal/domain/users"
	"github.com/Spok95/maos-da-obra/internal/domain/workers"
	"github.com/Spok95/maos-da-obra/internal/domain/works"
	"github.com/Spok95/maos-da-obra/internal/infra/push"
)

type TokenVerifier interface {
	Verify(token string) (users.Profile, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*users.User, error)
	Ensure(ctx context.Context, p users.Profile, trialPlan string, trialUntil time.Time) (*users.User, error)
	SetTelegramChat(ctx context.Context, id uuid.UUID, chatID *int64) error
}

type WorkStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]works.Work, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*works.Work, error)
	Create(ctx context.Context, w *works.Work) (*works.Work, error)
	Update(ctx context.Context, w *works.Work) (*works.Work, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// Repository - CRUD сущности внутри объекта.
type Repository[T any] interface {
	List(ctx context.Context, workID uuid.UUID) ([]T, error)
	Get(ctx context.Context, workID, id uuid.UUID) (*T, error)
	Create(ctx context.Context, item *T) (*T, error)
	Update(ctx context.Context, item *T) (*T, error)
	Delete(ctx context.Context, workID, id uuid.UUID) error
}

type MaterialStore interface {
	Repository[materials.Material]
	RegisterPurchase(ctx context.Context, workID, id uuid.UUID, p materials.Purchase) (*materials.Material, *expenses.Expense, error)
}

type NotificationStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID, onlyUnread bool, limit int) ([]notifications.Notification, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

type PushStore interface {
	Upsert(ctx context.Context, s pushsubs.Subscription) error
	Delete(ctx context.Context, userID uuid.UUID, endpoint string) error
}

type PushNotifier interface {
	Notify(ctx context.Context, userID uuid.UUID, msg push.Message) (push.Report, error)
}

type Billing interface {
	CheckoutURL(plan subscriptions.Plan) (string, error)
	Checkout(ctx context.Context, u *users.User, req billing.CheckoutRequest) (*billing.CheckoutResult, error)
	Poll(ctx context.Context, u *users.User, txn string) (*billing.ChargeStatus, error)
}

// GatewayProxy пересылает тело запроса в шлюз как есть.
type GatewayProxy interface {
	Forward(ctx context.Context, path string, body []byte) (int, []byte, error)
}

type AlertGenerator interface {
	Generate(ctx context.Context, in alerts.Input) []notifications.Notification
}

type SnapshotLoader interface {
	Load(ctx context.Context, userID, workID uuid.UUID) (*dashboard.Snapshot, error)
}

type Assistant interface {
	Chat(ctx context.Context, userID uuid.UUID, message string, workID *uuid.UUID) (string, error)
	PlanWork(ctx context.Context, userID uuid.UUID, req assistant.PlanRequest) (*assistant.Plan, error)
}

// Deps - всё, что нужно роутеру. Собирается в main.
type Deps struct {
	Log            *slog.Logger
	Location       *time.Location
	TrialDays      int
	RateLimitRPS   float64
	RateLimitBurst int
	MetricsEnabled bool
	VAPIDPublicKey string
	// PaymentPublicKey отдаётся клиенту для токенизации карты.
	PaymentPublicKey string

	Auth          TokenVerifier
	Users         UserStore
	Works         WorkStore
	Steps         Repository[steps.Step]
	Materials     MaterialStore
	Expenses      Repository[expenses.Expense]
	Workers       Repository[workers.Worker]
	Suppliers     Repository[suppliers.Supplier]
	Photos        Repository[photos.Photo]
	Files         Repository[files.File]
	Checklist     Repository[checklists.Item]
	Contracts     Repository[contracts.Contract]
	Notifications NotificationStore
	PushSubs      PushStore
	Push          PushNotifier
	Billing       Billing
	Proxy         GatewayProxy
	Webhook       http.Handler
	Alerts        AlertGenerator
	Snapshots     SnapshotLoader
	Assistant     Assistant
}

type API struct {
	d   Deps
	log *slog.Logger
	now func() time.Time

	mu       sync.Mutex
	limiters map[uuid.UUID]*visitor
	swept    time.Time
}

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

func New(d Deps) *API {
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.RateLimitRPS <= 0 {
		d.RateLimitRPS = 5
	}
	if d.RateLimitBurst <= 0 {
		d.RateLimitBurst = 10
	}
	return &API{
		d:        d,
		log:      d.Log.With("component", "api"),
		now:      time.Now,
		limiters: make(map[uuid.UUID]*visitor),
	}
}

// Router собирает все маршруты.
func (a *API) Router() *gin.Engine {
	useJSONFieldNames()

	r := gin.New()
	r.Use(gin.Recovery(), a.metrics(), a.accessLog())

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if a.d.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	pub := r.Group("/api")
	pub.GET("/push/public-key", a.pushPublicKey)
	if a.d.Webhook != nil {
		pub.POST("/billing/webhook", gin.WrapH(a.d.Webhook))
	}

	auth := r.Group("/api", a.authenticate(), a.rateLimit())
	auth.GET("/me", a.me)
	auth.PUT("/me/telegram", a.linkTelegram)

	auth.GET("/billing/plans", a.plans)
	auth.POST("/billing/subscribe", a.subscribe)
	auth.POST("/billing/checkout", a.checkout)
	auth.GET("/billing/charges/:txn", a.chargeStatus)
	auth.POST("/create-card", a.proxy("/charges/card"))
	auth.POST("/create-pix", a.proxy("/charges/pix"))

	auth.POST("/subscribe-push", a.subscribePush)
	auth.DELETE("/subscribe-push", a.unsubscribePush)
	auth.POST("/send-event-notification", a.sendEventNotification)

	auth.GET("/notifications", a.listNotifications)
	auth.POST("/notifications/read-all", a.readAllNotifications)
	auth.POST("/notifications/:id/read", a.readNotification)

	gated := auth.Group("", a.requireActive())
	gated.GET("/works", a.listWorks)
	gated.POST("/works", a.createWork)
	gated.POST("/ai/chat", a.chat)
	gated.POST("/ai/plan-work", a.requireAI(), a.planWork)

	work := gated.Group("/works/:workID", a.loadWork())
	work.GET("", a.getWork)
	work.PUT("", a.updateWork)
	work.DELETE("", a.deleteWork)
	work.GET("/summary", a.summary)
	work.POST("/notifications/generate", a.generateNotifications)
	work.GET("/report.xlsx", a.requireAI(), a.report)
	work.POST("/materials/:id/purchase", a.purchase)

	mountResource(a, work, "/steps", "etapa", a.d.Steps)
	mountResource(a, work, "/materials", "material", Repository[materials.Material](a.d.Materials))
	mountResource(a, work, "/expenses", "despesa", a.d.Expenses)
	mountResource(a, work, "/workers", "profissional", a.d.Workers)
	mountResource(a, work, "/suppliers", "fornecedor", a.d.Suppliers)
	mountResource(a, work, "/photos", "foto", a.d.Photos)
	mountResource(a, work, "/files", "arquivo", a.d.Files)
	mountResource(a, work, "/checklist", "item", a.d.Checklist)
	mountResource(a, work, "/contracts", "contrato", a.d.Contracts)

	return r
}
