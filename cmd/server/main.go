package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/Spok95/maos-da-obra/internal/alerts"
	"github.com/Spok95/maos-da-obra/internal/api"
	"github.com/Spok95/maos-da-obra/internal/assistant"
	"github.com/Spok95/maos-da-obra/internal/billing"
	"github.com/Spok95/maos-da-obra/internal/config"
	"github.com/Spok95/maos-da-obra/internal/dashboard"
	"github.com/Spok95/maos-da-obra/internal/domain/attempts"
	"github.com/Spok95/maos-da-obra/internal/domain/charges"
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
	"github.com/Spok95/maos-da-obra/internal/infra/ai"
	"github.com/Spok95/maos-da-obra/internal/infra/db"
	httpx "github.com/Spok95/maos-da-obra/internal/infra/http"
	"github.com/Spok95/maos-da-obra/internal/infra/logger"
	"github.com/Spok95/maos-da-obra/internal/infra/payments"
	"github.com/Spok95/maos-da-obra/internal/infra/push"
	"github.com/Spok95/maos-da-obra/internal/infra/telegram"
	"github.com/Spok95/maos-da-obra/migrations"
)

func runMigrations(dsn string) error {
	sqlDB, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	goose.SetBaseFS(migrations.FS)
	return goose.Up(sqlDB, ".")
}

func main() {
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)
	if missing := cfg.Missing(); len(missing) > 0 {
		log.Warn("secrets not configured, dependent features will answer 503", "missing", missing)
	}
	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		log.Warn("unknown timezone, using UTC", "tz", cfg.App.Timezone, "err", err)
		loc = time.UTC
	}

	if err := runMigrations(cfg.Postgres.DSN); err != nil {
		log.Error("migrations failed", "err", err)
		return
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return
	}
	defer pool.Close()
	log.Info("db connected")

	userRepo := users.NewRepo(pool)
	workRepo := works.NewRepo(pool)
	stepRepo := steps.NewRepo(pool)
	materialRepo := materials.NewRepo(pool)
	expenseRepo := expenses.NewRepo(pool)
	notifRepo := notifications.NewRepo(pool)
	pushRepo := pushsubs.NewRepo(pool)

	vapid := push.NewVAPIDSender(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey, cfg.Push.Subject)
	dispatcher := push.NewDispatcher(log, vapid, pushRepo)

	var chat alerts.ChatSender
	bot, err := telegram.Connect(cfg.Telegram.Token, log)
	switch {
	case err != nil:
		log.Error("telegram disabled", "err", err)
	case bot != nil:
		chat = bot
		go func() {
			if err := bot.Run(ctx, 30); err != nil && ctx.Err() == nil {
				log.Error("telegram loop stopped", "err", err)
			}
		}()
		log.Info("telegram bot started")
	}

	fanout := alerts.NewFanout(log, dispatcher, chat, userRepo, cfg.App.BaseURL)
	engine := alerts.NewEngine(log, notifRepo, cfg.Alerts.MaterialWindowDays, loc)
	engine.OnCreated = fanout.Go

	gateway := payments.NewService(cfg.Payment.APIURL, cfg.Payment.PublicKey, cfg.Payment.SecretKey)
	billingSvc := billing.NewService(log, gateway, charges.NewRepo(pool), attempts.NewRepo(pool),
		billing.NewPGSettler(pool), cfg.App.BaseURL)
	billingSvc.OnPaid = func(ctx context.Context, c *charges.Charge) {
		offer := subscriptions.Catalog[c.Plan]
		n, err := notifRepo.Create(ctx, &notifications.Notification{
			UserID:  c.UserID,
			Title:   "Pagamento confirmado",
			Message: fmt.Sprintf("Seu plano %s está ativo. Obrigado!", offer.Name),
			Type:    notifications.TypeSuccess,
			Tag:     "payment:" + c.TransactionID,
		})
		if err != nil {
			log.Error("payment notification failed", "txn", c.TransactionID, "err", err)
			return
		}
		fanout.Go(ctx, *n)
	}

	gen, err := ai.New(ctx, cfg.AI.APIKey, cfg.AI.Model)
	if err != nil {
		log.Error("ai client failed", "err", err)
		return
	}
	loader := dashboard.Loader{Works: workRepo, Steps: stepRepo, Materials: materialRepo, Expenses: expenseRepo}

	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.New(api.Deps{
		Log:            log,
		Location:       loc,
		TrialDays:      cfg.App.TrialDays,
		RateLimitRPS:   cfg.HTTP.RateLimitRPS,
		RateLimitBurst: cfg.HTTP.RateLimitBurst,
		MetricsEnabled: cfg.Metrics.Enabled,
		VAPIDPublicKey: vapid.PublicKey(),

		PaymentPublicKey: gateway.PublicKey(),

		Auth:          api.NewAuthenticator(cfg.Supabase.URL, cfg.Supabase.JWTSecret),
		Users:         userRepo,
		Works:         workRepo,
		Steps:         stepRepo,
		Materials:     materialRepo,
		Expenses:      expenseRepo,
		Workers:       workers.NewRepo(pool),
		Suppliers:     suppliers.NewRepo(pool),
		Photos:        photos.NewRepo(pool),
		Files:         files.NewRepo(pool),
		Checklist:     checklists.NewRepo(pool),
		Contracts:     contracts.NewRepo(pool),
		Notifications: notifRepo,
		PushSubs:      pushRepo,
		Push:          dispatcher,
		Billing:       billingSvc,
		Proxy:         gateway,
		Webhook:       payments.NewHandler(log, cfg.Payment.WebhookSecret, billingSvc),
		Alerts:        engine,
		Snapshots:     loader,
		Assistant:     assistant.NewService(log, gen, loader, assistant.NewPGPlanStore(pool), loc),
	}).Router()

	srv := httpx.New(cfg.HTTP.Addr, router)
	go func() {
		if err := srv.Start(); err != nil {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	fanout.Wait()
	log.Info("graceful shutdown complete")
}
