package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/Spok95/maos-da-obra/internal/access"
	"github.com/Spok95/maos-da-obra/internal/apperr"
	"github.com/Spok95/maos-da-obra/internal/domain/subscriptions"
	"github.com/Spok95/maos-da-obra/internal/domain/users"
	"github.com/Spok95/maos-da-obra/internal/domain/works"
	"github.com/Spok95/maos-da-obra/internal/infra/metrics"
)

const (
	ctxUser = "user"
	ctxWork = "work"
)

func currentUser(c *gin.Context) *users.User {
	u, _ := c.MustGet(ctxUser).(*users.User)
	return u
}

func currentWork(c *gin.Context) *works.Work {
	w, _ := c.MustGet(ctxWork).(*works.Work)
	return w
}

// accessLog - одна строка slog на запрос.
func (a *API) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if v, ok := c.Get(ctxUser); ok {
			if u, ok := v.(*users.User); ok && u != nil {
				attrs = append(attrs, "user_id", u.ID)
			}
		}
		a.log.Info("http", attrs...)
	}
}

func (a *API) metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// authenticate проверяет токен и при первом входе создаёт пользователя с пробным периодом.
func (a *API) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c.GetHeader("Authorization"))
		if token == "" {
			abortWith(c, http.StatusUnauthorized, unauthorized)
			return
		}
		profile, err := a.d.Auth.Verify(token)
		if err != nil {
			if errors.Is(err, ErrUnauthorized) {
				a.log.Debug("token rejected", "err", err)
				abortWith(c, http.StatusUnauthorized, unauthorized)
				return
			}
			fail(c, a.log, err)
			return
		}

		u, err := a.d.Users.GetByID(c.Request.Context(), profile.ID)
		if err == nil && u == nil {
			trialUntil := a.now().AddDate(0, 0, a.d.TrialDays)
			u, err = a.d.Users.Ensure(c.Request.Context(), profile, string(subscriptions.PlanMensal), trialUntil)
			if err == nil {
				a.log.Info("user created", "user_id", u.ID, "trial_until", trialUntil)
			}
		}
		if err != nil {
			fail(c, a.log, err)
			return
		}
		c.Set(ctxUser, u)
		c.Next()
	}
}

var unauthorized = apperr.Result{Code: "nao_autenticado", Message: "Sessão expirada. Entre novamente.", Redirect: "/login"}

// rateLimit - отдельный лимитер на пользователя.
func (a *API) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.limiter(currentUser(c).ID).Allow() {
			abortWith(c, http.StatusTooManyRequests, apperr.Result{Code: "limite", Message: "Muitas requisições. Aguarde alguns segundos."})
			return
		}
		c.Next()
	}
}

// limiterIdle - лимитер пользователя, не приходившего дольше, удаляется.
const limiterIdle = 10 * time.Minute

func (a *API) limiter(id uuid.UUID) *rate.Limiter {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	if now.Sub(a.swept) > limiterIdle {
		for k, v := range a.limiters {
			if now.Sub(v.seen) > limiterIdle {
				delete(a.limiters, k)
			}
		}
		a.swept = now
	}
	v, ok := a.limiters[id]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(rate.Limit(a.d.RateLimitRPS), a.d.RateLimitBurst)}
		a.limiters[id] = v
	}
	v.seen = now
	return v.lim
}

// requireActive - Access Gate: без действующей подписки 402 и redirect на /billing.
func (a *API) requireActive() gin.HandlerFunc {
	return func(c *gin.Context) {
		st := access.Evaluate(currentUser(c), a.now(), c.Request.URL.Path)
		if !st.Active {
			redirect := st.Redirect
			if redirect == "" {
				redirect = access.BillingRoute
			}
			abortWith(c, http.StatusPaymentRequired, apperr.Result{
				Code:     "assinatura_inativa",
				Message:  "Sua assinatura não está ativa. Escolha um plano para continuar.",
				Redirect: redirect,
			})
			return
		}
		c.Next()
	}
}

// requireAI - VITALICIO или действующий пробный период.
func (a *API) requireAI() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !access.CanUseAI(currentUser(c), a.now()) {
			abortWith(c, http.StatusPaymentRequired, apperr.Result{
				Code:     "recurso_premium",
				Message:  "Recurso disponível no plano Vitalício ou durante o período de teste.",
				Redirect: access.BillingRoute,
			})
			return
		}
		c.Next()
	}
}

// loadWork проверяет, что объект из пути принадлежит пользователю.
func (a *API) loadWork() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("workID"))
		if err != nil {
			fail(c, a.log, apperr.NotFound("obra"))
			return
		}
		w, err := a.d.Works.Get(c.Request.Context(), currentUser(c).ID, id)
		if err != nil {
			fail(c, a.log, err)
			return
		}
		c.Set(ctxWork, w)
		c.Next()
	}
}

func pathID(c *gin.Context, name, entity string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperr.NotFound(entity)
	}
	return id, nil
}
