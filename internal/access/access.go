// Package access решает, действует ли подписка пользователя и куда его отправить, если нет.
package access

import (
	"math"
	"strings"
	"time"

	"github.com/Spok95/maos-da-obra/internal/domain/subscriptions"
	"github.com/Spok95/maos-da-obra/internal/domain/users"
)

// BillingRoute - страница выбора плана.
const BillingRoute = "/billing"

// exempt - маршруты, доступные без действующей подписки.
var exempt = []string{"/billing", "/checkout", "/api/billing", "/api/create-card", "/api/create-pix", "/api/me"}

// IsSubscriptionActive: VITALICIO действует всегда, остальные планы - пока срок строго в будущем.
func IsSubscriptionActive(u *users.User, now time.Time) bool {
	if u == nil {
		return false
	}
	if u.Plan == subscriptions.PlanVitalicio {
		return true
	}
	if !u.Plan.Valid() || u.SubscriptionExpiresAt == nil {
		return false
	}
	return u.SubscriptionExpiresAt.After(now)
}

var expiryLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05",
}

// ParseExpiry разбирает срок подписки в формате, который отдаёт шлюз или БД.
func ParseExpiry(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, l := range expiryLayouts {
		if t, err := time.Parse(l, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ActiveFromRaw - то же, что IsSubscriptionActive, для срока в виде строки.
// Неразборчивая строка доступа не даёт.
func ActiveFromRaw(plan subscriptions.Plan, raw string, now time.Time) bool {
	if plan == subscriptions.PlanVitalicio {
		return true
	}
	if !plan.Valid() {
		return false
	}
	t, ok := ParseExpiry(raw)
	if !ok {
		return false
	}
	return t.After(now)
}

// TrialDaysRemaining - целые дни пробного периода с округлением вверх, не меньше 0.
func TrialDaysRemaining(u *users.User, now time.Time) int {
	if u == nil || !u.IsTrial || u.SubscriptionExpiresAt == nil {
		return 0
	}
	left := u.SubscriptionExpiresAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Hours() / 24))
}

func IsAITrialActive(u *users.User, now time.Time) bool {
	return u != nil && u.IsTrial && TrialDaysRemaining(u, now) > 0
}

// CanUseAI - AI-функции и премиум-отчёты: VITALICIO или активный пробный период.
func CanUseAI(u *users.User, now time.Time) bool {
	if u == nil {
		return false
	}
	return u.Plan == subscriptions.PlanVitalicio || IsAITrialActive(u, now)
}

// RedirectTarget возвращает страницу, на которую надо увести пользователя, или "".
func RedirectTarget(active bool, route string) string {
	if active || IsExempt(route) {
		return ""
	}
	return BillingRoute
}

func IsExempt(route string) bool {
	for _, p := range exempt {
		if route == p || strings.HasPrefix(route, p+"/") || strings.HasPrefix(route, p+"?") {
			return true
		}
	}
	return false
}

// Status - сводка доступа для клиента.
type Status struct {
	Active             bool               `json:"active"`
	Plan               subscriptions.Plan `json:"plan"`
	ExpiresAt          *time.Time         `json:"expiresAt"`
	IsTrial            bool               `json:"isTrial"`
	TrialDaysRemaining int                `json:"trialDaysRemaining"`
	AITrialActive      bool               `json:"aiTrialActive"`
	CanUseAI           bool               `json:"canUseAi"`
	Redirect           string             `json:"redirect,omitempty"`
}

// Evaluate считает доступ один раз на запрос.
func Evaluate(u *users.User, now time.Time, route string) Status {
	active := IsSubscriptionActive(u, now)
	s := Status{
		Active:             active,
		TrialDaysRemaining: TrialDaysRemaining(u, now),
		AITrialActive:      IsAITrialActive(u, now),
		CanUseAI:           CanUseAI(u, now),
		Redirect:           RedirectTarget(active, route),
	}
	if u != nil {
		s.Plan = u.Plan
		s.ExpiresAt = u.SubscriptionExpiresAt
		s.IsTrial = u.IsTrial
	}
	return s
}
